// Package config loads the client's YAML configuration with ${VAR}
// environment expansion and human-readable durations. Every tunable has a
// default; only the server endpoints and token are required.
package config
