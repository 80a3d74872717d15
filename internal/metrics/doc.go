// Package metrics exposes sync-layer diagnostics (bus traffic, connection
// state, offline queue) behind a small Recorder interface so library
// consumers without a Prometheus registry pay nothing.
package metrics
