// Package session assembles the client's sync stack and owns its
// lifecycle: dedupe cache, event bus, entity store, store bridge, API
// service, and realtime connection manager, wired in dependency order.
package session
