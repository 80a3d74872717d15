// Package bridge wires the entity store's mutators to event bus topics so
// that any event publication, regardless of origin, drives exactly one
// store-update code path.
package bridge
