// Package event defines the canonical event records that flow between the
// request path, the push transport, and the entity store, plus the typed
// pub/sub bus that routes them with duplicate suppression.
package event
