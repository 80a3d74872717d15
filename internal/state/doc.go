// Package state holds the client's normalized entity store: entities by id,
// team-scoped ordered id lists, and optimistic-update reconciliation. It is
// the single source of truth the UI layer reads.
package state
