// Package auth holds the client's bearer credential. JWT claims are read
// without verification purely to fail fast on known-expired tokens.
package auth
