// Package dedupe provides event-id deduplication using a time-based cache
// so that the same logical occurrence arriving via the request path and the
// push path is applied at most once.
package dedupe
