// Package realtime owns the push transport's lifecycle: connect, heartbeat,
// exponential-backoff reconnect, team-room subscription, and the offline
// queue of outbound actions replayed after reconnect. Inbound frames are
// decoded to canonical events and published like request-path events, so
// the bridge and deduplicator treat both paths uniformly.
package realtime
