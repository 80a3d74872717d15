// Package api wraps the request/response surface of the chat server. Its
// service layer performs the HTTP call and, on success, publishes the
// corresponding canonical event; writes carry a correlation id shared with
// the eventual push echo so the two deduplicate as one occurrence.
package api
