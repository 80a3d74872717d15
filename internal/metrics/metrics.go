// ABOUTME: Recorder interface plus the no-op default used when no registry is wired.

package metrics

// Recorder receives diagnostic signals from the sync layer.
type Recorder interface {
	// EventPublished counts a dispatched event by topic.
	EventPublished(topic string)
	// EventDeduplicated counts a suppressed duplicate by topic.
	EventDeduplicated(topic string)
	// SubscriberFault counts a panicking subscriber by topic.
	SubscriberFault(topic string)
	// ConnectionState records the connection manager's current state.
	ConnectionState(state string)
	// QueueDepth records the offline queue's current length.
	QueueDepth(n int)
	// ActionsReplayed counts actions replayed to the transport on reconnect.
	ActionsReplayed(n int)
}

// Noop is a Recorder that does nothing.
type Noop struct{}

func (Noop) EventPublished(string)    {}
func (Noop) EventDeduplicated(string) {}
func (Noop) SubscriberFault(string)   {}
func (Noop) ConnectionState(string)   {}
func (Noop) QueueDepth(int)           {}
func (Noop) ActionsReplayed(int)      {}

var _ Recorder = Noop{}
