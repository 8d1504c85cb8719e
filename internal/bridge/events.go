package bridge

// Event is a bridge lifecycle event: placement notifications, connect
// warnings and operation timeouts. Fields carries optional extras such as
// the placement error.
type Event struct {
	Name        string
	Placement   string
	OperationID string
	Fields      map[string]any
}

// Event names published besides the placement notifications.
const (
	EventConnectWarning        = "connect_warning"
	EventConnectWarningTimeout = "connect_warning_timeout"
	EventRequestTimeout        = "request_timeout"
	EventShowTimeout           = "show_timeout"
	EventPlacementCreated      = "placement_created"
)

// EventPublisher receives events from the client. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MultiPublisher fans every event out to each member in order.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
