package market

import "github.com/Memewtoo/sol-secondary-market/pkg/ledger"

// EventKind labels an order lifecycle transition.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventFilled    EventKind = "filled"
	EventModified  EventKind = "modified"
	EventCancelled EventKind = "cancelled"
	EventSettled   EventKind = "settled"
)

// Event is a lifecycle notification published after a state transition
// has committed.
type Event struct {
	Kind      EventKind        `json:"kind"`
	Creator   ledger.PublicKey `json:"creator"`
	Seed      uint64           `json:"seed"`
	Buyer     string           `json:"buyer,omitempty"` // hex, fills only
	Amount    uint64           `json:"amount"`
	Remaining uint64           `json:"remaining"`
	Closed    bool             `json:"closed"`
	Timestamp int64            `json:"timestamp"`
}

// EventSink receives lifecycle events. Implementations must not block;
// the manager publishes synchronously after commit.
type EventSink interface {
	Publish(Event)
}
