package command

import "github.com/aeroclub/slotbooking/internal/booking/domain/event"

// Decision represents the pure outcome of handling a command.
//
// A decision either emits facts or carries rejections, never both: partial
// multi-fact outcomes are not representable, which is what keeps book and
// cancel all-or-nothing.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    string
	Message string
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Rejected reports whether the decision declined the command.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}
