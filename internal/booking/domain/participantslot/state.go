package participantslot

import "github.com/aeroclub/slotbooking/internal/booking/domain/event"

// Status is the participant's standing in a slot, as seen by queries.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusBooked      Status = "booked"
)

// State is the folded view of one participant-slot stream. Stream identity is
// the derived key; SlotID and ParticipantID are the components it was derived
// from, captured from the first fact.
type State struct {
	Key             string
	SlotID          string
	ParticipantID   string
	ParticipantType event.ParticipantType
	Initialized     bool
	Status          Status
	// BookingID is set while booked; after a cancellation it keeps the
	// canceled booking's id so queries can show what was released.
	BookingID string
	// Canceled marks that the last booking on this stream was canceled.
	Canceled bool
}

// NewState returns the empty state for a derived key.
func NewState(key string) State {
	return State{Key: key}
}

// IsBooked reports whether the participant is currently committed to a booking
// in this slot.
func (s State) IsBooked() bool {
	return s.Status == StatusBooked
}
