package slot

import "github.com/aeroclub/slotbooking/internal/booking/domain/event"

// Fold applies a slot fact to timeslot state.
//
// The fold is where availability and bookings stay consistent: a booked fact
// both records the booking row and removes the participant from the
// available set, so booking always consumes the reservation. Cancellation
// marks booking rows canceled without restoring availability; a canceled
// participant must be explicitly re-marked before it is bookable again.
func Fold(state Timeslot, evt event.Event) Timeslot {
	if state.Available == nil {
		state.Available = make(map[Participant]struct{})
	}
	p := Participant{ID: evt.ParticipantID, Type: evt.ParticipantType}

	switch evt.Type {
	case event.TypeParticipantMarkedAvailable:
		state.Available[p] = struct{}{}
	case event.TypeParticipantUnmarkedAvailable:
		delete(state.Available, p)
	case event.TypeParticipantBooked:
		state.Bookings = append(state.Bookings, Booking{
			BookingID:   evt.BookingID,
			Participant: p,
		})
		delete(state.Available, p)
	case event.TypeParticipantCanceled:
		for i := range state.Bookings {
			if state.Bookings[i].BookingID == evt.BookingID && state.Bookings[i].Participant == p {
				state.Bookings[i].Canceled = true
			}
		}
	default:
		// Not a slot fact; leave state untouched.
		return state
	}

	state.Initialized = true
	if state.SlotID == "" {
		state.SlotID = evt.SlotID
	}
	return state
}

// FoldHandledTypes returns the slot fact kinds the fold dispatches on.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeParticipantMarkedAvailable,
		event.TypeParticipantUnmarkedAvailable,
		event.TypeParticipantBooked,
		event.TypeParticipantCanceled,
	}
}

// Replay folds a full fact stream from the empty state.
func Replay(slotID string, events []event.Event) Timeslot {
	state := NewTimeslot(slotID)
	for _, evt := range events {
		state = Fold(state, evt)
	}
	return state
}
