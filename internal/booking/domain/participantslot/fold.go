package participantslot

import "github.com/aeroclub/slotbooking/internal/booking/domain/event"

// Fold applies one participant fact to state. Folding is convergent under
// redelivery: applying the same fact twice leaves state unchanged.
func Fold(state State, evt event.Event) State {
	switch evt.Type {
	case event.TypeSlotMarkedAvailable:
		state.Status = StatusAvailable
		state.BookingID = ""
		state.Canceled = false
	case event.TypeSlotUnmarkedAvailable:
		state.Status = StatusUnavailable
		state.BookingID = ""
		state.Canceled = false
	case event.TypeSlotBooked:
		state.Status = StatusBooked
		state.BookingID = evt.BookingID
		state.Canceled = false
	case event.TypeSlotCanceled:
		state.Status = StatusAvailable
		state.BookingID = evt.BookingID
		state.Canceled = true
	default:
		return state
	}
	state.Initialized = true
	state.SlotID = evt.SlotID
	state.ParticipantID = evt.ParticipantID
	if evt.ParticipantType.IsValid() {
		state.ParticipantType = evt.ParticipantType
	}
	return state
}

// FoldHandledTypes lists the fact kinds Fold reacts to.
func FoldHandledTypes() []event.Type {
	return []event.Type{
		event.TypeSlotMarkedAvailable,
		event.TypeSlotUnmarkedAvailable,
		event.TypeSlotBooked,
		event.TypeSlotCanceled,
	}
}

// Replay rebuilds state for a derived key from its fact stream.
func Replay(key string, events []event.Event) State {
	state := NewState(key)
	for _, evt := range events {
		state = Fold(state, evt)
	}
	return state
}
