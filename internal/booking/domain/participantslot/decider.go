package participantslot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
)

const (
	CommandTypeMarkAvailable   command.Type = "participantslot.mark_available"
	CommandTypeUnmarkAvailable command.Type = "participantslot.unmark_available"
	CommandTypeBook            command.Type = "participantslot.book"
	CommandTypeCancel          command.Type = "participantslot.cancel"

	RejectionCodeSlotIDRequired         = "SLOT_ID_REQUIRED"
	RejectionCodeParticipantIDRequired  = "PARTICIPANT_ID_REQUIRED"
	RejectionCodeParticipantTypeInvalid = "PARTICIPANT_TYPE_INVALID"
	RejectionCodeBookingIDRequired      = "BOOKING_ID_REQUIRED"
	RejectionCodeUnknownCommand         = "UNKNOWN_COMMAND"
)

// Payload carries the derived command fields. All four command kinds share
// it; BookingID is empty for availability commands.
type Payload struct {
	SlotID          string `json:"slot_id"`
	ParticipantID   string `json:"participant_id"`
	ParticipantType string `json:"participant_type"`
	BookingID       string `json:"booking_id,omitempty"`
}

// Decide handles a derived command against current state. Commands are
// idempotent under redelivery: a command whose effect is already folded into
// state is accepted with no events, so the router can safely retry.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	var factType event.Type
	switch cmd.Type {
	case CommandTypeMarkAvailable:
		factType = event.TypeSlotMarkedAvailable
	case CommandTypeUnmarkAvailable:
		factType = event.TypeSlotUnmarkedAvailable
	case CommandTypeBook:
		factType = event.TypeSlotBooked
	case CommandTypeCancel:
		factType = event.TypeSlotCanceled
	default:
		return command.Reject(command.Rejection{
			Code:    RejectionCodeUnknownCommand,
			Message: "unknown participant-slot command",
		})
	}

	var payload Payload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	slotID := strings.TrimSpace(payload.SlotID)
	participantID := strings.TrimSpace(payload.ParticipantID)
	bookingID := strings.TrimSpace(payload.BookingID)
	if slotID == "" {
		return command.Reject(command.Rejection{
			Code:    RejectionCodeSlotIDRequired,
			Message: "slot id is required",
		})
	}
	if participantID == "" {
		return command.Reject(command.Rejection{
			Code:    RejectionCodeParticipantIDRequired,
			Message: "participant id is required",
		})
	}
	participantType, ok := event.ParseParticipantType(payload.ParticipantType)
	if !ok {
		return command.Reject(command.Rejection{
			Code:    RejectionCodeParticipantTypeInvalid,
			Message: "participant type must be STUDENT, AIRCRAFT, or INSTRUCTOR",
		})
	}
	if (cmd.Type == CommandTypeBook || cmd.Type == CommandTypeCancel) && bookingID == "" {
		return command.Reject(command.Rejection{
			Code:    RejectionCodeBookingIDRequired,
			Message: "booking id is required",
		})
	}

	if alreadyApplied(state, factType, bookingID) {
		return command.Accept()
	}

	return command.Accept(event.Event{
		StreamID:        cmd.StreamID,
		Timestamp:       now().UTC(),
		Type:            factType,
		SlotID:          slotID,
		ParticipantID:   participantID,
		ParticipantType: participantType,
		BookingID:       bookingID,
	})
}

// alreadyApplied reports whether state already reflects the fact a command
// would emit, which is how redelivered derived commands collapse to no-ops.
func alreadyApplied(state State, factType event.Type, bookingID string) bool {
	if !state.Initialized {
		return false
	}
	switch factType {
	case event.TypeSlotMarkedAvailable:
		return state.Status == StatusAvailable && !state.Canceled
	case event.TypeSlotUnmarkedAvailable:
		return state.Status == StatusUnavailable
	case event.TypeSlotBooked:
		return state.Status == StatusBooked && state.BookingID == bookingID
	case event.TypeSlotCanceled:
		return state.Canceled && state.BookingID == bookingID
	}
	return false
}
