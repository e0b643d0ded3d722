package slot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
)

const (
	CommandTypeMarkAvailable   command.Type = "slot.mark_available"
	CommandTypeUnmarkAvailable command.Type = "slot.unmark_available"
	CommandTypeBookReservation command.Type = "slot.book_reservation"
	CommandTypeCancelBooking   command.Type = "slot.cancel_booking"

	RejectionCodeSlotNotInitialized     = "SLOT_NOT_INITIALIZED"
	RejectionCodeSlotNotBookable        = "SLOT_NOT_BOOKABLE"
	RejectionCodeBookingIDRequired      = "BOOKING_ID_REQUIRED"
	RejectionCodeBookingIDDuplicate     = "BOOKING_ID_DUPLICATE"
	RejectionCodeBookingNotFound        = "BOOKING_NOT_FOUND"
	RejectionCodeParticipantIDRequired  = "PARTICIPANT_ID_REQUIRED"
	RejectionCodeParticipantTypeInvalid = "PARTICIPANT_TYPE_INVALID"
	RejectionCodeUnknownCommand         = "UNKNOWN_COMMAND"
)

// AvailabilityPayload carries mark/unmark command fields.
type AvailabilityPayload struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantType string `json:"participant_type"`
}

// BookPayload carries the three participant ids and the booking id.
type BookPayload struct {
	StudentID    string `json:"student_id"`
	AircraftID   string `json:"aircraft_id"`
	InstructorID string `json:"instructor_id"`
	BookingID    string `json:"booking_id"`
}

// CancelPayload carries the booking id to cancel.
type CancelPayload struct {
	BookingID string `json:"booking_id"`
}

// Decide returns the decision for a slot command against current state.
//
// Mark-available is the initializing command and is always accepted; every
// other command requires the slot to have at least one prior fact. Book and
// cancel emit all of their facts or none.
func Decide(state Timeslot, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	switch cmd.Type {
	case CommandTypeMarkAvailable:
		participant, rejection := availabilityParticipant(cmd)
		if rejection != nil {
			return command.Reject(*rejection)
		}
		return command.Accept(event.Event{
			StreamID:        cmd.StreamID,
			Timestamp:       now().UTC(),
			Type:            event.TypeParticipantMarkedAvailable,
			SlotID:          cmd.StreamID,
			ParticipantID:   participant.ID,
			ParticipantType: participant.Type,
		})

	case CommandTypeUnmarkAvailable:
		if !state.Initialized {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeSlotNotInitialized,
				Message: "slot has no recorded facts yet",
			})
		}
		participant, rejection := availabilityParticipant(cmd)
		if rejection != nil {
			return command.Reject(*rejection)
		}
		return command.Accept(event.Event{
			StreamID:        cmd.StreamID,
			Timestamp:       now().UTC(),
			Type:            event.TypeParticipantUnmarkedAvailable,
			SlotID:          cmd.StreamID,
			ParticipantID:   participant.ID,
			ParticipantType: participant.Type,
		})

	case CommandTypeBookReservation:
		if !state.Initialized {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeSlotNotInitialized,
				Message: "slot has no recorded facts yet",
			})
		}
		var payload BookPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		studentID := strings.TrimSpace(payload.StudentID)
		aircraftID := strings.TrimSpace(payload.AircraftID)
		instructorID := strings.TrimSpace(payload.InstructorID)
		bookingID := strings.TrimSpace(payload.BookingID)
		if studentID == "" || aircraftID == "" || instructorID == "" {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeParticipantIDRequired,
				Message: "student, aircraft, and instructor ids are required",
			})
		}
		if bookingID == "" {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeBookingIDRequired,
				Message: "booking id is required",
			})
		}
		if state.HasBookingID(bookingID) {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeBookingIDDuplicate,
				Message: "booking id was already used for this slot",
			})
		}
		if !state.IsBookable(studentID, aircraftID, instructorID) {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeSlotNotBookable,
				Message: "timeslot is not bookable",
			})
		}
		ts := now().UTC()
		booked := func(id string, pt event.ParticipantType) event.Event {
			return event.Event{
				StreamID:        cmd.StreamID,
				Timestamp:       ts,
				Type:            event.TypeParticipantBooked,
				SlotID:          cmd.StreamID,
				ParticipantID:   id,
				ParticipantType: pt,
				BookingID:       bookingID,
			}
		}
		return command.Accept(
			booked(studentID, event.ParticipantTypeStudent),
			booked(aircraftID, event.ParticipantTypeAircraft),
			booked(instructorID, event.ParticipantTypeInstructor),
		)

	case CommandTypeCancelBooking:
		if !state.Initialized {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeSlotNotInitialized,
				Message: "slot has no recorded facts yet",
			})
		}
		var payload CancelPayload
		_ = json.Unmarshal(cmd.PayloadJSON, &payload)
		bookingID := strings.TrimSpace(payload.BookingID)
		if bookingID == "" {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeBookingIDRequired,
				Message: "booking id is required",
			})
		}
		rows := state.FindBooking(bookingID)
		if len(rows) == 0 {
			return command.Reject(command.Rejection{
				Code:    RejectionCodeBookingNotFound,
				Message: "no active booking with this id",
			})
		}
		ts := now().UTC()
		events := make([]event.Event, 0, len(rows))
		for _, row := range rows {
			events = append(events, event.Event{
				StreamID:        cmd.StreamID,
				Timestamp:       ts,
				Type:            event.TypeParticipantCanceled,
				SlotID:          cmd.StreamID,
				ParticipantID:   row.Participant.ID,
				ParticipantType: row.Participant.Type,
				BookingID:       bookingID,
			})
		}
		return command.Accept(events...)

	default:
		return command.Reject(command.Rejection{
			Code:    RejectionCodeUnknownCommand,
			Message: "unknown slot command",
		})
	}
}

// availabilityParticipant validates the shared mark/unmark payload.
func availabilityParticipant(cmd command.Command) (Participant, *command.Rejection) {
	var payload AvailabilityPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	id := strings.TrimSpace(payload.ParticipantID)
	if id == "" {
		return Participant{}, &command.Rejection{
			Code:    RejectionCodeParticipantIDRequired,
			Message: "participant id is required",
		}
	}
	participantType, ok := event.ParseParticipantType(payload.ParticipantType)
	if !ok {
		return Participant{}, &command.Rejection{
			Code:    RejectionCodeParticipantTypeInvalid,
			Message: "participant type must be STUDENT, AIRCRAFT, or INSTRUCTOR",
		}
	}
	return Participant{ID: id, Type: participantType}, nil
}
