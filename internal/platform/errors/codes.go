// Package errors provides structured, coded error handling for the booking
// services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Slot errors
	CodeSlotIDRequired     Code = "SLOT_ID_REQUIRED"
	CodeSlotNotInitialized Code = "SLOT_NOT_INITIALIZED"
	CodeSlotNotBookable    Code = "SLOT_NOT_BOOKABLE"
	CodeBookingIDRequired  Code = "BOOKING_ID_REQUIRED"
	CodeBookingIDDuplicate Code = "BOOKING_ID_DUPLICATE"
	CodeBookingNotFound    Code = "BOOKING_NOT_FOUND"

	// Participant errors
	CodeParticipantIDRequired  Code = "PARTICIPANT_ID_REQUIRED"
	CodeParticipantTypeInvalid Code = "PARTICIPANT_TYPE_INVALID"
	CodeParticipantKeyRequired Code = "PARTICIPANT_KEY_REQUIRED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeSlotIDRequired,
		CodeBookingIDRequired,
		CodeParticipantIDRequired,
		CodeParticipantTypeInvalid,
		CodeParticipantKeyRequired:
		return http.StatusBadRequest

	// Conflict - state doesn't allow the operation
	case CodeSlotNotInitialized,
		CodeSlotNotBookable,
		CodeBookingIDDuplicate:
		return http.StatusConflict

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeBookingNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
