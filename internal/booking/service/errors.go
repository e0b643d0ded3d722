package service

import (
	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

// rejectionCodes maps decider rejection codes onto domain error codes.
var rejectionCodes = map[string]apperrors.Code{
	"SLOT_ID_REQUIRED":         apperrors.CodeSlotIDRequired,
	"SLOT_NOT_INITIALIZED":     apperrors.CodeSlotNotInitialized,
	"SLOT_NOT_BOOKABLE":        apperrors.CodeSlotNotBookable,
	"BOOKING_ID_REQUIRED":      apperrors.CodeBookingIDRequired,
	"BOOKING_ID_DUPLICATE":     apperrors.CodeBookingIDDuplicate,
	"BOOKING_NOT_FOUND":        apperrors.CodeBookingNotFound,
	"PARTICIPANT_ID_REQUIRED":  apperrors.CodeParticipantIDRequired,
	"PARTICIPANT_TYPE_INVALID": apperrors.CodeParticipantTypeInvalid,
}

func rejectionError(rejection command.Rejection) error {
	code, ok := rejectionCodes[rejection.Code]
	if !ok {
		code = apperrors.CodeUnknown
	}
	return apperrors.New(code, rejection.Message)
}
