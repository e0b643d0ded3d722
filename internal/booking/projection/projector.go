// Package projection maintains the participant slots read model: one row per
// (slot, participant) pair, overwritten as participant facts arrive.
package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
)

// StatusAvailable, StatusUnavailable, and StatusBooked are the row states
// queries filter on.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
	StatusBooked      = "booked"
)

// NotBookedPlaceholder fills the booking column of rows that were never booked.
const NotBookedPlaceholder = "not booked"

// CanceledMarker renders the human-readable booking column of a row freed by
// cancellation. Callers needing the prior booking id parse this convention.
func CanceledMarker(bookingID string) string {
	return bookingID + " canceled"
}

// Projector folds participant facts into read-model rows.
type Projector struct {
	rows   storage.SlotRowStore
	logger *zap.Logger
	now    func() time.Time
}

// New builds a projector over the read-model row store.
func New(rows storage.SlotRowStore, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{rows: rows, logger: logger, now: time.Now}
}

// Apply upserts the read-model row for one participant fact. Upserting the
// same fact twice writes the same row, so redelivery is harmless.
func (p *Projector) Apply(ctx context.Context, evt event.Event) error {
	if p == nil || p.rows == nil {
		return fmt.Errorf("slot row store is not configured")
	}

	row := storage.SlotRow{
		SlotID:          evt.SlotID,
		ParticipantID:   evt.ParticipantID,
		ParticipantType: evt.ParticipantType,
		LastUpdated:     p.now().UTC(),
	}

	switch evt.Type {
	case event.TypeSlotMarkedAvailable:
		row.Status = StatusAvailable
		row.BookingID = NotBookedPlaceholder
	case event.TypeSlotUnmarkedAvailable:
		row.Status = StatusUnavailable
		row.BookingID = p.currentBookingID(ctx, evt)
	case event.TypeSlotBooked:
		row.Status = StatusBooked
		row.BookingID = evt.BookingID
	case event.TypeSlotCanceled:
		row.Status = StatusAvailable
		row.BookingID = CanceledMarker(evt.BookingID)
	default:
		return fmt.Errorf("unprojectable event type %q", evt.Type)
	}

	if err := p.rows.PutSlotRow(ctx, row); err != nil {
		return fmt.Errorf("project %s for %s/%s: %w", evt.Type, evt.SlotID, evt.ParticipantID, err)
	}
	p.logger.Debug("projected participant fact",
		zap.String("slot_id", evt.SlotID),
		zap.String("participant_id", evt.ParticipantID),
		zap.String("status", row.Status),
	)
	return nil
}

// currentBookingID keeps the booking column unchanged when a participant
// withdraws availability.
func (p *Projector) currentBookingID(ctx context.Context, evt event.Event) string {
	existing, err := p.rows.GetSlotRow(ctx, evt.SlotID, evt.ParticipantID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Warn("load existing slot row",
				zap.String("slot_id", evt.SlotID),
				zap.String("participant_id", evt.ParticipantID),
				zap.Error(err),
			)
		}
		return NotBookedPlaceholder
	}
	return existing.BookingID
}
