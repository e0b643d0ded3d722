// Package service exposes the command services that drive the slot aggregate
// and the participant-slot entity: load a stream, replay it, decide, append.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/domain/slot"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

const replayPageSize = 500

// SlotService handles commands against slot aggregates.
type SlotService struct {
	events storage.EventStore
	locks  *streamLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewSlotService builds a slot command service.
func NewSlotService(events storage.EventStore, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		events: events,
		locks:  newStreamLocks(),
		logger: logger,
		now:    time.Now,
	}
}

// MarkAvailable records a participant offering the slot.
func (s *SlotService) MarkAvailable(ctx context.Context, slotID, participantID, participantType string) ([]event.Event, error) {
	return s.execute(ctx, slotID, command.New(slot.CommandTypeMarkAvailable, strings.TrimSpace(slotID), slot.AvailabilityPayload{
		ParticipantID:   participantID,
		ParticipantType: participantType,
	}))
}

// UnmarkAvailable records a participant withdrawing availability.
func (s *SlotService) UnmarkAvailable(ctx context.Context, slotID, participantID, participantType string) ([]event.Event, error) {
	return s.execute(ctx, slotID, command.New(slot.CommandTypeUnmarkAvailable, strings.TrimSpace(slotID), slot.AvailabilityPayload{
		ParticipantID:   participantID,
		ParticipantType: participantType,
	}))
}

// BookReservation books the three participants atomically under one booking id.
func (s *SlotService) BookReservation(ctx context.Context, slotID, studentID, aircraftID, instructorID, bookingID string) ([]event.Event, error) {
	return s.execute(ctx, slotID, command.New(slot.CommandTypeBookReservation, strings.TrimSpace(slotID), slot.BookPayload{
		StudentID:    studentID,
		AircraftID:   aircraftID,
		InstructorID: instructorID,
		BookingID:    bookingID,
	}))
}

// CancelBooking releases every participant of the matched booking.
func (s *SlotService) CancelBooking(ctx context.Context, slotID, bookingID string) ([]event.Event, error) {
	return s.execute(ctx, slotID, command.New(slot.CommandTypeCancelBooking, strings.TrimSpace(slotID), slot.CancelPayload{
		BookingID: bookingID,
	}))
}

// GetSlot replays a slot's facts and returns its current state.
func (s *SlotService) GetSlot(ctx context.Context, slotID string) (slot.Timeslot, error) {
	slotID = strings.TrimSpace(slotID)
	if slotID == "" {
		return slot.Timeslot{}, apperrors.New(apperrors.CodeSlotIDRequired, "slot id is required")
	}

	events, err := loadStream(ctx, s.events, slotID)
	if err != nil {
		return slot.Timeslot{}, err
	}
	state := slot.Replay(slotID, events)
	if !state.Initialized {
		return slot.Timeslot{}, apperrors.New(apperrors.CodeNotFound, "slot has no recorded facts")
	}
	return state, nil
}

func (s *SlotService) execute(ctx context.Context, slotID string, cmd command.Command) ([]event.Event, error) {
	slotID = strings.TrimSpace(slotID)
	if slotID == "" {
		return nil, apperrors.New(apperrors.CodeSlotIDRequired, "slot id is required")
	}

	release := s.locks.acquire(slotID)
	defer release()

	events, err := loadStream(ctx, s.events, slotID)
	if err != nil {
		return nil, err
	}
	state := slot.Replay(slotID, events)

	decision := slot.Decide(state, cmd, s.now)
	if decision.Rejected() {
		rejection := decision.Rejections[0]
		s.logger.Info("slot command rejected",
			zap.String("slot_id", slotID),
			zap.String("command", string(cmd.Type)),
			zap.String("code", rejection.Code),
		)
		return nil, rejectionError(rejection)
	}
	if len(decision.Events) == 0 {
		return nil, nil
	}

	appended, err := s.events.AppendEvents(ctx, decision.Events)
	if err != nil {
		return nil, fmt.Errorf("append slot events: %w", err)
	}
	s.logger.Info("slot command accepted",
		zap.String("slot_id", slotID),
		zap.String("command", string(cmd.Type)),
		zap.Int("events", len(appended)),
	)
	return appended, nil
}

// loadStream reads a stream's full history in pages.
func loadStream(ctx context.Context, events storage.EventStore, streamID string) ([]event.Event, error) {
	var (
		all      []event.Event
		afterSeq uint64
	)
	for {
		page, err := events.ListEvents(ctx, streamID, afterSeq, replayPageSize)
		if err != nil {
			return nil, fmt.Errorf("load stream %s: %w", streamID, err)
		}
		all = append(all, page...)
		if len(page) < replayPageSize {
			return all, nil
		}
		afterSeq = page[len(page)-1].Seq
	}
}
