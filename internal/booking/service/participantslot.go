package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/participantslot"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

// ParticipantSlotService handles derived commands against participant-slot
// entities. It is the router's downstream: commands arrive at least once and
// collapse to no-ops when their fact is already folded in.
type ParticipantSlotService struct {
	events storage.EventStore
	locks  *streamLocks
	logger *zap.Logger
	now    func() time.Time
}

// NewParticipantSlotService builds a participant-slot command service.
func NewParticipantSlotService(events storage.EventStore, logger *zap.Logger) *ParticipantSlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantSlotService{
		events: events,
		locks:  newStreamLocks(),
		logger: logger,
		now:    time.Now,
	}
}

// Execute runs one derived command against its participant-slot stream.
func (s *ParticipantSlotService) Execute(ctx context.Context, cmd command.Command) error {
	key := strings.TrimSpace(cmd.StreamID)
	if key == "" {
		return apperrors.New(apperrors.CodeParticipantKeyRequired, "participant-slot key is required")
	}

	release := s.locks.acquire(key)
	defer release()

	events, err := loadStream(ctx, s.events, key)
	if err != nil {
		return err
	}
	state := participantslot.Replay(key, events)

	decision := participantslot.Decide(state, cmd, s.now)
	if decision.Rejected() {
		rejection := decision.Rejections[0]
		s.logger.Warn("participant-slot command rejected",
			zap.String("key", key),
			zap.String("command", string(cmd.Type)),
			zap.String("code", rejection.Code),
		)
		return rejectionError(rejection)
	}
	if len(decision.Events) == 0 {
		// Effect already folded in; redelivery.
		return nil
	}

	if _, err := s.events.AppendEvents(ctx, decision.Events); err != nil {
		return fmt.Errorf("append participant-slot events: %w", err)
	}
	return nil
}

// GetState replays one participant-slot stream and returns its state.
func (s *ParticipantSlotService) GetState(ctx context.Context, slotID, participantID string) (participantslot.State, error) {
	slotID = strings.TrimSpace(slotID)
	participantID = strings.TrimSpace(participantID)
	if slotID == "" {
		return participantslot.State{}, apperrors.New(apperrors.CodeSlotIDRequired, "slot id is required")
	}
	if participantID == "" {
		return participantslot.State{}, apperrors.New(apperrors.CodeParticipantIDRequired, "participant id is required")
	}

	key := participantslot.DeriveKey(slotID, participantID)
	events, err := loadStream(ctx, s.events, key)
	if err != nil {
		return participantslot.State{}, err
	}
	state := participantslot.Replay(key, events)
	if !state.Initialized {
		return participantslot.State{}, apperrors.New(apperrors.CodeNotFound, "participant-slot has no recorded facts")
	}
	return state, nil
}
