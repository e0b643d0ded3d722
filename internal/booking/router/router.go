// Package router translates slot facts into derived participant-slot
// commands. It holds no state of its own: every fact maps to exactly one
// command against the stream derived from the fact's slot and participant.
package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/domain/participantslot"
)

// CommandExecutor runs one derived command against its entity.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd command.Command) error
}

// Router dispatches derived commands for slot facts.
type Router struct {
	participants CommandExecutor
	logger       *zap.Logger
}

// New builds a router over the participant-slot command executor.
func New(participants CommandExecutor, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{participants: participants, logger: logger}
}

// Route translates one slot fact and dispatches its derived command.
// Redelivery is safe: the downstream entity treats repeated commands for an
// already-folded fact as no-ops.
func (r *Router) Route(ctx context.Context, evt event.Event) error {
	if r == nil || r.participants == nil {
		return fmt.Errorf("participant-slot executor is not configured")
	}

	var commandType command.Type
	switch evt.Type {
	case event.TypeParticipantMarkedAvailable:
		commandType = participantslot.CommandTypeMarkAvailable
	case event.TypeParticipantUnmarkedAvailable:
		commandType = participantslot.CommandTypeUnmarkAvailable
	case event.TypeParticipantBooked:
		commandType = participantslot.CommandTypeBook
	case event.TypeParticipantCanceled:
		commandType = participantslot.CommandTypeCancel
	default:
		return fmt.Errorf("unroutable event type %q", evt.Type)
	}

	key := participantslot.DeriveKey(evt.SlotID, evt.ParticipantID)
	cmd := command.New(commandType, key, participantslot.Payload{
		SlotID:          evt.SlotID,
		ParticipantID:   evt.ParticipantID,
		ParticipantType: string(evt.ParticipantType),
		BookingID:       evt.BookingID,
	})

	if err := r.participants.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch %s to %s: %w", commandType, key, err)
	}
	r.logger.Debug("routed slot fact",
		zap.String("slot_id", evt.SlotID),
		zap.Uint64("seq", evt.Seq),
		zap.String("fact", string(evt.Type)),
		zap.String("key", key),
	)
	return nil
}
