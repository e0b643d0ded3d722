// Package storage defines the persistence contracts for the booking journal,
// the derived-work outbox, and the participant slots read model.
package storage

import (
	"context"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// SlotRow is the denormalized read-model row queries serve: one row per
// (slot, participant) pair, overwritten in place as facts arrive.
type SlotRow struct {
	SlotID          string
	ParticipantID   string
	ParticipantType event.ParticipantType
	// Status is "available", "unavailable", or "booked".
	Status string
	// BookingID holds the booking id while booked, or the
	// "<booking id> canceled" marker after a cancellation.
	BookingID string
	// LastUpdated orders recency queries.
	LastUpdated time.Time
}

// EventStore is the append-only fact journal. Appends within one call are
// atomic: either every event lands with a contiguous sequence or none do.
type EventStore interface {
	// AppendEvents appends events to a single stream and returns them with
	// sequence numbers assigned. All events must share a StreamID.
	AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error)
	// ListEvents returns a stream's events with seq > afterSeq, ascending.
	ListEvents(ctx context.Context, streamID string, afterSeq uint64, limit int) ([]event.Event, error)
	// GetEventBySeq retrieves one event by stream and sequence.
	GetEventBySeq(ctx context.Context, streamID string, seq uint64) (event.Event, error)
	// GetLatestSeq returns the highest sequence appended to a stream, 0 if none.
	GetLatestSeq(ctx context.Context, streamID string) (uint64, error)
}

// OutboxSummary reports outbox depth and the oldest retry-eligible row.
type OutboxSummary struct {
	PendingCount          int
	ProcessingCount       int
	FailedCount           int
	DeadCount             int
	OldestPendingStreamID string
	OldestPendingSeq      uint64
	OldestPendingAt       time.Time
}

// OutboxEntry describes one outbox row for inspection tooling.
type OutboxEntry struct {
	StreamID      string
	Seq           uint64
	EventType     event.Type
	Status        string
	AttemptCount  int
	NextAttemptAt time.Time
	LastError     string
	UpdatedAt     time.Time
}

// OutboxStore drains the derived-work queue filled alongside each append.
// Delivery is at-least-once; rows for one stream are handed out strictly in
// sequence order, so a failing row holds back its stream until it clears.
type OutboxStore interface {
	// ProcessOutbox claims due rows and invokes apply for each claimed
	// event. Successful rows are removed; failures are retried with
	// backoff until the dead-letter threshold.
	ProcessOutbox(ctx context.Context, now time.Time, limit int, apply func(context.Context, event.Event) error) (int, error)
	// GetOutboxSummary returns queue depth by status.
	GetOutboxSummary(ctx context.Context) (OutboxSummary, error)
	// ListOutboxRows lists rows optionally filtered by status.
	ListOutboxRows(ctx context.Context, status string, limit int) ([]OutboxEntry, error)
	// RequeueOutboxDeadRows moves up to limit dead rows back to pending.
	RequeueOutboxDeadRows(ctx context.Context, limit int, now time.Time) (int, error)
}

// SlotRowStore is the participant slots read model.
type SlotRowStore interface {
	// PutSlotRow upserts one (slot, participant) row.
	PutSlotRow(ctx context.Context, row SlotRow) error
	// GetSlotRow fetches one row, ErrNotFound when absent.
	GetSlotRow(ctx context.Context, slotID, participantID string) (SlotRow, error)
	// ListSlotRowsByParticipant returns a participant's rows ordered by
	// last update descending.
	ListSlotRowsByParticipant(ctx context.Context, participantID string, limit int) ([]SlotRow, error)
	// ListSlotRowsByParticipantStatus filters by status, same ordering.
	ListSlotRowsByParticipantStatus(ctx context.Context, participantID, status string, limit int) ([]SlotRow, error)
}
