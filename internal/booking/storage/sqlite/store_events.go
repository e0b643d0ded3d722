package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
)

// EventStore methods (append-only fact journal)

// AppendEvents atomically appends events to a single stream.
//
// Sequence numbers are allocated contiguously within one transaction, and when
// the outbox is enabled a derived-work row is enqueued for every event in the
// same transaction, so a committed fact is always eventually propagated.
func (s *Store) AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(events) == 0 {
		return nil, nil
	}

	streamID := strings.TrimSpace(events[0].StreamID)
	if streamID == "" {
		return nil, fmt.Errorf("stream id is required")
	}
	for _, evt := range events {
		if evt.StreamID != events[0].StreamID {
			return nil, fmt.Errorf("all events must share a stream id")
		}
		if !evt.Type.IsValid() {
			return nil, fmt.Errorf("unknown event type %q", evt.Type)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO event_seq (stream_id, next_seq) VALUES (?, 1)`,
		streamID,
	); err != nil {
		return nil, fmt.Errorf("init event seq: %w", err)
	}

	var nextSeq int64
	if err := tx.QueryRowContext(
		ctx,
		`SELECT next_seq FROM event_seq WHERE stream_id = ?`,
		streamID,
	).Scan(&nextSeq); err != nil {
		return nil, fmt.Errorf("get event seq: %w", err)
	}

	appended := make([]event.Event, 0, len(events))
	for i, evt := range events {
		evt.StreamID = streamID
		evt.Seq = uint64(nextSeq) + uint64(i)
		if evt.Timestamp.IsZero() {
			evt.Timestamp = time.Now().UTC()
		}
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO events (
				stream_id, seq, timestamp, event_type,
				slot_id, participant_id, participant_type, booking_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.StreamID,
			int64(evt.Seq),
			toMillis(evt.Timestamp),
			string(evt.Type),
			evt.SlotID,
			evt.ParticipantID,
			string(evt.ParticipantType),
			evt.BookingID,
		); err != nil {
			if isConstraintError(err) {
				return nil, fmt.Errorf("append event %s/%d: sequence conflict: %w", evt.StreamID, evt.Seq, err)
			}
			return nil, fmt.Errorf("append event %s/%d: %w", evt.StreamID, evt.Seq, err)
		}

		if err := s.enqueueDerivedOutbox(ctx, tx, evt); err != nil {
			return nil, err
		}
		appended = append(appended, evt)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE event_seq SET next_seq = ? WHERE stream_id = ?`,
		nextSeq+int64(len(events)),
		streamID,
	); err != nil {
		return nil, fmt.Errorf("increment event seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return appended, nil
}

// GetEventBySeq retrieves a specific event by sequence number.
func (s *Store) GetEventBySeq(ctx context.Context, streamID string, seq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(streamID) == "" {
		return event.Event{}, fmt.Errorf("stream id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT stream_id, seq, timestamp, event_type, slot_id, participant_id, participant_type, booking_id
		 FROM events
		 WHERE stream_id = ? AND seq = ?`,
		streamID,
		int64(seq),
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by seq: %w", err)
	}
	return evt, nil
}

// ListEvents returns a stream's events with seq > afterSeq, ascending.
func (s *Store) ListEvents(ctx context.Context, streamID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(streamID) == "" {
		return nil, fmt.Errorf("stream id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT stream_id, seq, timestamp, event_type, slot_id, participant_id, participant_type, booking_id
		 FROM events
		 WHERE stream_id = ? AND seq > ?
		 ORDER BY seq ASC
		 LIMIT ?`,
		streamID,
		int64(afterSeq),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetLatestSeq returns the latest event sequence number for a stream.
func (s *Store) GetLatestSeq(ctx context.Context, streamID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(streamID) == "" {
		return 0, fmt.Errorf("stream id is required")
	}

	var seq sql.NullInt64
	if err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT MAX(seq) FROM events WHERE stream_id = ?`,
		streamID,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get latest seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// VerifyStream checks a stream's journal for sequence gaps and returns the
// missing sequence numbers, empty when the stream is contiguous.
func (s *Store) VerifyStream(ctx context.Context, streamID string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(streamID) == "" {
		return nil, fmt.Errorf("stream id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq FROM events WHERE stream_id = ? ORDER BY seq ASC`,
		streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stream sequences: %w", err)
	}
	defer rows.Close()

	var missing []uint64
	expected := uint64(1)
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("scan stream sequence: %w", err)
		}
		for expected < uint64(seq) {
			missing = append(missing, expected)
			expected++
		}
		expected = uint64(seq) + 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stream sequences: %w", err)
	}
	return missing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt             event.Event
		seq             int64
		timestamp       int64
		eventType       string
		participantType string
	)
	if err := row.Scan(
		&evt.StreamID,
		&seq,
		&timestamp,
		&eventType,
		&evt.SlotID,
		&evt.ParticipantID,
		&participantType,
		&evt.BookingID,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.ParticipantType = event.ParticipantType(participantType)
	return evt, nil
}
