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

// SlotRowStore methods (participant slots read model)

// PutSlotRow upserts one (slot, participant) read-model row.
func (s *Store) PutSlotRow(ctx context.Context, row storage.SlotRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(row.SlotID) == "" {
		return fmt.Errorf("slot id is required")
	}
	if strings.TrimSpace(row.ParticipantID) == "" {
		return fmt.Errorf("participant id is required")
	}
	if row.LastUpdated.IsZero() {
		row.LastUpdated = time.Now().UTC()
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO participant_slots (
			slot_id, participant_id, participant_type, status, booking_id, last_updated
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot_id, participant_id) DO UPDATE SET
			participant_type = excluded.participant_type,
			status = excluded.status,
			booking_id = excluded.booking_id,
			last_updated = excluded.last_updated`,
		row.SlotID,
		row.ParticipantID,
		string(row.ParticipantType),
		row.Status,
		row.BookingID,
		toMillis(row.LastUpdated),
	); err != nil {
		return fmt.Errorf("put slot row: %w", err)
	}
	return nil
}

// GetSlotRow fetches one read-model row.
func (s *Store) GetSlotRow(ctx context.Context, slotID, participantID string) (storage.SlotRow, error) {
	if err := ctx.Err(); err != nil {
		return storage.SlotRow{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SlotRow{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(slotID) == "" {
		return storage.SlotRow{}, fmt.Errorf("slot id is required")
	}
	if strings.TrimSpace(participantID) == "" {
		return storage.SlotRow{}, fmt.Errorf("participant id is required")
	}

	row, err := scanSlotRow(s.sqlDB.QueryRowContext(
		ctx,
		`SELECT slot_id, participant_id, participant_type, status, booking_id, last_updated
		 FROM participant_slots
		 WHERE slot_id = ? AND participant_id = ?`,
		slotID,
		participantID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SlotRow{}, storage.ErrNotFound
		}
		return storage.SlotRow{}, fmt.Errorf("get slot row: %w", err)
	}
	return row, nil
}

// ListSlotRowsByParticipant returns a participant's rows ordered by last
// update descending.
func (s *Store) ListSlotRowsByParticipant(ctx context.Context, participantID string, limit int) ([]storage.SlotRow, error) {
	return s.listSlotRows(ctx, participantID, "", limit)
}

// ListSlotRowsByParticipantStatus filters a participant's rows by status,
// ordered by last update descending.
func (s *Store) ListSlotRowsByParticipantStatus(ctx context.Context, participantID, status string, limit int) ([]storage.SlotRow, error) {
	if strings.TrimSpace(status) == "" {
		return nil, fmt.Errorf("status is required")
	}
	return s.listSlotRows(ctx, participantID, status, limit)
}

func (s *Store) listSlotRows(ctx context.Context, participantID, status string, limit int) ([]storage.SlotRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(participantID) == "" {
		return nil, fmt.Errorf("participant id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT slot_id, participant_id, participant_type, status, booking_id, last_updated
			 FROM participant_slots
			 WHERE participant_id = ?
			 ORDER BY last_updated DESC, slot_id ASC
			 LIMIT ?`,
			participantID,
			limit,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT slot_id, participant_id, participant_type, status, booking_id, last_updated
			 FROM participant_slots
			 WHERE participant_id = ? AND status = ?
			 ORDER BY last_updated DESC, slot_id ASC
			 LIMIT ?`,
			participantID,
			status,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list slot rows: %w", err)
	}
	defer rows.Close()

	records := make([]storage.SlotRow, 0, limit)
	for rows.Next() {
		record, err := scanSlotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot rows: %w", err)
	}
	return records, nil
}

func scanSlotRow(row rowScanner) (storage.SlotRow, error) {
	var (
		record          storage.SlotRow
		participantType string
		lastUpdated     int64
	)
	if err := row.Scan(
		&record.SlotID,
		&record.ParticipantID,
		&participantType,
		&record.Status,
		&record.BookingID,
		&lastUpdated,
	); err != nil {
		return storage.SlotRow{}, err
	}
	record.ParticipantType = event.ParticipantType(participantType)
	record.LastUpdated = fromMillis(lastUpdated)
	return record, nil
}
