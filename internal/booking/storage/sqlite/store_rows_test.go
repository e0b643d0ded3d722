package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
)

func TestPutSlotRowUpsertsInPlace(t *testing.T) {
	store := openTestStore(t)

	row := storage.SlotRow{
		SlotID:          "slot-1",
		ParticipantID:   "stu1",
		ParticipantType: event.ParticipantTypeStudent,
		Status:          "available",
		BookingID:       "not booked",
		LastUpdated:     time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := store.PutSlotRow(context.Background(), row); err != nil {
		t.Fatalf("put slot row: %v", err)
	}

	row.Status = "booked"
	row.BookingID = "bk1"
	row.LastUpdated = row.LastUpdated.Add(time.Minute)
	if err := store.PutSlotRow(context.Background(), row); err != nil {
		t.Fatalf("put slot row again: %v", err)
	}

	stored, err := store.GetSlotRow(context.Background(), "slot-1", "stu1")
	if err != nil {
		t.Fatalf("get slot row: %v", err)
	}
	if stored.Status != "booked" {
		t.Fatalf("status = %s, want booked", stored.Status)
	}
	if stored.BookingID != "bk1" {
		t.Fatalf("booking id = %s, want bk1", stored.BookingID)
	}
}

func TestGetSlotRowMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSlotRow(context.Background(), "slot-1", "ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSlotRowsByParticipantOrdersByRecency(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for i, slotID := range []string{"slot-old", "slot-mid", "slot-new"} {
		if err := store.PutSlotRow(context.Background(), storage.SlotRow{
			SlotID:          slotID,
			ParticipantID:   "stu1",
			ParticipantType: event.ParticipantTypeStudent,
			Status:          "available",
			LastUpdated:     base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("put slot row %s: %v", slotID, err)
		}
	}

	rows, err := store.ListSlotRowsByParticipant(context.Background(), "stu1", 10)
	if err != nil {
		t.Fatalf("list slot rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].SlotID != "slot-new" || rows[2].SlotID != "slot-old" {
		t.Fatalf("order = %s..%s, want slot-new..slot-old", rows[0].SlotID, rows[2].SlotID)
	}
}

func TestListSlotRowsByParticipantStatusFilters(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	rows := []storage.SlotRow{
		{SlotID: "slot-a", ParticipantID: "stu1", ParticipantType: event.ParticipantTypeStudent, Status: "available", LastUpdated: base},
		{SlotID: "slot-b", ParticipantID: "stu1", ParticipantType: event.ParticipantTypeStudent, Status: "booked", BookingID: "bk1", LastUpdated: base.Add(time.Minute)},
		{SlotID: "slot-c", ParticipantID: "stu1", ParticipantType: event.ParticipantTypeStudent, Status: "available", BookingID: "bk0 canceled", LastUpdated: base.Add(2 * time.Minute)},
	}
	for _, row := range rows {
		if err := store.PutSlotRow(context.Background(), row); err != nil {
			t.Fatalf("put slot row %s: %v", row.SlotID, err)
		}
	}

	available, err := store.ListSlotRowsByParticipantStatus(context.Background(), "stu1", "available", 10)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("available rows = %d, want 2", len(available))
	}
	// The canceled-derived row is newest and must come first.
	if available[0].SlotID != "slot-c" {
		t.Fatalf("first available row = %s, want slot-c", available[0].SlotID)
	}
	if available[0].BookingID != "bk0 canceled" {
		t.Fatalf("booking id = %s, want canceled marker", available[0].BookingID)
	}
}
