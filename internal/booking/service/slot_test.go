package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/storage"
	apperrors "github.com/aeroclub/slotbooking/internal/platform/errors"
)

// memoryEventStore is a minimal journal for command service tests.
type memoryEventStore struct {
	mu      sync.Mutex
	streams map[string][]event.Event
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{streams: make(map[string][]event.Event)}
}

func (m *memoryEventStore) AppendEvents(_ context.Context, events []event.Event) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(events) == 0 {
		return nil, nil
	}
	streamID := events[0].StreamID
	appended := make([]event.Event, 0, len(events))
	for _, evt := range events {
		evt.Seq = uint64(len(m.streams[streamID]) + 1)
		m.streams[streamID] = append(m.streams[streamID], evt)
		appended = append(appended, evt)
	}
	return appended, nil
}

func (m *memoryEventStore) ListEvents(_ context.Context, streamID string, afterSeq uint64, limit int) ([]event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var page []event.Event
	for _, evt := range m.streams[streamID] {
		if evt.Seq > afterSeq && len(page) < limit {
			page = append(page, evt)
		}
	}
	return page, nil
}

func (m *memoryEventStore) GetEventBySeq(_ context.Context, streamID string, seq uint64) (event.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.streams[streamID] {
		if evt.Seq == seq {
			return evt, nil
		}
	}
	return event.Event{}, storage.ErrNotFound
}

func (m *memoryEventStore) GetLatestSeq(_ context.Context, streamID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.streams[streamID])), nil
}

func TestMarkAvailableInitializesAndAppends(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	events, err := svc.MarkAvailable(context.Background(), "slot-1", "stu1", "STUDENT")
	if err != nil {
		t.Fatalf("mark available: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Seq != 1 {
		t.Fatalf("seq = %d, want 1", events[0].Seq)
	}

	state, err := svc.GetSlot(context.Background(), "slot-1")
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if !state.Initialized {
		t.Fatal("expected initialized slot")
	}
}

func TestUnmarkAvailableOnEmptySlotFails(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	_, err := svc.UnmarkAvailable(context.Background(), "slot-1", "stu1", "STUDENT")
	if !errors.Is(err, apperrors.New(apperrors.CodeSlotNotInitialized, "")) {
		t.Fatalf("err = %v, want SLOT_NOT_INITIALIZED", err)
	}
}

func TestBookReservationAppendsThreeFacts(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	marks := []struct{ id, participantType string }{
		{"stu1", "STUDENT"},
		{"ac1", "AIRCRAFT"},
		{"ins1", "INSTRUCTOR"},
	}
	for _, mark := range marks {
		if _, err := svc.MarkAvailable(context.Background(), "slot-1", mark.id, mark.participantType); err != nil {
			t.Fatalf("mark %s: %v", mark.id, err)
		}
	}

	events, err := svc.BookReservation(context.Background(), "slot-1", "stu1", "ac1", "ins1", "bk1")
	if err != nil {
		t.Fatalf("book reservation: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Seq != 4 || events[2].Seq != 6 {
		t.Fatalf("seqs = %d..%d, want 4..6", events[0].Seq, events[2].Seq)
	}
}

func TestBookReservationNotBookableAppendsNothing(t *testing.T) {
	store := newMemoryEventStore()
	svc := NewSlotService(store, nil)

	if _, err := svc.MarkAvailable(context.Background(), "slot-1", "stu1", "STUDENT"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	_, err := svc.BookReservation(context.Background(), "slot-1", "stu1", "ac1", "ins1", "bk1")
	if !errors.Is(err, apperrors.New(apperrors.CodeSlotNotBookable, "")) {
		t.Fatalf("err = %v, want SLOT_NOT_BOOKABLE", err)
	}

	seq, _ := store.GetLatestSeq(context.Background(), "slot-1")
	if seq != 1 {
		t.Fatalf("latest seq = %d, want 1 (no partial append)", seq)
	}
}

func TestCancelBookingUnknownIDFails(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	if _, err := svc.MarkAvailable(context.Background(), "slot-1", "stu1", "STUDENT"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	_, err := svc.CancelBooking(context.Background(), "slot-1", "ghost")
	if !errors.Is(err, apperrors.New(apperrors.CodeBookingNotFound, "")) {
		t.Fatalf("err = %v, want BOOKING_NOT_FOUND", err)
	}
}

func TestGetSlotEmptyReturnsNotFound(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	_, err := svc.GetSlot(context.Background(), "slot-empty")
	if !errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestSlotCommandsRequireSlotID(t *testing.T) {
	svc := NewSlotService(newMemoryEventStore(), nil)

	_, err := svc.MarkAvailable(context.Background(), "  ", "stu1", "STUDENT")
	if !errors.Is(err, apperrors.New(apperrors.CodeSlotIDRequired, "")) {
		t.Fatalf("err = %v, want SLOT_ID_REQUIRED", err)
	}
}
