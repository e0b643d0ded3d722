package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStoreWithOutbox(t, false)
}

func openTestStoreWithOutbox(t *testing.T, outboxEnabled bool) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "booking.sqlite")
	store, err := Open(path, WithOutboxEnabled(outboxEnabled))
	if err != nil {
		t.Fatalf("open booking store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close booking store: %v", err)
		}
	})
	return store
}

func testSlotFact(streamID string, factType event.Type, participantID string, bookingID string) event.Event {
	return event.Event{
		StreamID:        streamID,
		Timestamp:       time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		Type:            factType,
		SlotID:          streamID,
		ParticipantID:   participantID,
		ParticipantType: event.ParticipantTypeStudent,
		BookingID:       bookingID,
	}
}
