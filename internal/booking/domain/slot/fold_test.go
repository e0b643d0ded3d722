package slot

import (
	"testing"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
)

func slotFact(t event.Type, participantID string, participantType event.ParticipantType, bookingID string) event.Event {
	return event.Event{
		StreamID:        "slot-1",
		Timestamp:       time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		Type:            t,
		SlotID:          "slot-1",
		ParticipantID:   participantID,
		ParticipantType: participantType,
		BookingID:       bookingID,
	}
}

func TestFoldMarkedAvailableAddsParticipant(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))

	if !state.Initialized {
		t.Fatal("expected state to be initialized")
	}
	if !state.IsAvailable(Participant{ID: "stu1", Type: event.ParticipantTypeStudent}) {
		t.Fatal("expected stu1 to be available")
	}
}

func TestFoldMarkedAvailableKeepsSetSemantics(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))

	if got := len(state.Available); got != 1 {
		t.Fatalf("available cardinality = %d, want 1", got)
	}
}

func TestFoldUnmarkedAvailableRemovesParticipant(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "ac1", event.ParticipantTypeAircraft, ""))
	state = Fold(state, slotFact(event.TypeParticipantUnmarkedAvailable, "ac1", event.ParticipantTypeAircraft, ""))

	if state.IsAvailable(Participant{ID: "ac1", Type: event.ParticipantTypeAircraft}) {
		t.Fatal("expected ac1 to be unavailable")
	}
}

func TestFoldUnmarkedAvailableAbsentParticipantIsNoop(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))
	state = Fold(state, slotFact(event.TypeParticipantUnmarkedAvailable, "ins1", event.ParticipantTypeInstructor, ""))

	if got := len(state.Available); got != 1 {
		t.Fatalf("available cardinality = %d, want 1", got)
	}
}

func TestFoldBookedConsumesAvailability(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))
	state = Fold(state, slotFact(event.TypeParticipantBooked, "stu1", event.ParticipantTypeStudent, "bk1"))

	if state.IsAvailable(Participant{ID: "stu1", Type: event.ParticipantTypeStudent}) {
		t.Fatal("expected booking to consume availability")
	}
	rows := state.FindBooking("bk1")
	if len(rows) != 1 {
		t.Fatalf("active booking rows = %d, want 1", len(rows))
	}
	if rows[0].Participant.ID != "stu1" {
		t.Fatalf("booked participant = %s, want stu1", rows[0].Participant.ID)
	}
}

func TestFoldCanceledDoesNotRestoreAvailability(t *testing.T) {
	state := NewTimeslot("slot-1")
	state = Fold(state, slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""))
	state = Fold(state, slotFact(event.TypeParticipantBooked, "stu1", event.ParticipantTypeStudent, "bk1"))
	state = Fold(state, slotFact(event.TypeParticipantCanceled, "stu1", event.ParticipantTypeStudent, "bk1"))

	if len(state.FindBooking("bk1")) != 0 {
		t.Fatal("expected no active rows after cancellation")
	}
	if !state.HasBookingID("bk1") {
		t.Fatal("expected canceled booking to stay in history")
	}
	if state.IsAvailable(Participant{ID: "stu1", Type: event.ParticipantTypeStudent}) {
		t.Fatal("cancellation must not restore availability")
	}
}

func TestReplayRebuildsStateFromEmpty(t *testing.T) {
	events := []event.Event{
		slotFact(event.TypeParticipantMarkedAvailable, "stu1", event.ParticipantTypeStudent, ""),
		slotFact(event.TypeParticipantMarkedAvailable, "ac1", event.ParticipantTypeAircraft, ""),
		slotFact(event.TypeParticipantMarkedAvailable, "ins1", event.ParticipantTypeInstructor, ""),
		slotFact(event.TypeParticipantBooked, "stu1", event.ParticipantTypeStudent, "bk1"),
		slotFact(event.TypeParticipantBooked, "ac1", event.ParticipantTypeAircraft, "bk1"),
		slotFact(event.TypeParticipantBooked, "ins1", event.ParticipantTypeInstructor, "bk1"),
	}
	state := Replay("slot-1", events)

	if state.IsBookable("stu1", "ac1", "ins1") {
		t.Fatal("expected slot to be unbookable after booking")
	}
	if got := len(state.FindBooking("bk1")); got != 3 {
		t.Fatalf("active booking rows = %d, want 3", got)
	}
	if got := len(state.Available); got != 0 {
		t.Fatalf("available cardinality = %d, want 0", got)
	}
}
