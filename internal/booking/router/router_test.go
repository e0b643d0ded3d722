package router

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aeroclub/slotbooking/internal/booking/domain/command"
	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/domain/participantslot"
)

type recordingExecutor struct {
	commands []command.Command
	err      error
}

func (r *recordingExecutor) Execute(_ context.Context, cmd command.Command) error {
	if r.err != nil {
		return r.err
	}
	r.commands = append(r.commands, cmd)
	return nil
}

func slotFact(factType event.Type, bookingID string) event.Event {
	return event.Event{
		StreamID:        "slot-1",
		Seq:             1,
		Timestamp:       time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		Type:            factType,
		SlotID:          "slot-1",
		ParticipantID:   "stu1",
		ParticipantType: event.ParticipantTypeStudent,
		BookingID:       bookingID,
	}
}

func TestRouteTranslatesEachSlotFactKind(t *testing.T) {
	cases := []struct {
		factType  event.Type
		bookingID string
		want      command.Type
	}{
		{event.TypeParticipantMarkedAvailable, "", participantslot.CommandTypeMarkAvailable},
		{event.TypeParticipantUnmarkedAvailable, "", participantslot.CommandTypeUnmarkAvailable},
		{event.TypeParticipantBooked, "bk1", participantslot.CommandTypeBook},
		{event.TypeParticipantCanceled, "bk1", participantslot.CommandTypeCancel},
	}
	for _, tc := range cases {
		executor := &recordingExecutor{}
		r := New(executor, nil)

		if err := r.Route(context.Background(), slotFact(tc.factType, tc.bookingID)); err != nil {
			t.Fatalf("route %s: %v", tc.factType, err)
		}
		if len(executor.commands) != 1 {
			t.Fatalf("commands = %d, want 1", len(executor.commands))
		}
		cmd := executor.commands[0]
		if cmd.Type != tc.want {
			t.Fatalf("command type = %s, want %s", cmd.Type, tc.want)
		}
		if cmd.StreamID != "slot-1-stu1" {
			t.Fatalf("stream id = %s, want slot-1-stu1", cmd.StreamID)
		}

		var payload participantslot.Payload
		if err := json.Unmarshal(cmd.PayloadJSON, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.SlotID != "slot-1" || payload.ParticipantID != "stu1" {
			t.Fatalf("payload = %+v, want slot-1/stu1", payload)
		}
		if payload.BookingID != tc.bookingID {
			t.Fatalf("booking id = %s, want %s", payload.BookingID, tc.bookingID)
		}
	}
}

func TestRouteRejectsNonSlotFacts(t *testing.T) {
	r := New(&recordingExecutor{}, nil)

	err := r.Route(context.Background(), slotFact(event.TypeSlotBooked, "bk1"))
	if err == nil {
		t.Fatal("expected unroutable event to fail")
	}
}
