// Package event defines the immutable facts recorded in the booking journal.
//
// Facts are the source of truth: slot and participant-slot state is never
// stored directly, it is rebuilt by folding a stream's facts in sequence
// order. Each stream is identified by a StreamID: the slot id for slot
// facts, the derived participant-slot key for participant facts.
package event

import (
	"strings"
	"time"
)

// Type identifies the kind of a booking fact.
type Type string

// Slot facts, appended by the slot aggregate.
const (
	// TypeParticipantMarkedAvailable records a participant offering this slot.
	TypeParticipantMarkedAvailable Type = "slot.participant_marked_available"
	// TypeParticipantUnmarkedAvailable records a participant withdrawing availability.
	TypeParticipantUnmarkedAvailable Type = "slot.participant_unmarked_available"
	// TypeParticipantBooked records one participant committed into a booking.
	TypeParticipantBooked Type = "slot.participant_booked"
	// TypeParticipantCanceled records one participant released from a booking.
	TypeParticipantCanceled Type = "slot.participant_canceled"
)

// Participant-slot facts, appended by the participant-slot entity after the
// router translates the slot fact into a command against the derived key.
const (
	// TypeSlotMarkedAvailable mirrors availability onto one participant's stream.
	TypeSlotMarkedAvailable Type = "participantslot.marked_available"
	// TypeSlotUnmarkedAvailable mirrors withdrawal onto one participant's stream.
	TypeSlotUnmarkedAvailable Type = "participantslot.unmarked_available"
	// TypeSlotBooked mirrors a booking onto one participant's stream.
	TypeSlotBooked Type = "participantslot.booked"
	// TypeSlotCanceled mirrors a cancellation onto one participant's stream.
	TypeSlotCanceled Type = "participantslot.canceled"
)

// ParticipantType classifies the three roles a booking requires.
type ParticipantType string

const (
	ParticipantTypeStudent    ParticipantType = "STUDENT"
	ParticipantTypeAircraft   ParticipantType = "AIRCRAFT"
	ParticipantTypeInstructor ParticipantType = "INSTRUCTOR"
)

// ParticipantTypes returns all valid participant types in booking order.
func ParticipantTypes() []ParticipantType {
	return []ParticipantType{ParticipantTypeStudent, ParticipantTypeAircraft, ParticipantTypeInstructor}
}

// IsValid reports whether the participant type is one of the three roles.
func (p ParticipantType) IsValid() bool {
	switch p {
	case ParticipantTypeStudent, ParticipantTypeAircraft, ParticipantTypeInstructor:
		return true
	}
	return false
}

// ParseParticipantType normalizes a label into a ParticipantType.
func ParseParticipantType(label string) (ParticipantType, bool) {
	p := ParticipantType(strings.ToUpper(strings.TrimSpace(label)))
	if !p.IsValid() {
		return "", false
	}
	return p, true
}

// Event is an immutable journal entry. All four slot fact kinds and all four
// participant fact kinds share this envelope; BookingID is empty for
// availability facts.
type Event struct {
	// StreamID identifies the fact stream this event belongs to.
	StreamID string
	// Seq is the event sequence number within the stream (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Timestamp is when the fact was recorded.
	Timestamp time.Time
	// Type identifies the kind of fact.
	Type Type
	// SlotID is the slot the fact concerns. Equals StreamID for slot facts.
	SlotID string
	// ParticipantID is the participant the fact concerns.
	ParticipantID string
	// ParticipantType classifies the participant.
	ParticipantType ParticipantType
	// BookingID groups the facts of one booking. Empty for availability facts.
	BookingID string
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	switch t {
	case TypeParticipantMarkedAvailable,
		TypeParticipantUnmarkedAvailable,
		TypeParticipantBooked,
		TypeParticipantCanceled,
		TypeSlotMarkedAvailable,
		TypeSlotUnmarkedAvailable,
		TypeSlotBooked,
		TypeSlotCanceled:
		return true
	}
	return false
}

// IsSlotFact reports whether the type belongs to a slot aggregate stream.
func (t Type) IsSlotFact() bool {
	return strings.HasPrefix(string(t), "slot.")
}

// IsParticipantFact reports whether the type belongs to a participant-slot stream.
func (t Type) IsParticipantFact() bool {
	return strings.HasPrefix(string(t), "participantslot.")
}

// Domain returns the domain prefix of the event type (e.g., "slot").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
