package slot

import "github.com/aeroclub/slotbooking/internal/booking/domain/event"

// Participant identifies one party of a booking. Identity is the (ID, Type)
// pair; ids are assumed unique per type in practice.
type Participant struct {
	ID   string
	Type event.ParticipantType
}

// Booking is one participant's committed share of a reservation. A full
// reservation is the set of rows sharing a BookingID, one per participant
// type, mirroring the per-participant facts it is folded from.
type Booking struct {
	BookingID   string
	Participant Participant
	Canceled    bool
}

// Timeslot captures slot aggregate state derived from slot facts.
//
// Initialized records whether any fact has been folded; commands other than
// the initializing mark-available are rejected until it is set.
type Timeslot struct {
	SlotID      string
	Initialized bool
	// Available holds participants currently offering this slot.
	Available map[Participant]struct{}
	// Bookings is the ordered booking history, including canceled rows.
	// Canceled rows stay so a booking id is never reused within a slot.
	Bookings []Booking
}

// NewTimeslot returns the empty state for a slot.
func NewTimeslot(slotID string) Timeslot {
	return Timeslot{
		SlotID:    slotID,
		Available: make(map[Participant]struct{}),
	}
}

// IsAvailable reports whether the participant currently offers this slot.
func (t Timeslot) IsAvailable(p Participant) bool {
	_, ok := t.Available[p]
	return ok
}

// IsBookable reports whether all three participants are simultaneously
// available and none is already part of an active booking.
func (t Timeslot) IsBookable(studentID, aircraftID, instructorID string) bool {
	participants := []Participant{
		{ID: studentID, Type: event.ParticipantTypeStudent},
		{ID: aircraftID, Type: event.ParticipantTypeAircraft},
		{ID: instructorID, Type: event.ParticipantTypeInstructor},
	}
	for _, p := range participants {
		if !t.IsAvailable(p) {
			return false
		}
		if t.hasActiveBooking(p) {
			return false
		}
	}
	return true
}

// FindBooking returns the active booking rows for a booking id, one per
// committed participant.
func (t Timeslot) FindBooking(bookingID string) []Booking {
	var rows []Booking
	for _, b := range t.Bookings {
		if b.BookingID == bookingID && !b.Canceled {
			rows = append(rows, b)
		}
	}
	return rows
}

// HasBookingID reports whether a booking id appears anywhere in the slot's
// booking history, canceled rows included.
func (t Timeslot) HasBookingID(bookingID string) bool {
	for _, b := range t.Bookings {
		if b.BookingID == bookingID {
			return true
		}
	}
	return false
}

func (t Timeslot) hasActiveBooking(p Participant) bool {
	for _, b := range t.Bookings {
		if b.Participant == p && !b.Canceled {
			return true
		}
	}
	return false
}
