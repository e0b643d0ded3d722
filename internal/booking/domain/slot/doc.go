// Package slot implements the slot aggregate: the timeslot state folded from
// slot facts and the decider that validates availability and booking
// commands against it.
//
// Booking is the three-way commit at the heart of the module: a reservation
// requires one student, one aircraft, and one instructor to be jointly
// available, and either all three booked facts are emitted in one decision
// or none are.
package slot
