// Package participantslot models the per-participant view entity fed by the
// router: one fact stream per (slot, participant) pair, keyed by DeriveKey.
package participantslot

// DeriveKey builds the stream id for a participant's involvement in a slot.
// The participant type is deliberately excluded: a participant holds one
// stream per slot regardless of the role it plays in it.
func DeriveKey(slotID, participantID string) string {
	return slotID + "-" + participantID
}
