// Package command defines the command envelope and decision types shared by
// the slot aggregate and the participant-slot entity.
package command

import "encoding/json"

// Type identifies the kind of a command.
type Type string

// Command is the envelope deciders receive. PayloadJSON carries the
// type-specific fields so transport layers stay decoupled from domain types.
type Command struct {
	// Type identifies the kind of command.
	Type Type
	// StreamID addresses the entity the command targets: the slot id for
	// slot commands, the derived participant-slot key for participant
	// commands.
	StreamID string
	// PayloadJSON holds command-specific data as JSON.
	PayloadJSON []byte
}

// New builds a command with a marshaled payload. Marshal errors surface as
// decider rejections when the payload is later read, so New stays infallible
// for the struct payloads used across this module.
func New(t Type, streamID string, payload any) Command {
	payloadJSON, _ := json.Marshal(payload)
	return Command{Type: t, StreamID: streamID, PayloadJSON: payloadJSON}
}
