// Package audit records operation outcomes. The core hands every outcome to
// a Log; this package provides the recorders the CLI can be configured with.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is one recorded operation.
type Outcome struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Operation string    `json:"operation" yaml:"operation"`
	Target    string    `json:"target" yaml:"target"`
	Attribute string    `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Success   bool      `json:"success" yaml:"success"`
}

// Log receives operation outcomes. attribute is empty when the operation
// has none.
type Log interface {
	Record(operation, target, attribute string, success bool) error
	Close() error
}

func newOutcome(sessionID, operation, target, attribute string, success bool) Outcome {
	return Outcome{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Operation: operation,
		Target:    target,
		Attribute: attribute,
		Success:   success,
	}
}

// Nop discards every outcome.
type Nop struct{}

func (Nop) Record(operation, target, attribute string, success bool) error { return nil }

func (Nop) Close() error { return nil }
