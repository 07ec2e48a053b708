package model

import (
	"fmt"
	"time"
)

// Action is the fixed vocabulary of things the pipeline does at each stage
// of handling a ticket.
type Action string

const (
	ActionValidate      Action = "validate"
	ActionClassify      Action = "classify"
	ActionGatherContext Action = "gather_context"
	ActionEscalate      Action = "escalate"
	ActionAutoRespond   Action = "auto_respond"
	ActionGenerate      Action = "generate"
	ActionApprove       Action = "approve"
	ActionSkip          Action = "skip"
)

// Valid reports whether a is in the action vocabulary.
func (a Action) Valid() bool {
	switch a {
	case ActionValidate, ActionClassify, ActionGatherContext, ActionEscalate,
		ActionAutoRespond, ActionGenerate, ActionApprove, ActionSkip:
		return true
	}
	return false
}

// DecisionStep is one node in a ticket's reasoning trace. Confidence zero is
// a valid sentinel meaning "not applicable", used for skipped steps.
type DecisionStep struct {
	Step       string    `json:"step"`
	Action     Action    `json:"action"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidateTrace checks a step sequence: known actions, confidences in [0,1],
// and monotonically non-decreasing timestamps (array order is display order).
func ValidateTrace(steps []DecisionStep) error {
	for i, s := range steps {
		if !s.Action.Valid() {
			return fmt.Errorf("model: trace step %d: unknown action %q", i, s.Action)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("model: trace step %d: confidence %v outside [0,1]", i, s.Confidence)
		}
		if i > 0 && s.Timestamp.Before(steps[i-1].Timestamp) {
			return fmt.Errorf("model: trace step %d: timestamp regresses", i)
		}
	}
	return nil
}
