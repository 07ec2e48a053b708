// Package trace builds and presents the per-ticket decision trace: the
// ordered reasoning sequence explaining why the pipeline approved, resolved,
// or escalated a ticket.
package trace

import (
	"fmt"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
)

// stepSpacing separates synthesized step timestamps so that display order
// equals chronological order.
const stepSpacing = 2 * time.Second

// defaultEscalationReason is used when an escalated ticket carries no reason.
const defaultEscalationReason = "Escalated for human review"

// Synthesize deterministically derives a fallback trace from a ticket
// snapshot. Step actions and reasoning depend only on the ticket's fields;
// timestamps are offset backward from now so the sequence reads as having
// just happened.
//
// The shape is fixed: validate, classify, gather_context, a decision step
// (escalate or auto_respond), a generate step for auto-resolved tickets, and
// a final validation step (approve for auto-resolved, skip otherwise).
func Synthesize(now time.Time, t model.Ticket) []model.DecisionStep {
	status := t.Status()

	steps := []model.DecisionStep{
		{
			Step:       "Input Validation",
			Action:     model.ActionValidate,
			Reasoning:  "Ticket content passed input validation checks",
			Confidence: 1.0,
		},
		{
			Step:       "Classification",
			Action:     model.ActionClassify,
			Reasoning:  fmt.Sprintf("Classified as %s priority with %s sentiment", t.Priority, t.Sentiment),
			Confidence: t.Confidence,
		},
		{
			Step:       "Context Gathering",
			Action:     model.ActionGatherContext,
			Reasoning:  "Retrieved related knowledge base articles and prior tickets",
			Confidence: 0.92,
		},
	}

	if status == model.StatusEscalated {
		reason, ok := t.EscalationReason()
		if !ok || reason == "" {
			reason = defaultEscalationReason
		}
		steps = append(steps, model.DecisionStep{
			Step:       "Decision",
			Action:     model.ActionEscalate,
			Reasoning:  reason,
			Confidence: t.Confidence,
		})
	} else {
		steps = append(steps, model.DecisionStep{
			Step:       "Decision",
			Action:     model.ActionAutoRespond,
			Reasoning:  "Confidence above the automated response threshold",
			Confidence: t.Confidence,
		})
	}

	if status == model.StatusAutoResolved {
		steps = append(steps,
			model.DecisionStep{
				Step:       "Response Generation",
				Action:     model.ActionGenerate,
				Reasoning:  "Drafted a response from the gathered context",
				Confidence: t.Confidence,
			},
			model.DecisionStep{
				Step:       "Final Validation",
				Action:     model.ActionApprove,
				Reasoning:  "Generated response passed output guardrails",
				Confidence: 0.95,
			},
		)
	} else {
		steps = append(steps, model.DecisionStep{
			Step:       "Final Validation",
			Action:     model.ActionSkip,
			Reasoning:  "No generated response to validate",
			Confidence: 0,
		})
	}

	// Backdate each step so the sequence ends just before now and ascends
	// in display order.
	count := len(steps)
	for i := range steps {
		steps[i].Timestamp = now.Add(-time.Duration(count-i) * stepSpacing)
	}
	return steps
}
