package trace

import (
	"reflect"
	"testing"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
)

func autoResolvedTicket() model.Ticket {
	return model.Ticket{
		ID:         "TCK-1",
		Priority:   model.PriorityLow,
		Sentiment:  model.SentimentNeutral,
		Confidence: 0.94,
		Outcome:    model.AutoResolved{Response: "done"},
	}
}

func escalatedTicket(reason string) model.Ticket {
	return model.Ticket{
		ID:         "TCK-2",
		Priority:   model.PriorityHigh,
		Sentiment:  model.SentimentNegative,
		Confidence: 0.45,
		Outcome:    model.Escalated{Reason: reason},
	}
}

func TestSynthesizeAutoResolvedShape(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	steps := Synthesize(now, autoResolvedTicket())

	wantActions := []model.Action{
		model.ActionValidate,
		model.ActionClassify,
		model.ActionGatherContext,
		model.ActionAutoRespond,
		model.ActionGenerate,
		model.ActionApprove,
	}
	if len(steps) != len(wantActions) {
		t.Fatalf("got %d steps, want %d", len(steps), len(wantActions))
	}
	for i, want := range wantActions {
		if steps[i].Action != want {
			t.Errorf("step %d: action %q, want %q", i, steps[i].Action, want)
		}
	}

	if steps[0].Confidence != 1.0 {
		t.Errorf("validate confidence = %v, want 1.0", steps[0].Confidence)
	}
	if steps[1].Confidence != 0.94 || steps[3].Confidence != 0.94 {
		t.Errorf("classify/decision confidence should mirror the ticket: %v, %v",
			steps[1].Confidence, steps[3].Confidence)
	}
	if steps[2].Confidence != 0.92 {
		t.Errorf("gather_context confidence = %v, want 0.92", steps[2].Confidence)
	}
	if steps[5].Confidence != 0.95 {
		t.Errorf("approve confidence = %v, want 0.95", steps[5].Confidence)
	}

	if err := model.ValidateTrace(steps); err != nil {
		t.Fatalf("synthesized trace fails validation: %v", err)
	}
	// Sequence ends one spacing before now.
	if got := steps[len(steps)-1].Timestamp; !got.Equal(now.Add(-stepSpacing)) {
		t.Errorf("last timestamp = %v, want %v", got, now.Add(-stepSpacing))
	}
}

func TestSynthesizeEscalatedShape(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	steps := Synthesize(now, escalatedTicket("Refund over approval limit"))

	wantActions := []model.Action{
		model.ActionValidate,
		model.ActionClassify,
		model.ActionGatherContext,
		model.ActionEscalate,
		model.ActionSkip,
	}
	if len(steps) != len(wantActions) {
		t.Fatalf("got %d steps, want %d", len(steps), len(wantActions))
	}
	for i, want := range wantActions {
		if steps[i].Action != want {
			t.Errorf("step %d: action %q, want %q", i, steps[i].Action, want)
		}
	}

	if steps[3].Reasoning != "Refund over approval limit" {
		t.Errorf("escalate reasoning = %q, want the ticket's reason", steps[3].Reasoning)
	}
	if steps[4].Confidence != 0 {
		t.Errorf("skip confidence = %v, want 0", steps[4].Confidence)
	}
	if err := model.ValidateTrace(steps); err != nil {
		t.Fatalf("synthesized trace fails validation: %v", err)
	}
}

func TestSynthesizeEscalatedWithoutReason(t *testing.T) {
	now := time.Now()
	steps := Synthesize(now, escalatedTicket(""))
	if steps[3].Reasoning != defaultEscalationReason {
		t.Errorf("escalate reasoning = %q, want default", steps[3].Reasoning)
	}
}

func TestSynthesizePendingSkipsGeneration(t *testing.T) {
	now := time.Now()
	steps := Synthesize(now, model.Ticket{
		ID:        "TCK-3",
		Priority:  model.PriorityMedium,
		Sentiment: model.SentimentNeutral,
		Outcome:   model.Pending{},
	})
	if len(steps) != 5 {
		t.Fatalf("got %d steps, want 5 (no generate step)", len(steps))
	}
	if steps[3].Action != model.ActionAutoRespond {
		t.Errorf("decision action = %q, want auto_respond", steps[3].Action)
	}
	if steps[4].Action != model.ActionSkip {
		t.Errorf("final action = %q, want skip", steps[4].Action)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	a := Synthesize(now, autoResolvedTicket())
	b := Synthesize(now, autoResolvedTicket())
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same input produced different traces")
	}
}
