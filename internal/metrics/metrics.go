// Package metrics derives dashboard KPIs from a ticket collection.
package metrics

import (
	"math"

	"github.com/clearqueue/clearqueue/internal/model"
)

// Dashboard is the derived KPI set. It is never stored independently: every
// value is recomputed from the current ticket collection on each change.
type Dashboard struct {
	TotalTickets     int     `json:"total_tickets"`
	PendingCount     int     `json:"pending_count"`
	AutoResolvedRate int     `json:"auto_resolved_rate"`
	EscalationRate   int     `json:"escalation_rate"`
	AvgConfidence    float64 `json:"avg_confidence"`
}

// Aggregate maps a ticket collection to its KPIs. It is pure, total, and
// order-independent. An empty collection yields all zeros; no division by
// zero ever occurs.
func Aggregate(tickets []model.Ticket) Dashboard {
	total := len(tickets)
	if total == 0 {
		return Dashboard{}
	}

	var resolved, escalated, pending int
	var confidenceSum float64
	for _, t := range tickets {
		switch t.Status() {
		case model.StatusAutoResolved:
			resolved++
		case model.StatusEscalated:
			escalated++
		case model.StatusPending:
			pending++
		}
		confidenceSum += t.Confidence
	}

	return Dashboard{
		TotalTickets:     total,
		PendingCount:     pending,
		AutoResolvedRate: percentage(resolved, total),
		EscalationRate:   percentage(escalated, total),
		AvgConfidence:    confidenceSum / float64(total),
	}
}

// percentage rounds count/total to the nearest integer percent.
func percentage(count, total int) int {
	return int(math.Round(100 * float64(count) / float64(total)))
}
