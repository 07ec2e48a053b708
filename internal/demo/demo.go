// Package demo holds the fixed synthetic ticket dataset. The store falls
// back to it when the listing API is unreachable (under the fallback policy)
// and the demo backend seeds its database from it, so the dashboard shows the
// same collection either way.
package demo

import (
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
)

// Tickets returns the demo collection: six tickets, three auto-resolved, one
// escalated, one pending, one in progress. Ticket content is fixed; CreatedAt
// is derived from now so the collection always looks recent.
func Tickets(now time.Time) []model.Ticket {
	return []model.Ticket{
		{
			ID:         "TCK-1001",
			Priority:   model.PriorityLow,
			Sentiment:  model.SentimentNeutral,
			Confidence: 0.94,
			CreatedAt:  now.Add(-26 * time.Minute),
			Outcome: model.AutoResolved{
				Response: "You can reset your password from Settings > Security. A reset link has been sent to your registered email address.",
			},
		},
		{
			ID:         "TCK-1002",
			Priority:   model.PriorityMedium,
			Sentiment:  model.SentimentNegative,
			Confidence: 0.45,
			CreatedAt:  now.Add(-2 * time.Hour),
			Outcome: model.Escalated{
				Reason: "Financial matter requires human verification",
			},
		},
		{
			ID:         "TCK-1003",
			Priority:   model.PriorityLow,
			Sentiment:  model.SentimentPositive,
			Confidence: 0.91,
			CreatedAt:  now.Add(-3 * time.Hour),
			Outcome: model.AutoResolved{
				Response: "Data export is available on the Team plan and above. From the dashboard, open Reports and choose Export as CSV.",
			},
		},
		{
			ID:         "TCK-1004",
			Priority:   model.PriorityHigh,
			Sentiment:  model.SentimentNegative,
			Confidence: 0.72,
			CreatedAt:  now.Add(-41 * time.Minute),
			Outcome:    model.InProgress{},
		},
		{
			ID:         "TCK-1005",
			Priority:   model.PriorityMedium,
			Sentiment:  model.SentimentNeutral,
			Confidence: 0,
			CreatedAt:  now.Add(-9 * time.Minute),
			Outcome:    model.Pending{},
		},
		{
			ID:         "TCK-1006",
			Priority:   model.PriorityLow,
			Sentiment:  model.SentimentNeutral,
			Confidence: 0.88,
			CreatedAt:  now.Add(-5 * time.Hour),
			Outcome: model.AutoResolved{
				Response: "Invoices older than twelve months are archived. Open Billing > History and switch the range selector to All time to view them.",
			},
		},
	}
}

// Filtered returns the demo collection scoped to f.
func Filtered(now time.Time, f model.Filter) []model.Ticket {
	all := Tickets(now)
	out := all[:0]
	for _, t := range all {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
