package policy

import (
	"context"
)

// RecomputeFeedbackWeights rebuilds the user's per-action-type weight
// table from logged feedback. Called immediately when feedback arrives;
// there is no batch delay. Actions with no feedback keep no row and
// score at the 1.0 default.
func (e *Engine) RecomputeFeedbackWeights(ctx context.Context, userEmail string) error {
	counts, err := e.db.FeedbackCounts(ctx, userEmail)
	if err != nil {
		return err
	}
	for action, c := range counts {
		pos, neg := c[0], c[1]
		total := pos + neg
		if total == 0 {
			continue
		}
		// 1.0 at an even split, 0.5 when everything was rejected,
		// 1.5 when everything helped.
		weight := 0.5 + float64(pos)/float64(total)
		if err := e.db.UpsertFeedbackWeight(ctx, userEmail, action, weight); err != nil {
			return err
		}
	}
	return nil
}
