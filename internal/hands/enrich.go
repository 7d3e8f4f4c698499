package hands

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/timeutil"
)

// enrichTimeout bounds each individual capability call. An expired call
// resolves to empty, never to an error: enrichment must not block or
// break the base notification.
const enrichTimeout = 3 * time.Second

// enrich runs up to three independent capability calls concurrently and
// returns whatever finished in time, in a stable order.
func (h *Hands) enrich(ctx context.Context, user core.User, plan core.Plan) []string {
	type task func(context.Context) (string, error)

	var tasks []task
	switch plan.ActionType {
	case core.ActionPrepareBriefing:
		tasks = append(tasks, func(cctx context.Context) (string, error) {
			profile, err := h.db.GetProfile(cctx, user.Email)
			if err != nil {
				return "", err
			}
			return h.caps.BriefingText(cctx, user, todaysSchedules(profile, timeutil.Today(h.clock)))
		})
		fallthrough
	case core.ActionRecommendResources:
		topic, _ := plan.ActionPayload["topic"].(string)
		tasks = append(tasks, func(cctx context.Context) (string, error) {
			return h.caps.RecommendResources(cctx, user, topic)
		})
	default:
		tasks = append(tasks, func(cctx context.Context) (string, error) {
			events := h.obs.RecentEvents(cctx, user.Email, 7*24)
			return h.caps.HabitInsight(cctx, user, events)
		})
	}

	results := make([]string, len(tasks))
	g := new(errgroup.Group)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			out := h.withTimeout(ctx, t)
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, r := range results {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// withTimeout runs one capability call under its own deadline and folds
// both errors and expiry into the empty string. The underlying call is
// abandoned, not cancelled beyond its context.
func (h *Hands) withTimeout(ctx context.Context, fn func(context.Context) (string, error)) string {
	cctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		text, err := fn(cctx)
		ch <- outcome{text, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			h.log.Debug("enrichment call failed", zap.Error(o.err))
			return ""
		}
		return o.text
	case <-cctx.Done():
		return ""
	}
}
