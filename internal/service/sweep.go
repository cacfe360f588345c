package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusfix/dispatch/internal/models"
)

const defaultLockTTL = 5 * time.Minute

type SweepResult struct {
	Kind       models.SweepKind `json:"kind"`
	RunID      string           `json:"run_id,omitempty"`
	RanAt      time.Time        `json:"ran_at"`
	Skipped    bool             `json:"skipped,omitempty"`
	Actions    []string         `json:"actions"`
	Batches    []BatchSummary   `json:"batches,omitempty"`
	WorkOrders []models.Report  `json:"work_orders,omitempty"`
}

func (r *SweepResult) logf(format string, args ...any) {
	r.Actions = append(r.Actions, fmt.Sprintf(format, args...))
}

// runSweep takes the sweep lock, records the run and hands a result to fn.
// Only an error returned by fn, which means the store failed, fails the run.
func (e *Engine) runSweep(ctx context.Context, kind models.SweepKind, fn func(ctx context.Context, res *SweepResult) error) (SweepResult, error) {
	res := SweepResult{Kind: kind, RanAt: e.now(), Actions: []string{}}
	log := e.Logger.With().Str("sweep", string(kind)).Logger()

	if e.Locker != nil {
		ttl := e.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		release, ok, err := e.Locker.TryLock(ctx, "sweep:"+string(kind), ttl)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("sweep lock unavailable, running unlocked")
		case !ok:
			res.Skipped = true
			res.logf("%s sweep already running elsewhere; skipped", kind)
			log.Info().Msg("sweep skipped, lock held")
			return res, nil
		default:
			defer release()
		}
	}

	runID, err := e.Store.CreateRun(ctx, kind, res.RanAt)
	if err != nil {
		return res, err
	}
	res.RunID = runID

	start := time.Now()
	runErr := fn(ctx, &res)
	status := "completed"
	if runErr != nil {
		status = "failed"
		res.logf("sweep aborted: %v", runErr)
	}

	summary, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("encode sweep summary")
		summary = nil
	}
	if err := e.Store.FinishRun(ctx, runID, status, summary, e.now()); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("record sweep run")
	}

	log.Info().
		Str("run_id", runID).
		Str("status", status).
		Int("actions", len(res.Actions)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("sweep finished")
	return res, runErr
}

func (e *Engine) LatestRun(ctx context.Context, kind models.SweepKind) (models.SweepRun, error) {
	return e.Store.GetLatestRun(ctx, kind)
}
