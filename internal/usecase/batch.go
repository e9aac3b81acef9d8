package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"WikiMover/internal/domain"
)

// ProgressFunc is called once per finished candidate with the number done so far.
type ProgressFunc func(done, total int, res domain.TransferResult)

// RunBatch transfers candidates with at most Policy.Concurrency in flight.
// Cancelling ctx stops new candidates from starting; started ones finish.
// An authorization failure stops the batch and is returned.
func (p *Pipeline) RunBatch(ctx context.Context, candidates []*domain.Candidate, progress ProgressFunc) (domain.Report, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	report := domain.Report{RunID: runID, Total: len(candidates)}

	logger.Info("batch started", "candidates", len(candidates), "concurrency", p.policy.Concurrency, "dry_run", p.policy.DryRun)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.policy.Concurrency)

	for _, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := p.Transfer(context.WithoutCancel(gctx), c)
			p.saveOutcome(context.WithoutCancel(gctx), runID, res)

			mu.Lock()
			report.Attempted++
			report.Results = append(report.Results, res)
			if res.Failed() {
				report.Failed = append(report.Failed, res.SourceTitle)
			}
			if progress != nil {
				progress(report.Attempted, report.Total, res)
			}
			mu.Unlock()

			if errors.Is(res.Err, domain.ErrUnauthorized) {
				return fmt.Errorf("transfer %s: %w", res.SourceTitle, res.Err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	logger.Info("batch finished", "attempted", report.Attempted, "failed", len(report.Failed))
	return report, err
}

func (p *Pipeline) saveOutcome(ctx context.Context, runID string, res domain.TransferResult) {
	if p.log == nil {
		return
	}
	if err := p.log.SaveOutcome(ctx, runID, res); err != nil {
		p.logger.Warn("save transfer outcome", "title", res.SourceTitle, "err", err)
	}
}
