package cleanup

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
	"github.com/andresuchdata/permitvault/backend-go/internal/metrics"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sweeper retries deletions recorded in the orphan ledger.
type Sweeper struct {
	exec        *Executor
	orphans     repository.OrphanRepository
	metrics     metrics.Observer
	concurrency int
	log         zerolog.Logger
}

func NewSweeper(exec *Executor, orphans repository.OrphanRepository, obs metrics.Observer, concurrency int, log zerolog.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Sweeper{exec: exec, orphans: orphans, metrics: obs, concurrency: concurrency, log: log}
}

// Sweep loads up to limit pending orphans and deletes them. Only a failure
// to read the ledger is returned; per-object failures are counted.
func (s *Sweeper) Sweep(ctx context.Context, limit int) (domain.SweepSummary, error) {
	pending, err := s.orphans.ListPending(ctx, limit)
	if err != nil {
		return domain.SweepSummary{}, fmt.Errorf("load pending orphans: %w", err)
	}
	return s.Process(ctx, pending), nil
}

// Process deletes an already loaded batch of orphans.
func (s *Sweeper) Process(ctx context.Context, pending []*domain.OrphanedObject) domain.SweepSummary {
	summary := domain.SweepSummary{Scanned: len(pending)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, orphan := range pending {
		g.Go(func() error {
			ok := s.sweepOne(gctx, orphan)
			mu.Lock()
			if ok {
				summary.Resolved++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.RecordSweep(summary.Resolved, summary.Failed)
	s.log.Info().
		Int("scanned", summary.Scanned).
		Int("resolved", summary.Resolved).
		Int("failed", summary.Failed).
		Msg("orphan sweep finished")
	return summary
}

func (s *Sweeper) sweepOne(ctx context.Context, orphan *domain.OrphanedObject) bool {
	res := s.exec.DeleteIfPresent(ctx, orphan.ObjectPath)
	if res.Outcome == Failed {
		orphan.LastError = res.Err.Error()
		if err := s.orphans.RecordFailure(ctx, orphan); err != nil {
			s.log.Warn().Err(err).Str("path", orphan.ObjectPath).Msg("could not update orphan")
		}
		return false
	}

	if err := s.orphans.MarkResolved(ctx, orphan.ID); err != nil {
		s.log.Warn().Err(err).Int64("id", orphan.ID).Msg("could not mark orphan resolved")
		return false
	}
	return true
}
