package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/storage"
	"github.com/rs/zerolog"
)

// Outcome classifies a delete attempt.
type Outcome int

const (
	// Skipped means there was nothing to delete.
	Skipped Outcome = iota
	Deleted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is the value form of a delete attempt. Err is set only for Failed
// and has already been logged by the executor.
type Result struct {
	Outcome  Outcome
	Path     string
	Err      error
	Duration time.Duration
}

const defaultDeleteTimeout = 10 * time.Second

// Executor deletes storage objects idempotently and never fails its caller.
type Executor struct {
	store   storage.ObjectStorage
	timeout time.Duration
	log     zerolog.Logger
}

func NewExecutor(store storage.ObjectStorage, timeout time.Duration, log zerolog.Logger) *Executor {
	if timeout <= 0 {
		timeout = defaultDeleteTimeout
	}
	return &Executor{store: store, timeout: timeout, log: log}
}

// DeleteIfPresent makes sure path no longer exists. An empty path is a no-op.
// Absent objects count as deleted; every other failure is logged as a warning
// and returned in the Result only.
func (e *Executor) DeleteIfPresent(ctx context.Context, path string) (res Result) {
	res.Path = path
	if path == "" {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("storage backend panic: %v", r)
			e.log.Warn().Str("path", path).Err(res.Err).Msg("Failed to delete storage file (skipping)")
		}
		res.Duration = time.Since(start)
	}()

	if err := e.store.DeleteObject(ctx, path); err != nil {
		res.Outcome = Failed
		res.Err = err
		e.log.Warn().Str("path", path).Err(err).Msg("Failed to delete storage file (skipping)")
		return res
	}

	res.Outcome = Deleted
	e.log.Info().Str("path", path).Msg("Deleted storage file")
	return res
}
