package cleanup

import (
	"context"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
	"github.com/andresuchdata/permitvault/backend-go/internal/metrics"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/rs/zerolog"
)

// Target binds a deletion reaction to one (collection, asset field) pair.
type Target struct {
	Name       string
	Collection string
	AssetField string
}

// PathField is the sibling field holding the explicit storage path.
func (t Target) PathField() string {
	return t.AssetField + "Path"
}

// Handler reacts to the deletion of one document.
type Handler func(ctx context.Context, ev domain.DeletionEvent) Result

// ResolveObjectPath picks the storage path for a deleted record. The explicit
// path field wins; the asset URL is only parsed when it is empty.
func ResolveObjectPath(t Target, rec domain.Record) (string, bool) {
	if p, ok := rec.String(t.PathField()); ok && p != "" {
		return p, true
	}
	return StoragePathFromURL(rec[t.AssetField])
}

// Cleaner removes the binary asset of deleted records.
type Cleaner struct {
	exec    *Executor
	orphans repository.OrphanRepository
	metrics metrics.Observer
	log     zerolog.Logger
}

func NewCleaner(exec *Executor, orphans repository.OrphanRepository, obs metrics.Observer, log zerolog.Logger) *Cleaner {
	if orphans == nil {
		orphans = repository.NoopOrphanRepository{}
	}
	if obs == nil {
		obs = metrics.Nop{}
	}
	return &Cleaner{exec: exec, orphans: orphans, metrics: obs, log: log}
}

// MakeHandler returns the reaction for t. Handlers built for different
// targets share nothing but the executor.
func (c *Cleaner) MakeHandler(t Target) Handler {
	return func(ctx context.Context, ev domain.DeletionEvent) Result {
		if ev.Collection != "" && ev.Collection != t.Collection {
			c.log.Debug().
				Str("target", t.Name).
				Str("collection", ev.Collection).
				Msg("deletion event for another collection, ignoring")
			return Result{}
		}
		return c.Handle(ctx, t, ev)
	}
}

// Handle performs at most one storage delete for ev and never fails.
func (c *Cleaner) Handle(ctx context.Context, t Target, ev domain.DeletionEvent) Result {
	path, ok := ResolveObjectPath(t, ev.OldValue)
	if !ok {
		c.metrics.RecordCleanup(t.Collection, Skipped.String(), 0)
		return Result{}
	}

	res := c.exec.DeleteIfPresent(ctx, path)
	c.metrics.RecordCleanup(t.Collection, res.Outcome.String(), res.Duration)

	if res.Outcome == Failed {
		orphan := &domain.OrphanedObject{
			Collection: t.Collection,
			DocumentID: ev.DocumentID,
			ObjectPath: path,
			LastError:  res.Err.Error(),
		}
		if err := c.orphans.RecordFailure(ctx, orphan); err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("could not record orphaned object")
		}
	}
	return res
}
