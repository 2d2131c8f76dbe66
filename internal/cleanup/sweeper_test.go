package cleanup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func seedOrphans(t *testing.T, orphans *fakeOrphans, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, orphans.RecordFailure(context.Background(), &domain.OrphanedObject{
			Collection: "permits",
			ObjectPath: p,
			LastError:  "earlier failure",
		}))
	}
}

func TestSweepResolvesPendingOrphans(t *testing.T) {
	t.Parallel()

	store := newFakeStore("permits/a.jpg")
	orphans := newFakeOrphans()
	seedOrphans(t, orphans, "permits/a.jpg", "permits/already-gone.jpg")

	exec := cleanup.NewExecutor(store, time.Second, zerolog.Nop())
	sweeper := cleanup.NewSweeper(exec, orphans, nil, 2, zerolog.Nop())

	summary, err := sweeper.Sweep(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, domain.SweepSummary{Scanned: 2, Resolved: 2}, summary)
	require.False(t, store.Has("permits/a.jpg"))

	for _, p := range []string{"permits/a.jpg", "permits/already-gone.jpg"} {
		o, ok := orphans.Get(p)
		require.True(t, ok)
		require.Equal(t, domain.OrphanResolved, o.Status)
	}
}

func TestSweepKeepsFailingOrphansPending(t *testing.T) {
	t.Parallel()

	store := newFakeStore("permits/a.jpg")
	store.err = errors.New("still denied")
	orphans := newFakeOrphans()
	seedOrphans(t, orphans, "permits/a.jpg")

	exec := cleanup.NewExecutor(store, time.Second, zerolog.Nop())
	summary, err := cleanup.NewSweeper(exec, orphans, nil, 1, zerolog.Nop()).Sweep(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, domain.SweepSummary{Scanned: 1, Failed: 1}, summary)

	o, ok := orphans.Get("permits/a.jpg")
	require.True(t, ok)
	require.Equal(t, domain.OrphanPending, o.Status)
	require.Equal(t, 2, o.Attempts)
	require.Equal(t, "still denied", o.LastError)
}

func TestSweepReportsLedgerError(t *testing.T) {
	t.Parallel()

	orphans := newFakeOrphans()
	orphans.listErr = errors.New("db down")
	exec := cleanup.NewExecutor(newFakeStore(), time.Second, zerolog.Nop())

	_, err := cleanup.NewSweeper(exec, orphans, nil, 1, zerolog.Nop()).Sweep(context.Background(), 10)
	require.ErrorContains(t, err, "db down")
}
