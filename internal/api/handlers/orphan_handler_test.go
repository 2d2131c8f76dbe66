package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/api/handlers"
	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubOrphans struct {
	mu        sync.Mutex
	pending   []*domain.OrphanedObject
	lastLimit int
	resolved  []int64
	err       error
}

func (s *stubOrphans) RecordFailure(ctx context.Context, obj *domain.OrphanedObject) error {
	return nil
}

func (s *stubOrphans) ListPending(ctx context.Context, limit int) ([]*domain.OrphanedObject, error) {
	s.lastLimit = limit
	return s.pending, s.err
}

func (s *stubOrphans) MarkResolved(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, id)
	return nil
}

func (s *stubOrphans) Resolved() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.resolved...)
}

func newOrphanRouter(orphans *stubOrphans, store *memoryStore) (*gin.Engine, *handlers.OrphanHandler) {
	exec := cleanup.NewExecutor(store, time.Second, zerolog.Nop())
	sweeper := cleanup.NewSweeper(exec, orphans, nil, 2, zerolog.Nop())
	h := handlers.NewOrphanHandler(orphans, sweeper, 50)

	r := gin.New()
	r.GET("/orphans", h.ListPending)
	r.POST("/orphans/sweep", h.Sweep)
	return r, h
}

func TestListPendingOrphans(t *testing.T) {
	t.Parallel()

	orphans := &stubOrphans{pending: []*domain.OrphanedObject{
		{ID: 7, Collection: "permits", ObjectPath: "permits/a.jpg", Status: domain.OrphanPending},
	}}
	r, _ := newOrphanRouter(orphans, &memoryStore{objects: map[string]bool{}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orphans?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, orphans.lastLimit)
	require.Contains(t, rec.Body.String(), `"object_path":"permits/a.jpg"`)
}

func TestListPendingOrphansDefaultsLimit(t *testing.T) {
	t.Parallel()

	orphans := &stubOrphans{}
	r, _ := newOrphanRouter(orphans, &memoryStore{objects: map[string]bool{}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orphans?limit=-3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 50, orphans.lastLimit)
}

func TestSweepOrphansRunsInBackground(t *testing.T) {
	t.Parallel()

	orphans := &stubOrphans{pending: []*domain.OrphanedObject{
		{ID: 1, ObjectPath: "permits/a.jpg"},
		{ID: 2, ObjectPath: "permits/b.jpg"},
	}}
	store := &memoryStore{objects: map[string]bool{"permits/a.jpg": true}}
	r, h := newOrphanRouter(orphans, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"ok":true,"data":{"scanned":2}}`, rec.Body.String())

	h.Wait()
	require.ElementsMatch(t, []int64{1, 2}, orphans.Resolved())
	require.ElementsMatch(t, []string{"permits/a.jpg", "permits/b.jpg"}, store.Calls())
}

func TestSweepOrphansRejectsConcurrentSweep(t *testing.T) {
	t.Parallel()

	orphans := &stubOrphans{pending: []*domain.OrphanedObject{{ID: 1, ObjectPath: "permits/a.jpg"}}}
	store := &memoryStore{
		objects: map[string]bool{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r, h := newOrphanRouter(orphans, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-store.started

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	close(store.release)
	h.Wait()

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, "a finished sweep frees the slot")
	h.Wait()
}

func TestSweepOrphansLedgerFailure(t *testing.T) {
	t.Parallel()

	orphans := &stubOrphans{err: errors.New("db down")}
	r, _ := newOrphanRouter(orphans, &memoryStore{objects: map[string]bool{}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"ok":false,"error":"orphan sweep failed"}`, rec.Body.String())

	orphans.err = nil
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orphans/sweep", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, "a failed load does not hold the slot")
}
