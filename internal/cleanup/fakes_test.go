package cleanup_test

import (
	"context"
	"sync"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
)

// fakeStore is an in-memory ObjectStorage that records every delete call.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]bool
	calls     []string
	err       error
	panicWith any
	block     bool
}

func newFakeStore(keys ...string) *fakeStore {
	f := &fakeStore{objects: make(map[string]bool)}
	for _, k := range keys {
		f.objects[k] = true
	}
	return f
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	block, err, panicWith := f.block, f.err, f.panicWith
	f.mu.Unlock()

	if panicWith != nil {
		panic(panicWith)
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

// fakeOrphans is an in-memory OrphanRepository.
type fakeOrphans struct {
	mu        sync.Mutex
	nextID    int64
	byPath    map[string]*domain.OrphanedObject
	resolved  []int64
	recordErr error
	listErr   error
}

func newFakeOrphans() *fakeOrphans {
	return &fakeOrphans{byPath: make(map[string]*domain.OrphanedObject)}
}

func (f *fakeOrphans) RecordFailure(ctx context.Context, obj *domain.OrphanedObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	existing, ok := f.byPath[obj.ObjectPath]
	if !ok {
		f.nextID++
		cp := *obj
		cp.ID = f.nextID
		cp.Status = domain.OrphanPending
		f.byPath[obj.ObjectPath] = &cp
		existing = &cp
	}
	existing.Attempts++
	existing.LastError = obj.LastError
	existing.Status = domain.OrphanPending
	obj.ID, obj.Attempts, obj.Status = existing.ID, existing.Attempts, existing.Status
	return nil
}

func (f *fakeOrphans) ListPending(ctx context.Context, limit int) ([]*domain.OrphanedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.OrphanedObject
	for _, o := range f.byPath {
		if o.Status == domain.OrphanPending && len(out) < limit {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrphans) MarkResolved(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byPath {
		if o.ID == id {
			o.Status = domain.OrphanResolved
		}
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeOrphans) Get(path string) (*domain.OrphanedObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byPath[path]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}
