package repository

import (
	"context"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
)

// OrphanRepository persists storage objects whose cleanup failed.
type OrphanRepository interface {
	// RecordFailure upserts a pending orphan for obj.ObjectPath and bumps its
	// attempt count.
	RecordFailure(ctx context.Context, obj *domain.OrphanedObject) error
	ListPending(ctx context.Context, limit int) ([]*domain.OrphanedObject, error)
	MarkResolved(ctx context.Context, id int64) error
}

// NoopOrphanRepository is used when the ledger is disabled.
type NoopOrphanRepository struct{}

func (NoopOrphanRepository) RecordFailure(ctx context.Context, obj *domain.OrphanedObject) error {
	return nil
}

func (NoopOrphanRepository) ListPending(ctx context.Context, limit int) ([]*domain.OrphanedObject, error) {
	return []*domain.OrphanedObject{}, nil
}

func (NoopOrphanRepository) MarkResolved(ctx context.Context, id int64) error {
	return nil
}
