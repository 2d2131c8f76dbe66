package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/permitvault/backend-go/internal/domain"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

const orphanSchema = `
	CREATE TABLE IF NOT EXISTS orphaned_objects (
		id          BIGSERIAL PRIMARY KEY,
		collection  TEXT NOT NULL,
		document_id TEXT NOT NULL DEFAULT '',
		object_path TEXT NOT NULL UNIQUE,
		last_error  TEXT NOT NULL DEFAULT '',
		attempts    INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_orphaned_objects_status ON orphaned_objects (status, updated_at);
`

type orphanRepository struct {
	db *DB
}

func NewOrphanRepository(db *DB) *orphanRepository {
	return &orphanRepository{db: db}
}

// EnsureSchema creates the ledger table when missing.
func (r *orphanRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, orphanSchema); err != nil {
		return fmt.Errorf("failed to create orphaned_objects table: %w", err)
	}
	return nil
}

func (r *orphanRepository) RecordFailure(ctx context.Context, obj *domain.OrphanedObject) error {
	query := `
		INSERT INTO orphaned_objects (collection, document_id, object_path, last_error, attempts, status)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (object_path)
		DO UPDATE SET
			last_error = EXCLUDED.last_error,
			attempts = orphaned_objects.attempts + 1,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING id, attempts
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, query,
			obj.Collection, obj.DocumentID, obj.ObjectPath, obj.LastError, domain.OrphanPending)
		if err := row.Scan(&obj.ID, &obj.Attempts); err != nil {
			return fmt.Errorf("failed to record orphan %s: %w", obj.ObjectPath, err)
		}
		obj.Status = domain.OrphanPending
		return nil
	})
}

func (r *orphanRepository) ListPending(ctx context.Context, limit int) ([]*domain.OrphanedObject, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, collection, document_id, object_path, last_error, attempts, status, created_at, updated_at
		FROM orphaned_objects
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2
	`

	var orphans []*domain.OrphanedObject
	if err := r.db.SelectContext(ctx, &orphans, query, domain.OrphanPending, limit); err != nil {
		return nil, fmt.Errorf("failed to list orphans: %w", err)
	}
	return orphans, nil
}

func (r *orphanRepository) MarkResolved(ctx context.Context, id int64) error {
	query := `UPDATE orphaned_objects SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, domain.OrphanResolved, id); err != nil {
		return fmt.Errorf("failed to resolve orphan %d: %w", id, err)
	}
	return nil
}

var _ repository.OrphanRepository = (*orphanRepository)(nil)
