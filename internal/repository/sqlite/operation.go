package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/repository"
)

type operationRepository struct {
	db *sqlx.DB
}

func NewOperationRepository(db *sqlx.DB) repository.OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Create(ctx context.Context, op *model.Operation) error {
	query := `
		INSERT INTO operations (id, operation_type, status, error_message, is_async, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	op.CreatedAt = now
	op.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		op.ID,
		op.OperationType,
		op.Status,
		op.ErrorMessage,
		op.IsAsync,
		op.Metadata,
		op.CreatedAt,
		op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}
	return nil
}

func (r *operationRepository) UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage *string) error {
	query := `UPDATE operations SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update operation status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *operationRepository) Get(ctx context.Context, id string) (*model.Operation, error) {
	query := `SELECT * FROM operations WHERE id = ?`
	var op model.Operation
	if err := r.db.GetContext(ctx, &op, query, id); err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return &op, nil
}

func (r *operationRepository) List(ctx context.Context, limit, offset int) ([]*model.Operation, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM operations`); err != nil {
		return nil, 0, fmt.Errorf("failed to count operations: %w", err)
	}

	query := `
		SELECT * FROM operations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	ops := []*model.Operation{}
	if err := r.db.SelectContext(ctx, &ops, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list operations: %w", err)
	}
	return ops, total, nil
}
