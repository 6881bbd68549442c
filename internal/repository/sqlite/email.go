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

type emailRepository struct {
	db *sqlx.DB
}

func NewEmailRepository(db *sqlx.DB) repository.EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) Create(ctx context.Context, rec *model.EmailRecord) error {
	query := `
		INSERT INTO emails (id, operation_id, recipient, subject, body, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	rec.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.OperationID,
		rec.Recipient,
		rec.Subject,
		rec.Body,
		rec.Status,
		rec.ErrorMessage,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email record: %w", err)
	}
	return nil
}

func (r *emailRepository) UpdateStatusByOperation(ctx context.Context, operationID, status string, errorMessage *string) error {
	query := `UPDATE emails SET status = ?, error_message = ? WHERE operation_id = ?`
	res, err := r.db.ExecContext(ctx, query, status, errorMessage, operationID)
	if err != nil {
		return fmt.Errorf("failed to update email record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("email for operation %s: %w", operationID, sql.ErrNoRows)
	}
	return nil
}

func (r *emailRepository) GetByOperation(ctx context.Context, operationID string) (*model.EmailRecord, error) {
	query := `SELECT * FROM emails WHERE operation_id = ?`
	var rec model.EmailRecord
	if err := r.db.GetContext(ctx, &rec, query, operationID); err != nil {
		return nil, fmt.Errorf("failed to get email record: %w", err)
	}
	return &rec, nil
}
