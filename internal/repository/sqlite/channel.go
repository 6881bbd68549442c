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

type channelRepository struct {
	db *sqlx.DB
}

func NewChannelRepository(db *sqlx.DB) repository.ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, ch *model.ChannelAttempt) error {
	query := `
		INSERT INTO operation_channels (id, operation_id, channel, status, error_message, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		ch.ID,
		ch.OperationID,
		ch.Channel,
		ch.Status,
		ch.ErrorMessage,
		ch.Attempts,
		ch.CreatedAt,
		ch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation channel: %w", err)
	}
	return nil
}

// UpdateStatus keeps the attempts bump inside the same UPDATE as the status
// write, so attempts can never be observed stale next to a new status.
func (r *channelRepository) UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage *string, incrementAttempts bool) error {
	query := `UPDATE operation_channels SET status = ?, error_message = ?, updated_at = ?`
	if incrementAttempts {
		query += `, attempts = attempts + 1`
	}
	query += ` WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update operation channel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation channel %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *channelRepository) Get(ctx context.Context, id string) (*model.ChannelAttempt, error) {
	query := `SELECT * FROM operation_channels WHERE id = ?`
	var ch model.ChannelAttempt
	if err := r.db.GetContext(ctx, &ch, query, id); err != nil {
		return nil, fmt.Errorf("failed to get operation channel: %w", err)
	}
	return &ch, nil
}

func (r *channelRepository) ListForOperation(ctx context.Context, operationID string) ([]*model.ChannelAttempt, error) {
	query := `SELECT * FROM operation_channels WHERE operation_id = ? ORDER BY created_at, id`
	channels := []*model.ChannelAttempt{}
	if err := r.db.SelectContext(ctx, &channels, query, operationID); err != nil {
		return nil, fmt.Errorf("failed to list operation channels: %w", err)
	}
	return channels, nil
}
