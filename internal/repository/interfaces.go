package repository

import (
	"context"

	"github.com/calipso-dynamics/notification-api/internal/model"
)

// OperationRepository is row storage for the operations table.
type OperationRepository interface {
	Create(ctx context.Context, op *model.Operation) error
	// UpdateStatus overwrites status, error_message and updated_at in one
	// round trip. Returns sql.ErrNoRows (wrapped) when the id is unknown.
	UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage *string) error
	Get(ctx context.Context, id string) (*model.Operation, error)
	// List returns one page ordered by created_at descending with a stable
	// id tie-break, plus the total row count.
	List(ctx context.Context, limit, offset int) ([]*model.Operation, int64, error)
}

// ChannelRepository is row storage for the operation_channels table.
type ChannelRepository interface {
	Create(ctx context.Context, ch *model.ChannelAttempt) error
	// UpdateStatus writes status, error_message, updated_at and, when
	// incrementAttempts is set, bumps attempts - all in a single UPDATE so
	// no observer sees a stale counter next to a new status.
	UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage *string, incrementAttempts bool) error
	Get(ctx context.Context, id string) (*model.ChannelAttempt, error)
	ListForOperation(ctx context.Context, operationID string) ([]*model.ChannelAttempt, error)
}

// EmailRepository is row storage for the emails audit table.
type EmailRepository interface {
	Create(ctx context.Context, rec *model.EmailRecord) error
	UpdateStatusByOperation(ctx context.Context, operationID, status string, errorMessage *string) error
	GetByOperation(ctx context.Context, operationID string) (*model.EmailRecord, error)
}
