package operation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/repository"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

// Service is the operation registry: CRUD plus validated state transitions.
type Service interface {
	Create(ctx context.Context, operationType string, isAsync bool, metadata *string) (*model.Operation, error)
	// UpdateStatus rejects transitions the status machine forbids; pass an
	// empty errorMessage to clear the column.
	UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	Get(ctx context.Context, id string) (*model.Operation, error)
	List(ctx context.Context, page, pageSize int) (*model.ListOperationsResponse, error)
}

type service struct {
	repo repository.OperationRepository
}

func NewService(repo repository.OperationRepository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, operationType string, isAsync bool, metadata *string) (*model.Operation, error) {
	if operationType == "" {
		return nil, apperr.BadRequest("operation_type is required")
	}

	op := &model.Operation{
		ID:            uuid.New().String(),
		OperationType: operationType,
		Status:        model.StatusPending,
		IsAsync:       isAsync,
		Metadata:      metadata,
	}

	if err := s.repo.Create(ctx, op); err != nil {
		return nil, apperr.Internal(err)
	}

	log.Info().
		Str("operation_id", op.ID).
		Str("operation_type", operationType).
		Bool("is_async", isAsync).
		Msg("operation created")

	return op, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage string) error {
	if !status.Valid() {
		return apperr.BadRequest(fmt.Sprintf("unknown status %q", status))
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("operation", err)
		}
		return apperr.Internal(err)
	}

	if !current.Status.CanTransition(status) {
		return apperr.BadRequest(fmt.Sprintf("illegal operation transition %s -> %s", current.Status, status))
	}

	var msg *string
	if errorMessage != "" {
		msg = &errorMessage
	}
	if err := s.repo.UpdateStatus(ctx, id, status, msg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("operation", err)
		}
		return apperr.Internal(err)
	}

	log.Debug().
		Str("operation_id", id).
		Str("status", string(status)).
		Msg("operation status updated")

	return nil
}

func (s *service) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return s.UpdateStatus(ctx, id, model.StatusFailed, errorMessage)
}

func (s *service) Get(ctx context.Context, id string) (*model.Operation, error) {
	op, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("operation", err)
		}
		return nil, apperr.Internal(err)
	}
	return op, nil
}

func (s *service) List(ctx context.Context, page, pageSize int) (*model.ListOperationsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	items, total, err := s.repo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &model.ListOperationsResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	}, nil
}
