package channel

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

// Service is the channel registry: per-channel attempt rows with an atomic
// status-plus-attempts update.
type Service interface {
	Create(ctx context.Context, operationID, channelName string, initialStatus model.Status) (*model.ChannelAttempt, error)
	UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage string, incrementAttempts bool) error
	Get(ctx context.Context, id string) (*model.ChannelAttempt, error)
	ListForOperation(ctx context.Context, operationID string) ([]*model.ChannelAttempt, error)
}

type service struct {
	repo repository.ChannelRepository
}

func NewService(repo repository.ChannelRepository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, operationID, channelName string, initialStatus model.Status) (*model.ChannelAttempt, error) {
	if !initialStatus.Valid() {
		return nil, apperr.BadRequest(fmt.Sprintf("unknown status %q", initialStatus))
	}

	ch := &model.ChannelAttempt{
		ID:          uuid.New().String(),
		OperationID: operationID,
		Channel:     channelName,
		Status:      initialStatus,
		Attempts:    0,
	}

	if err := s.repo.Create(ctx, ch); err != nil {
		return nil, apperr.Internal(err)
	}

	log.Info().
		Str("operation_id", operationID).
		Str("channel", channelName).
		Str("channel_id", ch.ID).
		Msg("operation channel created")

	return ch, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status model.Status, errorMessage string, incrementAttempts bool) error {
	if !status.Valid() {
		return apperr.BadRequest(fmt.Sprintf("unknown status %q", status))
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return apperr.BadRequest(fmt.Sprintf("illegal channel transition %s -> %s", current.Status, status))
	}

	var msg *string
	if errorMessage != "" {
		msg = &errorMessage
	}
	if err := s.repo.UpdateStatus(ctx, id, status, msg, incrementAttempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("operation channel", err)
		}
		return apperr.Internal(err)
	}

	log.Debug().
		Str("channel_id", id).
		Str("status", string(status)).
		Bool("increment_attempts", incrementAttempts).
		Msg("channel status updated")

	return nil
}

func (s *service) Get(ctx context.Context, id string) (*model.ChannelAttempt, error) {
	ch, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("operation channel", err)
		}
		return nil, apperr.Internal(err)
	}
	return ch, nil
}

func (s *service) ListForOperation(ctx context.Context, operationID string) ([]*model.ChannelAttempt, error) {
	channels, err := s.repo.ListForOperation(ctx, operationID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return channels, nil
}
