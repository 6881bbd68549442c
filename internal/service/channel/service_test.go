package channel

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

type fakeRepo struct {
	rows map[string]*model.ChannelAttempt
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*model.ChannelAttempt{}}
}

func (f *fakeRepo) Create(_ context.Context, ch *model.ChannelAttempt) error {
	f.rows[ch.ID] = ch
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status model.Status, errMsg *string, increment bool) error {
	ch, ok := f.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	ch.Status = status
	ch.ErrorMessage = errMsg
	if increment {
		ch.Attempts++
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*model.ChannelAttempt, error) {
	ch, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ch, nil
}

func (f *fakeRepo) ListForOperation(_ context.Context, operationID string) ([]*model.ChannelAttempt, error) {
	out := []*model.ChannelAttempt{}
	for _, ch := range f.rows {
		if ch.OperationID == operationID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func TestCreateStartsWithZeroAttempts(t *testing.T) {
	svc := NewService(newFakeRepo())

	ch, err := svc.Create(context.Background(), "op-1", model.ChannelWhatsApp, model.StatusPending)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, 0, ch.Attempts)
	assert.Equal(t, model.StatusPending, ch.Status)
}

func TestUpdateStatusIncrementsAttemptsOnFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ch, err := svc.Create(ctx, "op-1", model.ChannelEmail, model.StatusPending)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, ch.ID, model.StatusRunning, "", false))
	require.NoError(t, svc.UpdateStatus(ctx, ch.ID, model.StatusFailed, "smtp down", true))

	stored := repo.rows[ch.ID]
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "smtp down", *stored.ErrorMessage)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	ch, err := svc.Create(ctx, "op-1", model.ChannelEmail, model.StatusPending)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, ch.ID, model.StatusRunning, "", false))
	require.NoError(t, svc.UpdateStatus(ctx, ch.ID, model.StatusDone, "", false))

	err = svc.UpdateStatus(ctx, ch.ID, model.StatusRunning, "", false)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrBadRequest, apperr.Code(err))
	assert.Contains(t, err.Error(), "illegal channel transition")
}

func TestUpdateStatusMissingChannel(t *testing.T) {
	svc := NewService(newFakeRepo())

	err := svc.UpdateStatus(context.Background(), "missing", model.StatusRunning, "", false)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrNotFound, apperr.Code(err))
}
