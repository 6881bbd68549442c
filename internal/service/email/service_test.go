package email

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

type fakeEmailRepo struct {
	records map[string]*model.EmailRecord
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{records: map[string]*model.EmailRecord{}}
}

func (f *fakeEmailRepo) Create(_ context.Context, rec *model.EmailRecord) error {
	f.records[rec.OperationID] = rec
	return nil
}

func (f *fakeEmailRepo) UpdateStatusByOperation(_ context.Context, opID, status string, errMsg *string) error {
	rec, ok := f.records[opID]
	if !ok {
		return sql.ErrNoRows
	}
	rec.Status = status
	rec.ErrorMessage = errMsg
	return nil
}

func (f *fakeEmailRepo) GetByOperation(_ context.Context, opID string) (*model.EmailRecord, error) {
	rec, ok := f.records[opID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rec, nil
}

func TestSendValidation(t *testing.T) {
	svc := NewService(newFakeEmailRepo(), nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		cfg        model.EmailConfig
		recipients []string
		wantMsg    string
	}{
		{
			name:       "missing host",
			cfg:        model.EmailConfig{SMTPUser: "a@b.com"},
			recipients: []string{"x@y.com"},
			wantMsg:    "smtp_host and smtp_user are required",
		},
		{
			name:       "missing user",
			cfg:        model.EmailConfig{SMTPHost: "smtp.example.com"},
			recipients: []string{"x@y.com"},
			wantMsg:    "smtp_host and smtp_user are required",
		},
		{
			name:       "no recipients",
			cfg:        model.EmailConfig{SMTPHost: "smtp.example.com", SMTPUser: "a@b.com"},
			recipients: nil,
			wantMsg:    "at least one recipient is required",
		},
		{
			name:       "malformed recipient",
			cfg:        model.EmailConfig{SMTPHost: "smtp.example.com", SMTPUser: "a@b.com"},
			recipients: []string{"not-an-address"},
			wantMsg:    "invalid recipient address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Send(ctx, tt.cfg, "s", "b", tt.recipients, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.ErrBadRequest, apperr.Code(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("sender@example.com", "rcpt@example.com", "Invoice 42", "<h1>Hello</h1>", []model.Attachment{
		{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 fake")},
	})

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "From: sender@example.com")
	assert.Contains(t, raw, "To: rcpt@example.com")
	assert.Contains(t, raw, "Subject: Invoice 42")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "invoice.pdf")
	assert.Contains(t, raw, "application/pdf")
}

func TestBuildMessageAttachmentsAreIndependent(t *testing.T) {
	attachments := []model.Attachment{
		{Filename: "a.txt", ContentType: "text/plain", Data: []byte("first")},
		{Filename: "b.txt", ContentType: "text/plain", Data: []byte("second")},
	}
	msg := buildMessage("s@e.com", "r@e.com", "s", "b", attachments)

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	// Each attachment must carry its own bytes, not the loop's last value.
	assert.Contains(t, raw, "a.txt")
	assert.Contains(t, raw, "b.txt")
}

func TestInsertRecordJoinsRecipients(t *testing.T) {
	repo := newFakeEmailRepo()
	svc := NewService(repo, nil)

	err := svc.insertRecord(context.Background(), "op-1", []string{"a@x.com", "b@y.com"}, "subj", "body")
	require.NoError(t, err)

	rec := repo.records["op-1"]
	require.NotNil(t, rec)
	assert.Equal(t, "a@x.com;b@y.com", rec.Recipient)
	assert.Equal(t, model.EmailStatusPending, rec.Status)
}

func TestGetEmailStatus(t *testing.T) {
	repo := newFakeEmailRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetEmailStatus(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrNotFound, apperr.Code(err))

	msg := "smtp down"
	repo.records["op-1"] = &model.EmailRecord{
		OperationID:  "op-1",
		Status:       model.EmailStatusFailed,
		ErrorMessage: &msg,
	}

	status, err := svc.GetEmailStatus(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", status.ID)
	assert.Equal(t, model.EmailStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Equal(t, "smtp down", *status.Error)
}
