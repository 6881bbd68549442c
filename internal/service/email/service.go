package email

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	mail "gopkg.in/mail.v2"

	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/repository"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

// Per-recipient transmission cap. A send call therefore terminates within
// sendTimeout * len(recipients) or fails with Timeout.
const sendTimeout = 30 * time.Second

const recipientSeparator = ";"

// Service builds multipart messages and transmits them over SMTP with
// mandatory STARTTLS. It also owns the emails audit table.
type Service struct {
	emails repository.EmailRepository
	ops    operation.Service
}

func NewService(emails repository.EmailRepository, ops operation.Service) *Service {
	return &Service{emails: emails, ops: ops}
}

// Send transmits one message per recipient. The first recipient failure
// aborts the remaining recipients and is returned as the send error.
func (s *Service) Send(ctx context.Context, cfg model.EmailConfig, subject, body string, recipients []string, attachments []model.Attachment) error {
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
		return apperr.BadRequest("smtp_host and smtp_user are required")
	}
	if len(recipients) == 0 {
		return apperr.BadRequest("at least one recipient is required")
	}
	for _, rcpt := range recipients {
		if !strings.Contains(rcpt, "@") {
			return apperr.BadRequest(fmt.Sprintf("invalid recipient address %q", rcpt))
		}
	}

	dialer := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.Timeout = sendTimeout

	sender, err := dialer.Dial()
	if err != nil {
		return apperr.Upstream(fmt.Sprintf("smtp connect to %s:%d failed", cfg.SMTPHost, cfg.SMTPPort), err)
	}
	defer sender.Close()

	for _, rcpt := range recipients {
		msg := buildMessage(cfg.SMTPUser, rcpt, subject, body, attachments)
		if err := sendWithTimeout(ctx, sender, msg); err != nil {
			return fmt.Errorf("send to %s: %w", rcpt, err)
		}
		log.Info().Str("recipient", rcpt).Int("attachments", len(attachments)).Msg("email sent")
	}

	return nil
}

// buildMessage assembles an HTML body plus one attachment part per entry.
func buildMessage(from, to, subject, body string, attachments []model.Attachment) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	for _, attach := range attachments {
		attach := attach
		msg.Attach(attach.Filename,
			mail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(attach.Data)
				return err
			}),
			mail.SetHeader(map[string][]string{
				"Content-Type": {attach.ContentType},
			}),
		)
	}

	return msg
}

func sendWithTimeout(ctx context.Context, sender mail.SendCloser, msg *mail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- mail.Send(sender, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return apperr.Upstream("smtp transmission failed", err)
		}
		return nil
	case <-time.After(sendTimeout):
		return apperr.Timeout("smtp transmission timed out")
	case <-ctx.Done():
		return apperr.Timeout("smtp transmission canceled")
	}
}

// SendForOperation is the dispatcher path: write the audit row, send, mirror
// the outcome on the audit row. Operation status stays with the caller.
func (s *Service) SendForOperation(ctx context.Context, operationID string, cfg model.EmailConfig, subject, body string, attachments []model.Attachment) error {
	if err := s.insertRecord(ctx, operationID, cfg.Recipients, subject, body); err != nil {
		return err
	}

	if err := s.Send(ctx, cfg, subject, body, cfg.Recipients, attachments); err != nil {
		msg := err.Error()
		if uerr := s.emails.UpdateStatusByOperation(ctx, operationID, model.EmailStatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Str("operation_id", operationID).Msg("failed to mark email record failed")
		}
		return err
	}

	if err := s.emails.UpdateStatusByOperation(ctx, operationID, model.EmailStatusSent, nil); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// SendUnified is the flow behind POST /api/email/send-unified: audit row
// first, then either a detached or an inline send that settles both the
// email row and the operation.
func (s *Service) SendUnified(ctx context.Context, operationID string, req model.SendUniversalEmailRequest, attachments []model.Attachment) error {
	if err := s.insertRecord(ctx, operationID, req.Recipients, req.Subject, req.Body); err != nil {
		return err
	}

	if req.AsyncSend {
		// Detached: the spawning request must not cancel the send.
		go func() {
			if err := s.settleSend(context.Background(), operationID, req, attachments); err != nil {
				log.Error().Err(err).Str("operation_id", operationID).Msg("async unified email failed")
			}
		}()
		return nil
	}

	return s.settleSend(ctx, operationID, req, attachments)
}

func (s *Service) settleSend(ctx context.Context, operationID string, req model.SendUniversalEmailRequest, attachments []model.Attachment) error {
	if err := s.ops.UpdateStatus(ctx, operationID, model.StatusRunning, ""); err != nil {
		return err
	}

	if err := s.Send(ctx, req.EmailConfig(), req.Subject, req.Body, req.Recipients, attachments); err != nil {
		msg := err.Error()
		if uerr := s.emails.UpdateStatusByOperation(ctx, operationID, model.EmailStatusFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Str("operation_id", operationID).Msg("failed to mark email record failed")
		}
		if uerr := s.ops.MarkFailed(ctx, operationID, msg); uerr != nil {
			log.Error().Err(uerr).Str("operation_id", operationID).Msg("failed to mark operation failed")
		}
		return err
	}

	if err := s.emails.UpdateStatusByOperation(ctx, operationID, model.EmailStatusSent, nil); err != nil {
		return apperr.Internal(err)
	}
	return s.ops.UpdateStatus(ctx, operationID, model.StatusDone, "")
}

func (s *Service) insertRecord(ctx context.Context, operationID string, recipients []string, subject, body string) error {
	rec := &model.EmailRecord{
		ID:          uuid.New().String(),
		OperationID: operationID,
		Recipient:   strings.Join(recipients, recipientSeparator),
		Subject:     subject,
		Body:        body,
		Status:      model.EmailStatusPending,
	}
	if err := s.emails.Create(ctx, rec); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetEmailStatus reads the audit row for an operation.
func (s *Service) GetEmailStatus(ctx context.Context, operationID string) (*model.EmailStatusResponse, error) {
	rec, err := s.emails.GetByOperation(ctx, operationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("email operation", err)
		}
		return nil, apperr.Internal(err)
	}
	return &model.EmailStatusResponse{
		ID:     operationID,
		Status: rec.Status,
		Error:  rec.ErrorMessage,
	}, nil
}
