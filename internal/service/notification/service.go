package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/service/channel"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	"github.com/calipso-dynamics/notification-api/pkg/metrics"
)

// EmailSender delivers the email channel and maintains the audit row.
type EmailSender interface {
	SendForOperation(ctx context.Context, operationID string, cfg model.EmailConfig, subject, body string, attachments []model.Attachment) error
}

// WhatsAppSender delivers the whatsapp channel through the gateway.
type WhatsAppSender interface {
	Send(ctx context.Context, cfg model.WhatsAppConfig, message string, attachments []model.Attachment) error
}

// Renderer turns HTML into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, req model.PdfRequest) ([]byte, error)
}

// Service drives one notification operation through its channels: optional
// PDF render, per-channel rows, sequential sends, aggregate terminal status.
type Service struct {
	ops      operation.Service
	channels channel.Service
	email    EmailSender
	whatsapp WhatsAppSender
	renderer Renderer
	metrics  *metrics.Metrics

	inflight sync.WaitGroup
}

func NewService(
	ops operation.Service,
	channels channel.Service,
	email EmailSender,
	whatsapp WhatsAppSender,
	renderer Renderer,
	m *metrics.Metrics,
) *Service {
	return &Service{
		ops:      ops,
		channels: channels,
		email:    email,
		whatsapp: whatsapp,
		renderer: renderer,
		metrics:  m,
	}
}

// Process runs the full dispatch synchronously. State changes go through the
// registries only; one channel's failure never aborts its siblings.
func (s *Service) Process(ctx context.Context, operationID string, req model.NotificationRequest) error {
	log.Info().
		Str("operation_id", operationID).
		Strs("channels", req.Channels).
		Msg("processing notification")

	if err := s.ops.UpdateStatus(ctx, operationID, model.StatusRunning, ""); err != nil {
		return err
	}

	attachments, err := s.buildAttachments(ctx, &req)
	if err != nil {
		// Renderer failure is fatal for the whole operation: no channel
		// rows are created.
		if ferr := s.ops.MarkFailed(ctx, operationID, err.Error()); ferr != nil {
			log.Error().Err(ferr).Str("operation_id", operationID).Msg("failed to mark operation failed")
		}
		return err
	}

	if len(req.Channels) == 0 {
		log.Warn().Str("operation_id", operationID).Msg("notification request has no channels")
	}

	type createdChannel struct {
		name string
		id   string
	}
	created := make([]createdChannel, 0, len(req.Channels))
	for _, name := range req.Channels {
		ch, err := s.channels.Create(ctx, operationID, name, model.StatusPending)
		if err != nil {
			if ferr := s.ops.MarkFailed(ctx, operationID, err.Error()); ferr != nil {
				log.Error().Err(ferr).Str("operation_id", operationID).Msg("failed to mark operation failed")
			}
			return err
		}
		created = append(created, createdChannel{name: name, id: ch.ID})
	}

	var lastErr error
	for _, ch := range created {
		if err := s.channels.UpdateStatus(ctx, ch.id, model.StatusRunning, "", false); err != nil {
			return err
		}

		sendErr := s.sendChannel(ctx, operationID, ch.name, &req, attachments)
		if sendErr != nil {
			log.Error().
				Err(sendErr).
				Str("operation_id", operationID).
				Str("channel", ch.name).
				Msg("channel send failed")
			s.metrics.ChannelSend(ch.name, "failed")

			if err := s.channels.UpdateStatus(ctx, ch.id, model.StatusFailed, sendErr.Error(), true); err != nil {
				return err
			}
			if err := s.ops.UpdateStatus(ctx, operationID, model.StatusFailed, sendErr.Error()); err != nil {
				return err
			}
			lastErr = sendErr
			continue
		}

		s.metrics.ChannelSend(ch.name, "success")
		if err := s.channels.UpdateStatus(ctx, ch.id, model.StatusDone, "", false); err != nil {
			return err
		}
	}

	// Aggregate from a fresh read: the operation is done iff every channel
	// attempt is done.
	rows, err := s.channels.ListForOperation(ctx, operationID)
	if err != nil {
		return err
	}
	allDone := true
	for _, row := range rows {
		if row.Status != model.StatusDone {
			allDone = false
			break
		}
	}

	if allDone {
		if err := s.ops.UpdateStatus(ctx, operationID, model.StatusDone, ""); err != nil {
			return err
		}
		log.Info().Str("operation_id", operationID).Msg("notification done")
	} else {
		log.Info().Str("operation_id", operationID).Msg("notification finished with failed channels")
	}

	return lastErr
}

// ProcessAsync runs Process detached from the calling request. Failures are
// persisted on the operation row, never surfaced to the caller.
func (s *Service) ProcessAsync(operationID string, req model.NotificationRequest) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.Process(context.Background(), operationID, req); err != nil {
			log.Error().Err(err).Str("operation_id", operationID).Msg("async notification failed")
		}
	}()
}

// Drain waits for detached dispatches to finish or for ctx to expire.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) buildAttachments(ctx context.Context, req *model.NotificationRequest) ([]model.Attachment, error) {
	attachments := []model.Attachment{}

	if req.PDFHTML != nil {
		name := "document.pdf"
		if req.PDFAttachmentName != nil && *req.PDFAttachmentName != "" {
			name = *req.PDFAttachmentName
		}

		pdfReq := model.PdfRequest{
			FileName:       name,
			HTML:           *req.PDFHTML,
			Orientation:    req.PDFOrientation,
			PageSizePreset: req.PDFPageSizePreset,
			CustomPageSize: req.PDFCustomPageSize,
			Margins:        req.PDFMargins,
			Scale:          req.PDFScale,
		}

		data, err := s.renderer.Render(ctx, pdfReq)
		if err != nil {
			return nil, fmt.Errorf("pdf generation failed: %w", err)
		}

		log.Info().Int("bytes", len(data)).Str("filename", name).Msg("generated pdf attachment")
		attachments = append(attachments, model.Attachment{
			Filename:    name,
			ContentType: "application/pdf",
			Data:        data,
		})
	}

	return append(attachments, req.OtherAttachments...), nil
}

func (s *Service) sendChannel(ctx context.Context, operationID, name string, req *model.NotificationRequest, attachments []model.Attachment) error {
	switch name {
	case model.ChannelEmail:
		if req.EmailConfig == nil {
			return fmt.Errorf("missing email_config for email channel")
		}
		return s.email.SendForOperation(ctx, operationID, *req.EmailConfig, req.Subject, req.Body, attachments)
	case model.ChannelWhatsApp:
		if req.WhatsAppConfig == nil {
			return fmt.Errorf("missing whatsapp_config for whatsapp channel")
		}
		return s.whatsapp.Send(ctx, *req.WhatsAppConfig, req.Body, attachments)
	default:
		return fmt.Errorf("unsupported channel: %s", name)
	}
}
