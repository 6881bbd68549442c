package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

const (
	// ClientTimeout is the recommended timeout for the shared HTTP client.
	ClientTimeout = 30 * time.Second

	// A healthy session probe is reused for this long; failures are never
	// cached.
	sessionCacheTTL = 30 * time.Second

	connectedState = "CONNECTED"

	contentTypeText  = "string"
	contentTypeMedia = "MessageMedia"
)

// Config is the gateway environment contract.
type Config struct {
	BaseURL   string `envconfig:"WHATSAPP_API_URL"`
	SessionID string `envconfig:"WHATSAPP_API_SESSION_ID"`
}

// Service talks to the external WhatsApp gateway: session health, text
// sends, media sends. One shared client, no per-attempt retry.
type Service struct {
	cfg          Config
	client       *http.Client
	sessionCache *cache.Cache
}

func NewService(cfg Config, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: ClientTimeout}
	}
	return &Service{
		cfg:          cfg,
		client:       client,
		sessionCache: cache.New(sessionCacheTTL, time.Minute),
	}
}

type textPayload struct {
	ChatID      string `json:"chatId"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type mediaContent struct {
	MimeType string `json:"mimetype"`
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

type mediaPayload struct {
	ChatID      string       `json:"chatId"`
	ContentType string       `json:"contentType"`
	Content     mediaContent `json:"content"`
}

// Send delivers the message text to every recipient, then every attachment
// to every recipient, after verifying the gateway session is CONNECTED.
func (s *Service) Send(ctx context.Context, cfg model.WhatsAppConfig, message string, attachments []model.Attachment) error {
	if s.cfg.BaseURL == "" {
		return apperr.BadRequest("WHATSAPP_API_URL is not set")
	}
	if s.cfg.SessionID == "" {
		return apperr.BadRequest("WHATSAPP_API_SESSION_ID is not set")
	}
	if len(cfg.Recipients) == 0 {
		return apperr.BadRequest("whatsapp_config.recipients is empty")
	}

	if err := s.ensureSessionConnected(ctx); err != nil {
		return err
	}

	sendURL := fmt.Sprintf("%s/client/sendMessage/%s", s.cfg.BaseURL, s.cfg.SessionID)

	if message != "" {
		for _, chatID := range cfg.Recipients {
			payload := textPayload{ChatID: chatID, ContentType: contentTypeText, Content: message}
			if err := s.post(ctx, sendURL, payload); err != nil {
				return fmt.Errorf("send text to %s: %w", chatID, err)
			}
			log.Info().Str("chat_id", chatID).Msg("whatsapp text sent")
		}
	} else {
		log.Debug().Msg("empty message text, skipping whatsapp text sends")
	}

	for _, attach := range attachments {
		data := base64.StdEncoding.EncodeToString(attach.Data)
		for _, chatID := range cfg.Recipients {
			payload := mediaPayload{
				ChatID:      chatID,
				ContentType: contentTypeMedia,
				Content: mediaContent{
					MimeType: attach.ContentType,
					Data:     data,
					Filename: attach.Filename,
				},
			}
			if err := s.post(ctx, sendURL, payload); err != nil {
				return fmt.Errorf("send attachment %q to %s: %w", attach.Filename, chatID, err)
			}
			log.Info().
				Str("chat_id", chatID).
				Str("filename", attach.Filename).
				Int("bytes", len(attach.Data)).
				Msg("whatsapp attachment sent")
		}
	}

	return nil
}

func (s *Service) ensureSessionConnected(ctx context.Context) error {
	cacheKey := "session:" + s.cfg.SessionID
	if _, ok := s.sessionCache.Get(cacheKey); ok {
		return nil
	}

	statusURL := fmt.Sprintf("%s/session/status/%s", s.cfg.BaseURL, s.cfg.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return apperr.Internal(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Upstream("whatsapp session status request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Upstream(
			fmt.Sprintf("whatsapp session status returned %d: %s", resp.StatusCode, string(body)),
			nil,
		)
	}

	var status struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return apperr.Upstream("whatsapp session status is not valid JSON", err)
	}

	if status.State != connectedState {
		return apperr.Upstream(
			fmt.Sprintf("whatsapp session is not CONNECTED (state=%q)", status.State),
			nil,
		)
	}

	s.sessionCache.SetDefault(cacheKey, true)
	return nil
}

func (s *Service) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Internal(fmt.Errorf("failed to encode gateway payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperr.Upstream("whatsapp gateway request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.Upstream(
			fmt.Sprintf("whatsapp gateway returned %d: %s", resp.StatusCode, string(respBody)),
			nil,
		)
	}
	return nil
}
