package whatsapp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

type recordedRequest struct {
	path string
	body map[string]any
}

type fakeGateway struct {
	*httptest.Server
	state string

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeGateway(t *testing.T, state string) *fakeGateway {
	t.Helper()
	gw := &fakeGateway{state: state}
	gw.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{path: r.URL.Path}
		if r.Method == http.MethodPost {
			raw, _ := io.ReadAll(r.Body)
			json.Unmarshal(raw, &rec.body)
		}
		gw.mu.Lock()
		gw.requests = append(gw.requests, rec)
		gw.mu.Unlock()

		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{"state": gw.state})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(gw.Close)
	return gw
}

func newTestService(gw *fakeGateway) *Service {
	return NewService(Config{BaseURL: gw.URL, SessionID: "sess1"}, gw.Client())
}

func TestSendRequiresConfiguration(t *testing.T) {
	ctx := context.Background()
	cfg := model.WhatsAppConfig{Recipients: []string{"123@c.us"}}

	err := NewService(Config{SessionID: "s"}, nil).Send(ctx, cfg, "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WHATSAPP_API_URL")

	err = NewService(Config{BaseURL: "http://gw"}, nil).Send(ctx, cfg, "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WHATSAPP_API_SESSION_ID")

	err = NewService(Config{BaseURL: "http://gw", SessionID: "s"}, nil).
		Send(ctx, model.WhatsAppConfig{}, "hi", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrBadRequest, apperr.Code(err))
}

func TestSendRejectsDisconnectedSession(t *testing.T) {
	gw := newFakeGateway(t, "DISCONNECTED")
	svc := newTestService(gw)

	err := svc.Send(context.Background(), model.WhatsAppConfig{Recipients: []string{"123@c.us"}}, "hi", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrUpstream, apperr.Code(err))
	assert.Contains(t, err.Error(), "CONNECTED")
	// No message may be attempted on a dead session.
	assert.Len(t, gw.requests, 1)
}

func TestSendOrdersTextsBeforeAttachments(t *testing.T) {
	gw := newFakeGateway(t, "CONNECTED")
	svc := newTestService(gw)

	attachments := []model.Attachment{
		{Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	}
	cfg := model.WhatsAppConfig{Recipients: []string{"111@c.us", "222@c.us"}}

	err := svc.Send(context.Background(), cfg, "hello", attachments)
	require.NoError(t, err)

	// status, text x2, media x2
	require.Len(t, gw.requests, 5)
	assert.Equal(t, "/session/status/sess1", gw.requests[0].path)

	for i := 1; i <= 4; i++ {
		assert.Equal(t, "/client/sendMessage/sess1", gw.requests[i].path)
	}
	assert.Equal(t, "string", gw.requests[1].body["contentType"])
	assert.Equal(t, "111@c.us", gw.requests[1].body["chatId"])
	assert.Equal(t, "hello", gw.requests[1].body["content"])
	assert.Equal(t, "222@c.us", gw.requests[2].body["chatId"])

	assert.Equal(t, "MessageMedia", gw.requests[3].body["contentType"])
	media := gw.requests[3].body["content"].(map[string]any)
	assert.Equal(t, "doc.pdf", media["filename"])
	assert.Equal(t, "application/pdf", media["mimetype"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), media["data"])
}

func TestSendSkipsTextWhenMessageEmpty(t *testing.T) {
	gw := newFakeGateway(t, "CONNECTED")
	svc := newTestService(gw)

	err := svc.Send(context.Background(), model.WhatsAppConfig{Recipients: []string{"111@c.us"}}, "", []model.Attachment{
		{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")},
	})
	require.NoError(t, err)

	// status + one media send only
	require.Len(t, gw.requests, 2)
	assert.Equal(t, "MessageMedia", gw.requests[1].body["contentType"])
}

func TestSendCachesHealthySessionProbe(t *testing.T) {
	gw := newFakeGateway(t, "CONNECTED")
	svc := newTestService(gw)
	cfg := model.WhatsAppConfig{Recipients: []string{"111@c.us"}}

	require.NoError(t, svc.Send(context.Background(), cfg, "one", nil))
	require.NoError(t, svc.Send(context.Background(), cfg, "two", nil))

	statusCalls := 0
	for _, r := range gw.requests {
		if r.path == "/session/status/sess1" {
			statusCalls++
		}
	}
	assert.Equal(t, 1, statusCalls, "second send should reuse the cached probe")
}

func TestSendSurfacesGatewayErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]string{"state": "CONNECTED"})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("chat not found"))
	}))
	defer srv.Close()

	svc := NewService(Config{BaseURL: srv.URL, SessionID: "sess1"}, srv.Client())
	err := svc.Send(context.Background(), model.WhatsAppConfig{Recipients: []string{"111@c.us"}}, "hi", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ErrUpstream, apperr.Code(err))
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "chat not found")
}
