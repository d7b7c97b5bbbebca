package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/pkg/id"
	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

const loginMarkup = `<mjml>
  <mj-head><mj-title>Sign in</mj-title></mj-head>
  <mj-body>
    <mj-section>
      <mj-column>
        <mj-text>Hello {{name}}!</mj-text>
        <mj-button href="http://example.com/login?token={{token}}">Login</mj-button>
      </mj-column>
    </mj-section>
  </mj-body>
</mjml>`

// MockMailer is a mock implementation of Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, name string, req mailer.Request) error {
	return m.Called(ctx, name, req).Error(0)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*mailer.Message
}

func (s *recordingSender) Send(_ context.Context, msg *mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func testConfig() config.HTTP {
	return config.HTTP{MaxUploadBytes: 1 << 20, ExposeInternalErrors: true}
}

func newRegistry(t *testing.T) *mailer.Registry {
	t.Helper()
	reg, err := mailer.NewRegistry(
		mailer.Template{Name: "user-login", Description: "Login link", Markup: loginMarkup},
		mailer.Template{Name: "welcome", Markup: `<mjml><mj-body></mj-body></mjml>`},
	)
	require.NoError(t, err)
	return reg
}

// newPipelineServer wires the real mailer to a recording transport.
func newPipelineServer(t *testing.T, cfg config.HTTP) (*Server, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	reg := newRegistry(t)
	m := mailer.New(reg, mailer.NewSenderPool(sender), mailer.Config{FallbackSubject: "Notification"})
	return New(m, reg, cfg), sender
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSendTemplate_JSON(t *testing.T) {
	t.Parallel()

	s, sender := newPipelineServer(t, testConfig())

	rec := postJSON(s.Handler(), "/templates/user-login",
		`{"from":"alice@example.com","to":"bob@example.com","params":{"name":"bob","token":"this_is_a_token"}}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	require.Equal(t, "Sign in", msg.Subject)
	require.Contains(t, msg.Text, "Hello bob!")
	require.Contains(t, msg.HTML, `"http://example.com/login?token=this_is_a_token"`)
}

func TestSendTemplate_JSON_MissingParam(t *testing.T) {
	t.Parallel()

	s, sender := newPipelineServer(t, testConfig())

	rec := postJSON(s.Handler(), "/templates/user-login",
		`{"from":"alice@example.com","to":"bob@example.com","params":{"name":"bob"}}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, sender.sent[0].HTML, `"http://example.com/login?token="`)
}

func TestSendTemplate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		wantStatus  int
		wantName    string
		wantMessage string
	}{
		{
			name:        "template not found",
			path:        "/templates/not-found",
			contentType: "application/json",
			body:        `{"from":"alice@example.com","to":"bob@example.com","params":{}}`,
			wantStatus:  http.StatusNotFound,
			wantName:    "Not Found",
			wantMessage: "not-found",
		},
		{
			name:        "missing recipient",
			path:        "/templates/user-login",
			contentType: "application/json",
			body:        `{"from":"alice@example.com","params":{"name":"bob","token":"this_is_a_token"}}`,
			wantStatus:  http.StatusBadRequest,
			wantName:    "Bad Request",
			wantMessage: "`to`",
		},
		{
			name:        "malformed json",
			path:        "/templates/user-login",
			contentType: "application/json",
			body:        `{"from":`,
			wantStatus:  http.StatusBadRequest,
			wantName:    "Bad Request",
			wantMessage: "invalid JSON body",
		},
		{
			name:        "unsupported content type",
			path:        "/templates/user-login",
			contentType: "text/plain",
			body:        "hello",
			wantStatus:  http.StatusBadRequest,
			wantName:    "Bad Request",
			wantMessage: "unsupported content type",
		},
		{
			name:        "missing content type",
			path:        "/templates/user-login",
			body:        "{}",
			wantStatus:  http.StatusBadRequest,
			wantName:    "Bad Request",
			wantMessage: "Content-Type",
		},
		{
			name:        "body too large",
			path:        "/templates/user-login",
			contentType: "application/json",
			body:        `{"from":"` + strings.Repeat("a", 2048) + `"}`,
			wantStatus:  http.StatusBadRequest,
			wantName:    "Bad Request",
			wantMessage: "exceeds 1024 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.MaxUploadBytes = 1024
			s, sender := newPipelineServer(t, cfg)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			require.Equal(t, tt.wantName, body["name"])
			require.Contains(t, body["message"], tt.wantMessage)
			require.Empty(t, sender.sent)
		})
	}
}

func TestSendTemplate_InternalError(t *testing.T) {
	t.Parallel()

	sendErr := mailer.Classify(fmt.Errorf("%w: smtp connection failed", mailer.ErrSendFailed))

	tests := []struct {
		name        string
		expose      bool
		wantMessage string
	}{
		{name: "exposed", expose: true, wantMessage: "smtp connection failed"},
		{name: "hidden", expose: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &MockMailer{}
			m.On("Send", mock.Anything, "user-login", mock.Anything).Return(sendErr).Once()

			cfg := testConfig()
			cfg.ExposeInternalErrors = tt.expose
			s := New(m, newRegistry(t), cfg)

			rec := postJSON(s.Handler(), "/templates/user-login", `{"from":"a@example.com","to":"b@example.com"}`)
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			body := decodeError(t, rec)
			require.Equal(t, "Internal Server Error", body["name"])
			if tt.wantMessage == "" {
				_, ok := body["message"]
				require.False(t, ok)
			} else {
				require.Contains(t, body["message"], tt.wantMessage)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestSendTemplate_JSON_NullParams(t *testing.T) {
	t.Parallel()

	m := &MockMailer{}
	m.On("Send", mock.Anything, "welcome", mock.MatchedBy(func(req mailer.Request) bool {
		return req.From == "a@example.com" && req.To == "b@example.com" && req.Params.IsNull() && req.Attachments == nil
	})).Return(nil).Once()

	s := New(m, newRegistry(t), testConfig())
	rec := postJSON(s.Handler(), "/templates/welcome", `{"from":"a@example.com","to":"b@example.com"}`)

	require.Equal(t, http.StatusNoContent, rec.Code)
	m.AssertExpectations(t)
}

func TestSendTemplate_Multipart(t *testing.T) {
	t.Parallel()

	uploadDir := t.TempDir()
	cfg := testConfig()
	cfg.UploadDir = uploadDir
	s, sender := newPipelineServer(t, cfg)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("from", "alice@example.com"))
	require.NoError(t, w.WriteField("to", "bob@example.com"))
	require.NoError(t, w.WriteField("params", `{"name":"bob","token":"abc"}`))
	fw, err := w.CreateFormFile("attachments", "invoice.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 invoice"))
	require.NoError(t, err)
	fw, err = w.CreateFormFile("attachments", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain notes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/templates/user-login", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	require.Contains(t, msg.Text, "Hello bob!")
	require.Len(t, msg.Attachments, 2)
	require.Equal(t, "invoice.pdf", msg.Attachments[0].Filename)
	require.Equal(t, []byte("%PDF-1.4 invoice"), msg.Attachments[0].Content)
	require.Equal(t, "notes.txt", msg.Attachments[1].Filename)

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	require.Empty(t, entries, "uploads must be removed after the request")
}

func TestSendTemplate_Multipart_InvalidParams(t *testing.T) {
	t.Parallel()

	uploadDir := t.TempDir()
	cfg := testConfig()
	cfg.UploadDir = uploadDir
	s, _ := newPipelineServer(t, cfg)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("from", "alice@example.com"))
	require.NoError(t, w.WriteField("to", "bob@example.com"))
	require.NoError(t, w.WriteField("params", `{"name":`))
	fw, err := w.CreateFormFile("attachments", "a.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/templates/user-login", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeError(t, rec)["message"], "invalid params")

	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListTemplates(t *testing.T) {
	t.Parallel()

	s, _ := newPipelineServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[
		{"name":"user-login","description":"Login link"},
		{"name":"welcome","description":""}
	]`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	s, _ := newPipelineServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Not Found", decodeError(t, rec)["name"])
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	s, _ := newPipelineServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.True(t, id.IsULID(rec.Header().Get(RequestIDHeader)))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "upstream-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	m := &MockMailer{}
	m.On("Send", mock.Anything, mock.Anything, mock.Anything).Panic("boom")

	s := New(m, newRegistry(t), testConfig())
	rec := postJSON(s.Handler(), "/templates/user-login", `{"from":"a@example.com","to":"b@example.com"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Internal Server Error", decodeError(t, rec)["name"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := New(&MockMailer{}, newRegistry(t), testConfig(),
		WithHealthCheck("smtp", func(context.Context) error { return errors.New("connection refused") }),
	)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	var hooks []string
	s := New(&MockMailer{}, newRegistry(t), testConfig(),
		WithShutdownHook(func(context.Context) error { hooks = append(hooks, "pool"); return nil }),
		WithShutdownHook(func(context.Context) error { hooks = append(hooks, "db"); return nil }),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health/live")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	require.Equal(t, []string{"pool", "db"}, hooks)
}

func TestServe_HookError(t *testing.T) {
	t.Parallel()

	s := New(&MockMailer{}, newRegistry(t), testConfig(),
		WithShutdownHook(func(context.Context) error { return errors.New("close failed") }),
	)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorContains(t, s.Serve(ctx, ln), "close failed")
}

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
	}{
		{mailer.Classify(fmt.Errorf("%w: x", mailer.ErrTemplateNotFound)), http.StatusNotFound},
		{fmt.Errorf("%w: x", mailer.ErrInterpolation), http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrBadRequest("bad")), http.StatusBadRequest},
	}
	for _, tt := range tests {
		require.Equal(t, tt.code, AsHTTPError(tt.err).Code, tt.err.Error())
	}
	require.Nil(t, AsHTTPError(nil))
}
