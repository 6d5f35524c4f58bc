package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = "v1,whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-hook-key"))

const hookBody = `{"user":{"email":"amina@example.com"},"email_data":{"token":"123456","token_hash":"abc123","redirect_to":"http://localhost:3000","email_action_type":"signup","site_url":"http://localhost:3000"}}`

func signedHeader(t *testing.T, v *Verifier, id string, ts time.Time, body string) http.Header {
	t.Helper()
	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(HeaderSignature, v.Sign(id, ts, []byte(body)))
	return h
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier(testSecret, 0)
	require.NoError(t, err)

	_, err = NewVerifier("whsec_"+base64.StdEncoding.EncodeToString([]byte("k")), 0)
	require.NoError(t, err)

	_, err = NewVerifier("v1,whsec_!!notbase64", 0)
	assert.Error(t, err)
}

func TestVerifier_Verify(t *testing.T) {
	v, err := NewVerifier(testSecret, 0)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	t.Run("valid", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, hookBody)
		assert.NoError(t, v.Verify(h, []byte(hookBody)))
	})

	t.Run("one of several signatures", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, hookBody)
		h.Set(HeaderSignature, "v1,bogus v2,other "+h.Get(HeaderSignature))
		assert.NoError(t, v.Verify(h, []byte(hookBody)))
	})

	t.Run("tampered body", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, hookBody)
		assert.ErrorIs(t, v.Verify(h, []byte(hookBody+" ")), ErrInvalidSignature)
	})

	t.Run("other id", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now, hookBody)
		h.Set(HeaderID, "msg_2")
		assert.ErrorIs(t, v.Verify(h, []byte(hookBody)), ErrInvalidSignature)
	})

	t.Run("stale", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now.Add(-6*time.Minute), hookBody)
		assert.ErrorIs(t, v.Verify(h, []byte(hookBody)), ErrTimestampOutOfRange)
	})

	t.Run("future", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now.Add(6*time.Minute), hookBody)
		assert.ErrorIs(t, v.Verify(h, []byte(hookBody)), ErrTimestampOutOfRange)
	})

	t.Run("within tolerance", func(t *testing.T) {
		h := signedHeader(t, v, "msg_1", now.Add(-4*time.Minute), hookBody)
		assert.NoError(t, v.Verify(h, []byte(hookBody)))
	})

	t.Run("missing headers", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(http.Header{}, []byte(hookBody)), ErrMissingHeaders)
	})
}

func TestConfirmationURL(t *testing.T) {
	got := ConfirmationURL("https://proj.supabase.co/", "abc123", "signup", "https://sokoniarena.co.ke")
	assert.Equal(t,
		"https://proj.supabase.co/auth/v1/verify?token=abc123&type=signup&redirect_to=https%3A%2F%2Fsokoniarena.co.ke",
		got)
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	link := ConfirmationURL("https://proj.supabase.co", "abc123", "signup", "https://sokoniarena.co.ke")

	out, err := r.Render(Confirmation{
		ConfirmationURL: link,
		SiteURL:         "https://sokoniarena.co.ke",
		Subject:         "Complete Your SokoniArena Signup",
		Year:            2026,
	})
	require.NoError(t, err)

	assert.Contains(t, out.HTML, "Complete Your Signup")
	assert.Contains(t, out.HTML, "&copy; 2026 SokoniArena")
	assert.Contains(t, out.HTML, "token=abc123&amp;type=signup")
	assert.Contains(t, out.Text, "Complete Signup")
	assert.Contains(t, out.Text, "https://sokoniarena.co.ke/terms")
	assert.NotContains(t, out.Text, "<p")
}

func TestBrevoClient_Send(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<m1@smtp-relay>"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("key-1", srv.URL, nil)
	res, err := c.Send(context.Background(), Message{
		Sender:  Address{Name: "SokoniArena", Email: "noreply@sokoniarena.co.ke"},
		To:      []Address{{Email: "amina@example.com"}},
		Subject: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "<m1@smtp-relay>", res.MessageID)
	assert.Equal(t, "amina@example.com", got.To[0].Email)
	assert.Equal(t, "SokoniArena", got.Sender.Name)
}

func TestBrevoClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewBrevoClient("bad", srv.URL, nil).Send(context.Background(), Message{})
	assert.EqualError(t, err, `Brevo API error: 401 - {"code":"unauthorized"}`)

	_, err = NewBrevoClient("", srv.URL, nil).Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) (*SendResult, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &SendResult{MessageID: "m1"}, nil
}

func newTestHandler(t *testing.T, sender Sender, secret string) *Handler {
	t.Helper()
	cfg := HandlerConfig{
		HookSecret:    secret,
		SupabaseURL:   "https://proj.supabase.co",
		ProductionURL: "https://sokoniarena.co.ke",
		From:          Address{Name: "SokoniArena", Email: "noreply@sokoniarena.co.ke"},
		Subject:       "Complete Your SokoniArena Signup",
	}
	if sender != nil {
		cfg.Sender = sender
	}
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	return h
}

func post(h http.Handler, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks/send-email", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &fakeSender{}, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hooks/send-email", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed\n", rec.Body.String())
}

func TestHandler_NotConfigured(t *testing.T) {
	rec := post(newTestHandler(t, nil, ""), hookBody, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"Email service not configured"}}`, rec.Body.String())
}

func TestHandler_UnverifiedDelivery(t *testing.T) {
	sender := &fakeSender{}
	rec := post(newTestHandler(t, sender, ""), hookBody, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "amina@example.com", msg.To[0].Email)
	assert.Equal(t, "Complete Your SokoniArena Signup", msg.Subject)
	assert.Equal(t, "noreply@sokoniarena.co.ke", msg.Sender.Email)
	assert.Contains(t, msg.HTMLContent, "redirect_to=https%3A%2F%2Fsokoniarena.co.ke")
	assert.NotContains(t, msg.HTMLContent, "localhost")
	assert.NotEmpty(t, msg.TextContent)
}

func TestHandler_SignedDelivery(t *testing.T) {
	sender := &fakeSender{}
	h := newTestHandler(t, sender, testSecret)

	rec := post(h, hookBody, signedHeader(t, h.verifier, "msg_1", time.Now(), hookBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sender.sent, 1)

	rec = post(h, hookBody, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.EqualValues(t, 500, errObj["http_code"])
	assert.Equal(t, ErrMissingHeaders.Error(), errObj["message"])
	assert.Len(t, sender.sent, 1)
}

func TestHandler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		sender  *fakeSender
		body    string
		message string
	}{
		{"bad json", &fakeSender{}, `{`, "invalid payload"},
		{"no recipient", &fakeSender{}, `{"user":{},"email_data":{}}`, "no recipient"},
		{"send failure", &fakeSender{err: errors.New("Brevo API error: 400 - bad")}, hookBody, "Brevo API error: 400 - bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(newTestHandler(t, tt.sender, ""), tt.body, nil)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			errObj := decodeBody(t, rec)["error"].(map[string]any)
			assert.EqualValues(t, 500, errObj["http_code"])
			assert.Contains(t, errObj["message"], tt.message)
		})
	}
}
