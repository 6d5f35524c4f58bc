package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

const maxHookBody = 1 << 20

// HookPayload is the body of the Supabase send-email hook.
type HookPayload struct {
	User struct {
		Email string `json:"email"`
	} `json:"user"`
	EmailData struct {
		Token           string `json:"token"`
		TokenHash       string `json:"token_hash"`
		RedirectTo      string `json:"redirect_to"`
		EmailActionType string `json:"email_action_type"`
		SiteURL         string `json:"site_url"`
	} `json:"email_data"`
}

// HandlerConfig configures the webhook handler. A nil Sender means the
// email service is not configured; an empty HookSecret skips verification.
type HandlerConfig struct {
	Sender        Sender
	HookSecret    string
	Tolerance     time.Duration
	SupabaseURL   string
	ProductionURL string
	From          Address
	Subject       string
	Logger        *slog.Logger
}

// Handler serves the send-email hook.
type Handler struct {
	cfg      HandlerConfig
	verifier *Verifier
	renderer *Renderer
	logger   *slog.Logger
}

// NewHandler creates the hook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{cfg: cfg, renderer: NewRenderer(), logger: logger}
	if cfg.HookSecret != "" {
		v, err := NewVerifier(cfg.HookSecret, cfg.Tolerance)
		if err != nil {
			return nil, err
		}
		h.verifier = v
	}
	return h, nil
}

type hookError struct {
	HTTPCode int    `json:"http_code,omitempty"`
	Message  string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.cfg.Sender == nil {
		h.logger.Error("brevo api key is not configured")
		writeJSON(w, http.StatusInternalServerError, map[string]hookError{
			"error": {Message: "Email service not configured"},
		})
		return
	}

	reqID := r.Header.Get(HeaderID)
	if reqID == "" {
		reqID = ulid.Make().String()
	}
	logger := h.logger.With("hook_id", reqID)

	if err := h.deliver(r, logger); err != nil {
		logger.Error("error sending confirmation email", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]hookError{
			"error": {HTTPCode: http.StatusInternalServerError, Message: err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) deliver(r *http.Request, logger *slog.Logger) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxHookBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r.Header, body); err != nil {
			return err
		}
	}

	var payload HookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if payload.User.Email == "" {
		return errors.New("payload has no recipient email")
	}

	link := ConfirmationURL(h.cfg.SupabaseURL, payload.EmailData.TokenHash,
		payload.EmailData.EmailActionType, h.cfg.ProductionURL)

	logger.Info("sending confirmation email", "to", payload.User.Email, "type", payload.EmailData.EmailActionType)

	rendered, err := h.renderer.Render(Confirmation{
		ConfirmationURL: link,
		SiteURL:         h.cfg.ProductionURL,
		Subject:         h.cfg.Subject,
	})
	if err != nil {
		return err
	}

	result, err := h.cfg.Sender.Send(r.Context(), Message{
		Sender:      h.cfg.From,
		To:          []Address{{Email: payload.User.Email}},
		Subject:     h.cfg.Subject,
		HTMLContent: rendered.HTML,
		TextContent: rendered.Text,
	})
	if err != nil {
		return err
	}
	logger.Info("email sent", "message_id", result.MessageID)
	return nil
}
