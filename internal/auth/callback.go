package auth

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Redirect targets of the callback.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// FlashCookie carries a one-time toast to the next page.
const FlashCookie = "sokoni_flash"

// Flash is a toast message shown after a redirect.
type Flash struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

var (
	flashVerified = Flash{
		Title:       "Email verified!",
		Description: "Your account has been activated successfully.",
	}
	flashAuthError = Flash{
		Title:       "Authentication error",
		Description: "Something went wrong during authentication. Please try again.",
		Variant:     "destructive",
	}
)

// SetFlash stores f in a short-lived cookie.
func SetFlash(w http.ResponseWriter, f Flash) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadFlash decodes the flash cookie of r, if any.
func ReadFlash(r *http.Request) (Flash, bool) {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return Flash{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Flash{}, false
	}
	var f Flash
	if err := json.Unmarshal(data, &f); err != nil {
		return Flash{}, false
	}
	return f, true
}

// Callback completes the email verification redirect: it resolves the
// session, makes sure the user has a profile and forwards to the dashboard.
type Callback struct {
	sessions SessionProvider
	profiles ProfileStore
	logger   *slog.Logger
}

// NewCallback creates the callback handler.
func NewCallback(sessions SessionProvider, profiles ProfileStore, logger *slog.Logger) *Callback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Callback{sessions: sessions, profiles: profiles, logger: logger}
}

// ServeHTTP implements http.Handler.
func (c *Callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := c.sessions.Resolve(ctx, accessToken(r))
	if err != nil {
		c.logger.Error("auth callback error", "error", err)
		SetFlash(w, flashAuthError)
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}
	if user == nil {
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	existing, err := c.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		c.logger.Warn("failed to look up profile", "user_id", user.ID, "error", err)
	}
	if existing == nil {
		if err := c.profiles.Insert(ctx, NewProfile(user)); err != nil {
			c.logger.Error("error creating profile", "user_id", user.ID, "error", err)
		}
	}

	SetFlash(w, flashVerified)
	http.Redirect(w, r, DashboardPath, http.StatusFound)
}

// accessToken reads the token from the query string, the Authorization
// header or the Supabase auth cookie.
func accessToken(r *http.Request) string {
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie("sb-access-token"); err == nil {
		return c.Value
	}
	return ""
}
