// Package auth resolves Supabase sessions and handles the email
// verification callback.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sokoniarena/sokoni/internal/supabase"
)

// ErrNoVerifier is returned when neither a JWT secret nor a Supabase
// client is configured.
var ErrNoVerifier = errors.New("no token verifier configured")

// SessionProvider resolves the user behind an access token. A nil user
// with a nil error means there is no session.
type SessionProvider interface {
	Resolve(ctx context.Context, accessToken string) (*supabase.User, error)
}

// TokenVerifier verifies access tokens locally with the project's JWT
// secret and falls back to the GoTrue user endpoint.
type TokenVerifier struct {
	secret []byte
	client *supabase.Client
	logger *slog.Logger
}

// NewTokenVerifier creates a verifier. Either secret or client may be empty.
func NewTokenVerifier(secret string, client *supabase.Client, logger *slog.Logger) *TokenVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &TokenVerifier{client: client, logger: logger}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// Resolve implements SessionProvider.
func (v *TokenVerifier) Resolve(ctx context.Context, accessToken string) (*supabase.User, error) {
	if accessToken == "" {
		return nil, nil
	}

	if len(v.secret) > 0 {
		user, err := v.validateLocal(accessToken)
		if err == nil {
			return user, nil
		}
		if v.client == nil {
			return nil, err
		}
		v.logger.Debug("local token verification failed, asking supabase", "error", err)
	}

	if v.client == nil {
		return nil, ErrNoVerifier
	}
	user, err := v.client.GetUser(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	return user, nil
}

func (v *TokenVerifier) validateLocal(token string) (*supabase.User, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("jwt invalid")
	}

	user := &supabase.User{
		ID:           stringClaim(claims, "sub"),
		Email:        stringClaim(claims, "email"),
		Phone:        stringClaim(claims, "phone"),
		Role:         stringClaim(claims, "role"),
		UserMetadata: mapClaim(claims, "user_metadata"),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("jwt has no subject")
	}
	if t := timeClaim(claims, "email_confirmed_at"); !t.IsZero() {
		user.EmailConfirmedAt = &t
	} else if verified, _ := user.UserMetadata["email_verified"].(bool); verified {
		now := time.Now()
		user.EmailConfirmedAt = &now
	}
	return user, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}

func mapClaim(claims jwt.MapClaims, key string) map[string]any {
	if m, ok := claims[key].(map[string]any); ok {
		return m
	}
	return nil
}

func timeClaim(claims jwt.MapClaims, key string) time.Time {
	switch v := claims[key].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
