// Package mailer delivers the signup confirmation email requested by the
// Supabase send-email auth hook.
package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Standard Webhooks headers.
const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

// DefaultTolerance bounds the clock skew accepted between sender and receiver.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature    = errors.New("no matching signature found")
	ErrTimestampOutOfRange = errors.New("message timestamp out of range")
	ErrMissingHeaders      = errors.New("missing required headers")
)

// Verifier checks Standard Webhooks signatures.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier from a hook secret. Both the Supabase form
// "v1,whsec_<base64>" and the bare "whsec_<base64>" are accepted.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimPrefix(secret, "v1,")
	secret = strings.TrimPrefix(secret, "whsec_")
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode hook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("hook secret is empty")
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Sign returns the v1 signature of body for the given message id and time.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) string {
	return "v1," + v.sign(id, strconv.FormatInt(ts.Unix(), 10), body)
}

func (v *Verifier) sign(id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature headers of a delivery against body.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	id := header.Get(HeaderID)
	ts := header.Get(HeaderTimestamp)
	sigs := header.Get(HeaderSignature)
	if id == "" || ts == "" || sigs == "" {
		return ErrMissingHeaders
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", ts, ErrTimestampOutOfRange)
	}
	skew := v.now().Sub(time.Unix(sec, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return ErrTimestampOutOfRange
	}

	expected := []byte(v.sign(id, ts, body))
	for _, candidate := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}
