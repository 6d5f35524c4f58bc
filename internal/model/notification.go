// Package model defines the core data structures for sokoni.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Default notification assets served by the web app.
const (
	DefaultIcon  = "/pwa-192x192.svg"
	DefaultBadge = "/pwa-192x192.svg"
)

// MessagePreviewLimit is the maximum number of characters of a message
// preview shown in a notification body before it is cut with an ellipsis.
const MessagePreviewLimit = 100

// Payload types carried in NotificationPayload.Data["type"].
const (
	PayloadTypeMessage = "message"
)

// Validation errors.
var (
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// NotificationPayload is a single locally triggered notification.
// Tag deduplicates: a new payload replaces any visible one with the same tag.
type NotificationPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Icon  string         `json:"icon,omitempty"`
	Badge string         `json:"badge,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Validate checks that the payload has the required fields.
func (p *NotificationPayload) Validate() error {
	if p.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// WithDefaults returns a copy with icon, and optionally badge, filled in
// when unset.
func (p NotificationPayload) WithDefaults(icon, badge string) NotificationPayload {
	if p.Icon == "" {
		p.Icon = icon
	}
	if p.Badge == "" {
		p.Badge = badge
	}
	return p
}

// DataString returns a string value from Data, or "" if absent.
func (p *NotificationPayload) DataString(key string) string {
	if p.Data == nil {
		return ""
	}
	if s, ok := p.Data[key].(string); ok {
		return s
	}
	return ""
}

// NewDeliveryID returns a sortable unique identifier for a delivery attempt.
func NewDeliveryID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// MessageTag returns the notification tag for a conversation.
// Messages without a conversation share the "message-new" tag.
func MessageTag(conversationID string) string {
	if conversationID == "" {
		return "message-new"
	}
	return "message-" + conversationID
}

// TruncatePreview cuts s to limit characters and appends "..." if it was
// longer. Counting is per rune so multi-byte text is never split.
func TruncatePreview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// CollapseWhitespace joins runs of whitespace and newlines into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
