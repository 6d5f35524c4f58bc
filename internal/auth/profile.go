package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/sokoniarena/sokoni/internal/supabase"
)

// Profile is a row of the profiles table.
type Profile struct {
	ID         string `json:"id,omitempty"`
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Phone      string `json:"phone"`
	IsVerified bool   `json:"is_verified"`
}

// ProfileStore reads and creates profiles. FindByUserID returns a nil
// profile and nil error when none exists.
type ProfileStore interface {
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	Insert(ctx context.Context, p Profile) error
}

// NewProfile derives the initial profile of a user.
func NewProfile(user *supabase.User) Profile {
	username, _ := user.UserMetadata["username"].(string)
	if username == "" {
		username, _, _ = strings.Cut(user.Email, "@")
	}
	phone, _ := user.UserMetadata["phone"].(string)

	return Profile{
		UserID:     user.ID,
		Email:      user.Email,
		Username:   username,
		Phone:      phone,
		IsVerified: user.EmailConfirmedAt != nil,
	}
}

// SupabaseProfiles is a ProfileStore over PostgREST.
type SupabaseProfiles struct {
	client *supabase.Client
}

// NewSupabaseProfiles creates a profile store over client.
func NewSupabaseProfiles(client *supabase.Client) *SupabaseProfiles {
	return &SupabaseProfiles{client: client}
}

// FindByUserID implements ProfileStore.
func (s *SupabaseProfiles) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.client.From("profiles").Select("id,user_id").Eq("user_id", userID).Single().Execute(ctx, &p)
	if errors.Is(err, supabase.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert implements ProfileStore.
func (s *SupabaseProfiles) Insert(ctx context.Context, p Profile) error {
	return s.client.From("profiles").Insert(ctx, p)
}
