package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"storefront/internal/client"
	"storefront/internal/model"
)

const profilesTable = "profiles"

type profileRestRepoImpl struct {
	rest client.SupabaseClient
}

func NewProfileRestRepository(rest client.SupabaseClient) ProfileRepository {
	return &profileRestRepoImpl{
		rest: rest,
	}
}

// profileInsert never carries is_admin; that flag is managed in the database.
type profileInsert struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type profileUpdate struct {
	model.ProfilePatch
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *profileRestRepoImpl) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	body, err := r.rest.SelectSingle(ctx, profilesTable, url.Values{
		"select": {"*"},
		"id":     {client.Eq(userID)},
	})
	if client.IsNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var profile model.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRestRepoImpl) Create(ctx context.Context, profile *model.UserProfile) error {
	_, err := r.rest.Insert(ctx, profilesTable, profileInsert{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		CreatedAt: profile.CreatedAt.UTC(),
	}, nil)
	return err
}

func (r *profileRestRepoImpl) Update(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) error {
	body, err := r.rest.Update(ctx, profilesTable, profileUpdate{
		ProfilePatch: patch,
		UpdatedAt:    updatedAt.UTC(),
	}, url.Values{"id": {client.Eq(userID)}})
	if err != nil {
		return err
	}
	if rowCount(body) == 0 {
		return model.ErrNotFound
	}
	return nil
}
