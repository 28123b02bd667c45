package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

func TestProfileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(newTestDB(t))

	_, err := repo.FindByID(ctx, "user-1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &model.UserProfile{ID: "user-1", Email: "ann@shop.com", CreatedAt: created}))

	got, err := repo.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ann@shop.com", got.Email)
	assert.Empty(t, got.FullName)
	assert.Nil(t, got.UpdatedAt)

	name := "Ann Lee"
	avatar := "https://cdn/avatar.png"
	updatedAt := created.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, "user-1", model.ProfilePatch{FullName: &name, AvatarURL: &avatar}, updatedAt))

	got, err = repo.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.FullName)
	assert.Equal(t, avatar, got.AvatarURL)
	require.NotNil(t, got.UpdatedAt)

	empty := ""
	require.NoError(t, repo.Update(ctx, "user-1", model.ProfilePatch{AvatarURL: &empty}, updatedAt))
	got, err = repo.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, got.AvatarURL)
	assert.Equal(t, "Ann Lee", got.FullName)

	err = repo.Update(ctx, "ghost", model.ProfilePatch{FullName: &name}, updatedAt)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
