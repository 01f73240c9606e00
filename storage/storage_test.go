package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncUser_InsertsNewUser(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	email := gofakeit.Email()
	user, err := store.SyncUser(context.Background(), UserProfile{
		ExternalID: "user_abc",
		Email:      email,
		FullName:   "Nurse Joy",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "user_abc", user.ExternalID)
	assert.Equal(t, email, user.Email)
	assert.False(t, user.ImageUrl.Valid)
}

func TestSyncUser_KeepsLocalIDOnUpdate(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx := context.Background()
	first, err := store.SyncUser(ctx, UserProfile{ExternalID: "user_abc", Email: "old@example.com", FullName: "Old"})
	require.NoError(t, err)

	second, err := store.SyncUser(ctx, UserProfile{
		ExternalID: "user_abc",
		Email:      "new@example.com",
		FullName:   "New",
		ImageURL:   "https://img.example.com/a.png",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@example.com", second.Email)
	assert.Equal(t, sql.NullString{String: "https://img.example.com/a.png", Valid: true}, second.ImageUrl)

	byID, err := store.Queries.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", byID.FullName)
}

func TestSyncUser_RequiresExternalID(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, err = store.SyncUser(context.Background(), UserProfile{Email: "x@example.com"})
	assert.Error(t, err)
}

func TestGetUserByExternalID_NotFound(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, err = store.Queries.GetUserByExternalID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFindOrCreateUserByEmail_CreatesOnce(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx := context.Background()
	email := gofakeit.Email()

	created, err := store.FindOrCreateUserByEmail(ctx, email, "Dana")
	require.NoError(t, err)
	assert.Equal(t, "email:"+email, created.ExternalID)
	assert.Equal(t, "Dana", created.FullName)

	found, err := store.FindOrCreateUserByEmail(ctx, email, "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Dana", found.FullName)
}

func TestFindOrCreateUserByEmail_ReusesSyncedUser(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx := context.Background()
	synced, err := store.SyncUser(ctx, UserProfile{ExternalID: "user_abc", Email: "chef@example.com", FullName: "Chef"})
	require.NoError(t, err)

	found, err := store.FindOrCreateUserByEmail(ctx, "chef@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, synced.ID, found.ID)
	assert.Equal(t, "user_abc", found.ExternalID)
}

func TestFindOrCreateUserByEmail_RequiresEmail(t *testing.T) {
	store, cleanup, err := NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	_, err = store.FindOrCreateUserByEmail(context.Background(), "", "Nobody")
	assert.Error(t, err)
}
