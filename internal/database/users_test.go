package database

import (
	"context"
	"testing"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := &models.User{Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, db.CreateUser(ctx, alice))
	assert.NotZero(t, alice.ID)

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{Name: "Other", Email: "alice@example.com"})
		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})

	t.Run("GetAndExists", func(t *testing.T) {
		got, err := db.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)

		ok, err := db.UserExists(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.UserExists(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = db.GetUserByID(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		bob := &models.User{Name: "Bob", Email: "bob@example.com"}
		require.NoError(t, db.CreateUser(ctx, bob))

		bob.Email = "alice@example.com"
		assert.ErrorIs(t, db.UpdateUser(ctx, bob), domain.ErrEmailExists)

		bob.Email = "robert@example.com"
		require.NoError(t, db.UpdateUser(ctx, bob))
		got, err := db.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "robert@example.com", got.Email)

		assert.ErrorIs(t, db.UpdateUser(ctx, &models.User{ID: 999, Name: "x", Email: "x@example.com"}), domain.ErrUserNotFound)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		users, err := db.GetAllUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		require.NoError(t, db.DeleteUser(ctx, alice.ID))
		assert.ErrorIs(t, db.DeleteUser(ctx, alice.ID), domain.ErrUserNotFound)
	})
}
