//go:build integration

package repositories

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hanzideck/flashcard-api/internal/database"
	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a disposable Postgres, applies the embedded migrations and returns a DB wrapper
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("flashcards"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()
	require.NoError(t, database.MigrateDB(ctx, sqlDB, database.MigrateUp))

	return database.NewFromPool(pool, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func newTestUser(email, username string) *models.User {
	return &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuuMbd7E1Q5O0q0RMVYQFrt7O4mF3Ytq5y",
		IsActive:     true,
	}
}

func TestUserRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestUser("Alice@Example.com", "alice"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.HasPassword())

	t.Run("lookup by id", func(t *testing.T) {
		user, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("email lookup ignores case", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "alice@example.COM")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("username lookup", func(t *testing.T) {
		user, err := repo.GetByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestUser("alice@example.com", "alice2"))
		assert.ErrorIs(t, err, models.ErrEmailTaken)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestUser("other@example.com", "alice"))
		assert.ErrorIs(t, err, models.ErrUsernameTaken)
	})

	t.Run("oauth only user has no password", func(t *testing.T) {
		provider := models.OAuthProviderGitHub
		oauthID := "12345"
		user, err := repo.Create(ctx, &models.User{
			Email:         "gh@example.com",
			Username:      "ghuser",
			OAuthProvider: &provider,
			OAuthID:       &oauthID,
			IsActive:      true,
		})
		require.NoError(t, err)
		assert.False(t, user.HasPassword())
		require.NotNil(t, user.OAuthProvider)
		assert.Equal(t, "github", *user.OAuthProvider)
	})

	t.Run("update password", func(t *testing.T) {
		newHash := "$2a$12$" + strings.Repeat("z", 53)
		require.NoError(t, repo.UpdatePassword(ctx, created.ID, newHash))

		user, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, newHash, user.PasswordHash)

		assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing-id", newHash), models.ErrNotFound)
	})
}

func TestSessionRevocationRepository_Integration(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewSessionRevocationRepository(db)
	ctx := context.Background()

	user, err := users.Create(ctx, newTestUser("bob@example.com", "bob"))
	require.NoError(t, err)

	revoked, err := repo.IsSessionRevoked(ctx, "jti-active")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.RevokeSession(ctx, "jti-active", user.ID, time.Now().Add(time.Hour)))
	require.NoError(t, repo.RevokeSession(ctx, "jti-active", user.ID, time.Now().Add(time.Hour)), "revoking twice is a no-op")
	require.NoError(t, repo.RevokeSession(ctx, "jti-expired", user.ID, time.Now().Add(-time.Hour)))

	revoked, err = repo.IsSessionRevoked(ctx, "jti-active")
	require.NoError(t, err)
	assert.True(t, revoked)

	removed, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	revoked, err = repo.IsSessionRevoked(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
