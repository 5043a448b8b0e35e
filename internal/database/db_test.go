package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"email unique", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintUsersEmail}, models.ErrEmailTaken},
		{"email case-insensitive unique", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintUsersEmailCI}, models.ErrEmailTaken},
		{"username unique", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintUsersUsername}, models.ErrUsernameTaken},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "revoked_sessions_pkey"}, models.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, models.ErrBadRequest},
		{"not null", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(MapPostgresError(tt.in), tt.want))
		})
	}
}

func TestMapPostgresError_PassThrough(t *testing.T) {
	assert.Nil(t, MapPostgresError(nil))

	other := errors.New("connection reset")
	assert.Equal(t, other, MapPostgresError(other))
}

func TestMigrateDB_UnknownDirection(t *testing.T) {
	err := MigrateDB(context.Background(), nil, "sideways")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
