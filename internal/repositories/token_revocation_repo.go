package repositories

import (
	"context"
	"time"

	"github.com/hanzideck/flashcard-api/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRevocationRepository stores the ids of session tokens ended by logout
type SessionRevocationRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRevocationRepository(db *database.DB) *SessionRevocationRepository {
	return &SessionRevocationRepository{pool: db.Pool}
}

// RevokeSession blacklists a session token id until the token would have expired anyway
func (r *SessionRevocationRepository) RevokeSession(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_sessions (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, jti, userID, expiresAt)
	return database.MapPostgresError(err)
}

// IsSessionRevoked checks if a session token id is blacklisted
func (r *SessionRevocationRepository) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_sessions WHERE jti = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, jti).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}

	return exists, nil
}

// CleanupExpired removes blacklist rows whose tokens have expired
func (r *SessionRevocationRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM revoked_sessions WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
