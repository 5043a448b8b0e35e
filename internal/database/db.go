package database

import (
	"errors"

	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraints the repositories translate into domain errors
const (
	ConstraintUsersEmail    = "users_email_key"
	ConstraintUsersEmailCI  = "users_email_lower_idx"
	ConstraintUsersUsername = "users_username_key"
)

func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case ConstraintUsersEmail, ConstraintUsersEmailCI:
				return models.ErrEmailTaken
			case ConstraintUsersUsername:
				return models.ErrUsernameTaken
			}
			return models.ErrConflict
		case "23503": // foreign_key_violation
			return models.ErrBadRequest
		case "23502": // not_null_violation
			return models.ErrBadRequest
		}
	}

	return err
}
