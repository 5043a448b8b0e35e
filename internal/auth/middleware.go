package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hanzideck/flashcard-api/internal/models"
	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the authenticated user in context
	UserContextKey contextKey = "user"
	// ClaimsContextKey is the key for storing the session claims in context
	ClaimsContextKey contextKey = "claims"
)

// SessionRevocationChecker reports whether a session token was ended by logout
type SessionRevocationChecker interface {
	IsSessionRevoked(ctx context.Context, jti string) (bool, error)
}

// UserRepository interface for fetching user data
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// RequireSession validates the session token, loads the user and injects both into context.
// The token is read from the session cookie first, then from an Authorization Bearer header.
func RequireSession(tm *TokenManager, users UserRepository, revocations SessionRevocationChecker, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := SessionTokenFromRequest(r)
			if tokenString == "" {
				pkghttp.WriteUnauthorized(w, "Not authenticated")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired session")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsSessionRevoked(r.Context(), claims.ID)
				if err != nil {
					// Fail closed: a session we cannot verify is not trusted
					logger.Error("session revocation check failed",
						slog.String("user_id", claims.UserID),
						slog.String("error", err.Error()))
					pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Unable to verify session")
					return
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "Session has been revoked")
					return
				}
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "User not found")
					return
				}
				logger.Error("failed to load session user",
					slog.String("user_id", claims.UserID),
					slog.String("error", err.Error()))
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}

			if !user.IsActive {
				pkghttp.WriteForbidden(w, "Account is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetClaimsFromContext extracts the session claims from request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// SessionTokenFromRequest returns the session token from the cookie or the Bearer header, or ""
func SessionTokenFromRequest(r *http.Request) string {
	if token, err := GetSessionCookie(r); err == nil && token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
