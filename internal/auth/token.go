package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hanzideck/flashcard-api/internal/models"
)

// DefaultSessionExpiry is the lifetime of a session token when none is configured
const DefaultSessionExpiry = 7 * 24 * time.Hour

// IssuedSession is a freshly signed session token with the data needed to revoke it later
type IssuedSession struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager handles JWT session token generation and validation
type TokenManager struct {
	secret        []byte
	sessionExpiry time.Duration
	clock         Clock
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, sessionExpiry time.Duration, clock Clock) *TokenManager {
	if sessionExpiry <= 0 {
		sessionExpiry = DefaultSessionExpiry
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &TokenManager{
		secret:        []byte(secret),
		sessionExpiry: sessionExpiry,
		clock:         clock,
	}
}

// SessionExpiry returns the configured session lifetime
func (tm *TokenManager) SessionExpiry() time.Duration {
	return tm.sessionExpiry
}

// GenerateSessionToken creates a session token with a unique JTI
func (tm *TokenManager) GenerateSessionToken(userID string) (*IssuedSession, error) {
	now := tm.clock.Now()
	jti := uuid.New().String()
	expiresAt := now.Add(tm.sessionExpiry)

	claims := &models.TokenClaims{
		Type:   models.TokenTypeSession,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &IssuedSession{
		Token:     tokenString,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken verifies a session token and returns its claims.
// Every failure is reported as models.ErrUnauthorized.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: session expired", models.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeSession {
		return nil, fmt.Errorf("%w: unexpected token type %q", models.ErrUnauthorized, claims.Type)
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: incomplete session claims", models.ErrUnauthorized)
	}

	return claims, nil
}
