package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hanzideck/flashcard-api/internal/auth"
	"github.com/hanzideck/flashcard-api/internal/models"
	pkgauth "github.com/hanzideck/flashcard-api/pkg/auth"
	pkglogger "github.com/hanzideck/flashcard-api/pkg/logger"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// UserRepository defines the user persistence operations the auth flow needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionRevocationRepository defines the interface for ending sessions server side
type SessionRevocationRepository interface {
	RevokeSession(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

// LoginGuard tracks failed password checks per client address
type LoginGuard interface {
	IsLockedOut(clientID string) (bool, int)
	RecordFailedAttempt(clientID string) (bool, int, int)
	ClearAttempts(clientID string)
}

// Session is an authenticated user together with a freshly issued session token
type Session struct {
	User  *models.User
	Token *auth.IssuedSession
}

// UsernameValidationError describes why a username was rejected
type UsernameValidationError struct {
	Reason string
}

func (e *UsernameValidationError) Error() string {
	return e.Reason
}

// AuthService handles authentication business logic
type AuthService struct {
	repo                UserRepository
	revokeRepo          SessionRevocationRepository
	guard               LoginGuard
	tm                  *auth.TokenManager
	logger              *slog.Logger
	auditLogger         *pkglogger.AuditLogger
	registrationEnabled bool
}

// NewAuthService creates a new AuthService
func NewAuthService(repo UserRepository, revokeRepo SessionRevocationRepository, guard LoginGuard, tm *auth.TokenManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, registrationEnabled bool) *AuthService {
	return &AuthService{
		repo:                repo,
		revokeRepo:          revokeRepo,
		guard:               guard,
		tm:                  tm,
		logger:              logger,
		auditLogger:         auditLogger,
		registrationEnabled: registrationEnabled,
	}
}

// RegistrationEnabled reports whether new accounts may be created
func (s *AuthService) RegistrationEnabled() bool {
	return s.registrationEnabled
}

// Login verifies email and password for the client at clientIP.
//
// A locked out client gets a *models.LockoutError before any account lookup. Unknown
// accounts, OAuth-only accounts and wrong passwords are all recorded as one failure and
// reported identically, as *models.CredentialsError or, when that failure triggers the
// lockout, *models.LockoutError.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*Session, error) {
	if locked, retryAfter := s.guard.IsLockedOut(clientIP); locked {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginBlocked,
			IPAddress:     clientIP,
			FailureReason: "locked_out",
		})
		return nil, &models.LockoutError{RetryAfter: time.Duration(retryAfter) * time.Second}
	}

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failLogin(ctx, clientIP, email, "", "invalid_credentials")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.HasPassword() {
		return nil, s.failLogin(ctx, clientIP, email, user.ID, "oauth_only_account")
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, clientIP, email, user.ID, "invalid_credentials")
	}

	// The credentials were right; the client is no longer guessing.
	s.guard.ClearAttempts(clientIP)

	if !user.IsActive {
		s.logger.Info("login blocked: account deactivated", slog.String("user_id", user.ID))
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			IPAddress:     clientIP,
			FailureReason: "account_disabled",
		})
		return nil, models.ErrAccountDisabled
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return session, nil
}

// failLogin records one failed credential check and builds the error the caller reports
func (s *AuthService) failLogin(ctx context.Context, clientIP, email, userID, reason string) error {
	nowLocked, remaining, lockoutSeconds := s.guard.RecordFailedAttempt(clientIP)

	s.logger.Info("login failed",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("reason", reason),
		slog.Int("remaining_attempts", remaining))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailed,
		UserID:        userID,
		IPAddress:     clientIP,
		FailureReason: reason,
	})

	if nowLocked {
		return &models.LockoutError{RetryAfter: time.Duration(lockoutSeconds) * time.Second}
	}
	return &models.CredentialsError{RemainingAttempts: remaining}
}

// Register creates a password account and signs it in
func (s *AuthService) Register(ctx context.Context, email, username, password, clientIP string) (*Session, error) {
	if !s.registrationEnabled {
		return nil, models.ErrRegistrationDisabled
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}

	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if email exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, models.ErrUsernameTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if username exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	createdUser, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		IsActive:     true,
	})
	if err != nil {
		// A concurrent registration can still hit the unique constraints
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session, err := s.issueSession(createdUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    createdUser.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return session, nil
}

// Refresh issues a new session token for an already authenticated user
func (s *AuthService) Refresh(ctx context.Context, user *models.User) (*Session, error) {
	if !user.IsActive {
		return nil, models.ErrAccountDisabled
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session refreshed", slog.String("user_id", user.ID))
	return session, nil
}

// Logout revokes the session token so it cannot be replayed before it expires.
// Missing or invalid tokens are not an error; the caller clears the cookie either way.
func (s *AuthService) Logout(ctx context.Context, tokenString, clientIP string) error {
	if strings.TrimSpace(tokenString) == "" {
		return nil
	}

	claims, err := s.tm.ValidateToken(tokenString)
	if err != nil {
		return nil
	}

	if err := s.revokeRepo.RevokeSession(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to revoke session", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    claims.UserID,
		IPAddress: clientIP,
		Success:   true,
	})

	return nil
}

// ChangePassword replaces the password of a password account after verifying the current one
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword, clientIP string) error {
	if !user.HasPassword() {
		return models.ErrOAuthOnlyAccount
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventPasswordChange,
			UserID:        user.ID,
			IPAddress:     clientIP,
			FailureReason: "invalid_current_password",
		})
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordChange,
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return nil
}

func (s *AuthService) issueSession(user *models.User) (*Session, error) {
	token, err := s.tm.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &Session{User: user, Token: token}, nil
}

// NormalizeUsername trims and lowercases a username and checks its length and characters
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return "", &UsernameValidationError{
			Reason: fmt.Sprintf("Username must be %d-%d characters", MinUsernameLen, MaxUsernameLen),
		}
	}
	if !usernamePattern.MatchString(username) {
		return "", &UsernameValidationError{
			Reason: "Username can only contain letters, numbers, underscores, and hyphens",
		}
	}

	return strings.ToLower(username), nil
}
