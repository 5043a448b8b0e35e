package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hanzideck/flashcard-api/internal/auth"
	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/hanzideck/flashcard-api/internal/services"
	pkgauth "github.com/hanzideck/flashcard-api/pkg/auth"
	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
)

const invalidCredentialsMessage = "Invalid email or password"

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, clientIP string) (*services.Session, error)
	Register(ctx context.Context, email, username, password, clientIP string) (*services.Session, error)
	Refresh(ctx context.Context, user *models.User) (*services.Session, error)
	Logout(ctx context.Context, tokenString, clientIP string) error
	ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword, clientIP string) error
	RegistrationEnabled() bool
}

// AuthHandlerConfig holds the settings the auth endpoints expose or depend on
type AuthHandlerConfig struct {
	Cookie         auth.CookieConfig
	SessionExpiry  time.Duration
	IPConfig       *pkghttp.IPConfig
	OAuthEnabled   bool
	OAuthProviders []string
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	if config.OAuthProviders == nil {
		config.OAuthProviders = []string{}
	}
	return &AuthHandler{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Response DTOs

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	IsActive      bool      `json:"isActive"`
	IsAdmin       bool      `json:"isAdmin"`
	OAuthProvider *string   `json:"oauthProvider"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AuthConfigResponse tells the frontend which sign-in options to show
type AuthConfigResponse struct {
	RegistrationEnabled bool     `json:"registrationEnabled"`
	OAuthEnabled        bool     `json:"oauthEnabled"`
	OAuthProviders      []string `json:"oauthProviders"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		IsActive:      user.IsActive,
		IsAdmin:       user.IsAdmin,
		OAuthProvider: user.OAuthProvider,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// Config reports the enabled sign-in options
// @Router /auth/config [get]
func (h *AuthHandler) Config(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, AuthConfigResponse{
		RegistrationEnabled: h.service.RegistrationEnabled(),
		OAuthEnabled:        h.config.OAuthEnabled,
		OAuthProviders:      h.config.OAuthProviders,
	})
}

// Login handles email and password login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.config.IPConfig)

	session, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP)
	if err != nil {
		var lockErr *models.LockoutError
		var credErr *models.CredentialsError
		switch {
		case errors.As(err, &lockErr):
			seconds := int(lockErr.RetryAfter / time.Second)
			pkghttp.WriteRetryAfter(w, lockoutMessage(seconds), seconds)
		case errors.As(err, &credErr):
			pkghttp.WriteInvalidCredentials(w, invalidCredentialsMessage, credErr.RemainingAttempts)
		case errors.Is(err, models.ErrAccountDisabled):
			pkghttp.WriteForbidden(w, "Your account has been deactivated. Please contact an administrator.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, session.Token.Token, h.config.SessionExpiry, h.config.Cookie)
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(session.User))
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.service.RegistrationEnabled() {
		pkghttp.WriteForbidden(w, "Registration is disabled. Please contact an administrator.")
		return
	}

	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.config.IPConfig)

	session, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password, clientIP)
	if err != nil {
		var passwordErr *pkgauth.PasswordValidationError
		var usernameErr *services.UsernameValidationError
		switch {
		case errors.Is(err, models.ErrRegistrationDisabled):
			pkghttp.WriteForbidden(w, "Registration is disabled. Please contact an administrator.")
		case errors.Is(err, models.ErrEmailTaken):
			pkghttp.WriteBadRequest(w, "Email already registered")
		case errors.Is(err, models.ErrUsernameTaken):
			pkghttp.WriteBadRequest(w, "Username already taken")
		case errors.As(err, &passwordErr):
			pkghttp.WriteBadRequest(w, passwordErr.Reason)
		case errors.As(err, &usernameErr):
			pkghttp.WriteBadRequest(w, usernameErr.Reason)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration data")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, session.Token.Token, h.config.SessionExpiry, h.config.Cookie)
	pkghttp.WriteJSON(w, http.StatusCreated, userModelToResponse(session.User))
}

// Logout revokes the current session, if any, and clears the session cookie
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clientIP := pkghttp.ExtractClientIP(r, h.config.IPConfig)

	if err := h.service.Logout(r.Context(), auth.SessionTokenFromRequest(r), clientIP); err != nil {
		// The cookie is cleared regardless; the token just stays valid until it expires
		h.logger.Warn("logout could not revoke session", slog.Any("error", err))
	}

	auth.ClearSessionCookie(w, h.config.Cookie)
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Me returns the authenticated user
// @Security SessionCookie
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user))
}

// Refresh issues a new session cookie for the authenticated user
// @Security SessionCookie
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	session, err := h.service.Refresh(r.Context(), user)
	if err != nil {
		if errors.Is(err, models.ErrAccountDisabled) {
			pkghttp.WriteForbidden(w, "Account is deactivated")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.SetSessionCookie(w, session.Token.Token, h.config.SessionExpiry, h.config.Cookie)
	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(session.User))
}

// ChangePassword replaces the password of the authenticated user
// @Security SessionCookie
// @Accept json
// @Param request body ChangePasswordRequest true "Change password request"
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.config.IPConfig)

	err := h.service.ChangePassword(r.Context(), user, req.OldPassword, req.NewPassword, clientIP)
	if err != nil {
		var passwordErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrOAuthOnlyAccount):
			pkghttp.WriteBadRequest(w, "Cannot change password for OAuth accounts")
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteBadRequest(w, "Current password is incorrect")
		case errors.As(err, &passwordErr):
			pkghttp.WriteBadRequest(w, passwordErr.Reason)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// lockoutMessage phrases a lockout in whole minutes, rounded up
func lockoutMessage(seconds int) string {
	minutes := (seconds + 59) / 60
	if minutes <= 1 {
		return "Too many failed login attempts. Try again in 1 minute."
	}
	return fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes)
}
