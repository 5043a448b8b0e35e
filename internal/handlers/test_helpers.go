package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanzideck/flashcard-api/internal/auth"
	"github.com/hanzideck/flashcard-api/internal/models"
	"github.com/hanzideck/flashcard-api/internal/services"
	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext adds an authenticated user to the request context, as RequireSession does
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, user)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, clientIP string) (*services.Session, error)
	RegisterFunc       func(ctx context.Context, email, username, password, clientIP string) (*services.Session, error)
	RefreshFunc        func(ctx context.Context, user *models.User) (*services.Session, error)
	LogoutFunc         func(ctx context.Context, tokenString, clientIP string) error
	ChangePasswordFunc func(ctx context.Context, user *models.User, oldPassword, newPassword, clientIP string) error
	Registration       bool
}

func (m *MockAuthService) Login(ctx context.Context, email, password, clientIP string) (*services.Session, error) {
	if m.LoginFunc == nil {
		return nil, &models.CredentialsError{RemainingAttempts: 4}
	}
	return m.LoginFunc(ctx, email, password, clientIP)
}

func (m *MockAuthService) Register(ctx context.Context, email, username, password, clientIP string) (*services.Session, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrEmailTaken
	}
	return m.RegisterFunc(ctx, email, username, password, clientIP)
}

func (m *MockAuthService) Refresh(ctx context.Context, user *models.User) (*services.Session, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RefreshFunc(ctx, user)
}

func (m *MockAuthService) Logout(ctx context.Context, tokenString, clientIP string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, tokenString, clientIP)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword, clientIP string) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, user, oldPassword, newPassword, clientIP)
}

func (m *MockAuthService) RegistrationEnabled() bool {
	return m.Registration
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
