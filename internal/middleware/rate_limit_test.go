package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP_BlocksAfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}

func TestRateLimitByIP_SeparateClients(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	for _, addr := range []string{"192.0.2.1:4000", "192.0.2.2:4000", "192.0.2.3:4000"} {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}

func TestRateLimitByIP_UsesForwardedAddressWhenTrusted(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{
		RequestsPerMinute: 1,
		IPConfig:          &pkghttp.IPConfig{TrustForwardedHeaders: true},
	})(okHandler())

	// Two different clients behind the same proxy
	for _, client := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, client)
	}
}

func TestRateLimitByIP_DefaultLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{})(okHandler())

	codes := map[int]int{}
	for i := 0; i < DefaultAuthRequestsPerMinute+1; i++ {
		req := httptest.NewRequest("GET", "/auth/config", nil)
		req.RemoteAddr = "192.0.2.9:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[rec.Code]++
	}

	assert.Equal(t, DefaultAuthRequestsPerMinute, codes[http.StatusOK])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}
