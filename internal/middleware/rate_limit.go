package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	pkghttp "github.com/hanzideck/flashcard-api/pkg/http"
)

// DefaultAuthRequestsPerMinute caps raw request volume per client on the /auth routes
const DefaultAuthRequestsPerMinute = 20

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig // Same address resolution as the login guard
}

// RateLimitByIP limits requests per client address over a one minute window.
// This throttles request volume only; failed logins are counted by the login guard.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultAuthRequestsPerMinute
	}

	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteRetryAfter(w, "Too many requests. Please slow down.", int(time.Minute.Seconds()))
		}),
	)
}
