package http

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientIP is returned when no client address can be determined
const UnknownClientIP = "unknown"

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	// TrustForwardedHeaders honours X-Forwarded-For and X-Real-IP from any peer when
	// TrustedProxies is empty. Set it when the API only ever runs behind a reverse proxy.
	TrustForwardedHeaders bool
	TrustedProxies        []string // CIDR ranges of trusted proxies
}

// ExtractClientIP extracts the real client IP address from the request.
// Forwarding headers are only read when the peer is allowed to set them, so a direct
// client cannot pick its own rate-limit bucket.
//
// Flow:
// 1. First valid entry of X-Forwarded-For
// 2. X-Real-IP
// 3. RemoteAddr without port
// 4. "unknown"
//
// Returned addresses are normalized (IPv4-mapped IPv6 collapses to IPv4).
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config != nil && trustsForwardHeaders(remoteIP, config) {
		// 1. Check X-Forwarded-For (can contain multiple IPs, take the first real one)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				if normalized, ok := normalizeIP(strings.TrimSpace(ip)); ok {
					return normalized
				}
			}
		}

		// 2. Check X-Real-IP
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if normalized, ok := normalizeIP(strings.TrimSpace(xri)); ok {
				return normalized
			}
		}
	}

	// 3. Fall back to RemoteAddr
	if normalized, ok := normalizeIP(remoteIP); ok {
		return normalized
	}
	if remoteIP == "" {
		return UnknownClientIP
	}
	return remoteIP
}

func trustsForwardHeaders(remoteIP string, config *IPConfig) bool {
	if len(config.TrustedProxies) == 0 {
		return config.TrustForwardedHeaders
	}
	return isTrustedProxy(remoteIP, config.TrustedProxies)
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	// RemoteAddr may include port: "ip:port"
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// normalizeIP returns the canonical text form of ip
func normalizeIP(ip string) (string, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", false
	}
	return parsed.String(), true
}
