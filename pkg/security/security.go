package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/payback159/passwordanalyzer/pkg/logging"
	"github.com/payback159/passwordanalyzer/pkg/models"
	"golang.org/x/time/rate"
)

// ipLimiter wraps a rate limiter with a last-seen timestamp for cleanup
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting per IP address with automatic cleanup
type RateLimiter struct {
	limiters map[string]*ipLimiter
	mutex    sync.RWMutex
	perMin   int
	burst    int
	done     chan struct{}
	once     sync.Once

	// TrustProxyHeaders keys clients by forwarding headers instead of the socket peer.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// NewRateLimiter creates a new rate limiter with the default limits and background cleanup
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimits(models.RateLimit, models.RateBurst)
}

// NewRateLimiterWithLimits creates a rate limiter allowing perMinute requests per IP
// with the given burst capacity
func NewRateLimiterWithLimits(perMinute, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		perMin:   perMinute,
		burst:    burst,
		done:     make(chan struct{}),
	}
	rl.startCleanup()
	return rl
}

// GetLimiter returns a rate limiter for the given IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	entry, exists := rl.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(rl.perMin)/60, rl.burst)
		rl.limiters[ip] = &ipLimiter{limiter: limiter, lastSeen: time.Now()}

		logging.LogDebug("Created new rate limiter for IP",
			"ip", ip,
			"rate_per_minute", rl.perMin,
			"burst", rl.burst)

		return limiter
	}

	entry.lastSeen = time.Now()
	return entry.limiter
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// startCleanup runs a background goroutine to remove stale rate limiters
func (rl *RateLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanupStale()
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanupStale removes rate limiters not seen in the last 10 minutes
func (rl *RateLimiter) cleanupStale() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	threshold := time.Now().Add(-10 * time.Minute)
	removed := 0
	for ip, entry := range rl.limiters {
		if entry.lastSeen.Before(threshold) {
			delete(rl.limiters, ip)
			removed++
		}
	}

	if removed > 0 {
		logging.LogInfo("Cleaned up stale rate limiters",
			"removed", removed,
			"remaining", len(rl.limiters))
	}
}

// Middleware rejects requests from IPs that exceeded their rate
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, rl.TrustProxyHeaders)
		limiter := rl.GetLimiter(ip)

		if !limiter.Allow() {
			logging.LogSecurityEvent("Rate limit exceeded", "high",
				"ip", ip,
				"user_agent", r.UserAgent(),
				"path", r.URL.Path,
				"method", r.Method)

			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the address of the socket peer. Forwarding headers are ignored.
func GetClientIP(r *http.Request) string {
	return ClientIP(r, false)
}

// ClientIP extracts the client IP. Forwarding headers are only honoured when trustProxy
// is set, since any client can send them.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		// Cloudflare sets this header with the verified client IP
		if cfIP := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cfIP != "" {
			return cfIP
		}

		// X-Forwarded-For can contain multiple IPs, the first one is the client
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
				return ip
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

// ErrPasswordTooLong is returned for submissions above the configured limit
var ErrPasswordTooLong = errors.New("password too long")

// ErrInvalidEncoding is returned for submissions that are not valid UTF-8
var ErrInvalidEncoding = errors.New("password is not valid UTF-8")

// ValidatePassword checks a submitted password before it is analyzed.
// An empty password is valid; it is scored as the zero result.
func ValidatePassword(password string, maxLength int) error {
	if !utf8.ValidString(password) {
		return ErrInvalidEncoding
	}
	if n := utf8.RuneCountInString(password); n > maxLength {
		return fmt.Errorf("%w: %d characters (max: %d)", ErrPasswordTooLong, n, maxLength)
	}
	return nil
}
