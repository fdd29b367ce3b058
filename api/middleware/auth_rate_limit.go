package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ironmonger/hardware-backend/api/responses"
	"github.com/ironmonger/hardware-backend/api/validators"
	"github.com/ironmonger/hardware-backend/pkg/config"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// RateLimiter is satisfied by pkg/redis.Client.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts per client IP and per login identifier
// (the email, or the phone when no email is sent) inside one window. A zero
// limit disables that counter.
type AuthRateLimitPolicy struct {
	name            string
	window          time.Duration
	ipLimit         int
	identifierLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identifierLimit int) AuthRateLimitPolicy {
	if name = strings.ToLower(strings.TrimSpace(name)); name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, identifierLimit: identifierLimit}
}

func LoginRateLimitPolicy(cfg config.RateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("login", cfg.LoginWindow, cfg.LoginIPLimit, cfg.LoginIdentifierLimit)
}

func RegisterRateLimitPolicy(cfg config.RateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("register", cfg.RegisterWindow, cfg.RegisterIPLimit, cfg.RegisterIdentifierLimit)
}

// AuthRateLimit answers 429 once any counter for the request is over its
// limit. The body is read to find the identifier and then restored.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || policy.window <= 0 || (policy.ipLimit <= 0 && policy.identifierLimit <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			type counter struct {
				kind, value string
				limit       int
			}
			var counters []counter
			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					counters = append(counters, counter{"ip", ip, policy.ipLimit})
				}
			}
			if policy.identifierLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if id := loginIdentifier(body); id != "" {
					sum := sha256.Sum256([]byte(id))
					counters = append(counters, counter{"identifier", hex.EncodeToString(sum[:]), policy.identifierLimit})
				}
			}

			for _, c := range counters {
				allowed, attempts, err := limiter.FixedWindowAllow(ctx, policy.name+":"+c.kind+":"+c.value, int64(c.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if allowed {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":         policy.name,
						"counter":        c.kind,
						"attempts":       attempts,
						"limit":          c.limit,
						"window_seconds": int(policy.window.Seconds()),
					}), "auth.rate_limit.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, since the API sits behind a
// load balancer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func loginIdentifier(payload []byte) string {
	var body struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	if email := validators.NormalizeEmail(body.Email); email != "" {
		return email
	}
	return strings.TrimSpace(body.Phone)
}
