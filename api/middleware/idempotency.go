package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ironmonger/hardware-backend/api/responses"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	pkgredis "github.com/ironmonger/hardware-backend/pkg/redis"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = 2 * time.Minute
	maxIdempotencyKeyLen   = 255
)

type guardedRoute struct {
	ttl       time.Duration
	anonymous bool
}

// guardedRoutes maps "METHOD path" to how long a finished response is kept
// for replay. Order placement keeps it longest since a duplicate order
// reserves stock twice. Only registration is keyed without a caller.
var guardedRoutes = map[string]guardedRoute{
	http.MethodPost + " /api/v1/auth/register":    {ttl: defaultIdempotencyTTL, anonymous: true},
	http.MethodPost + " /api/v1/inventory/update": {ttl: defaultIdempotencyTTL},
	http.MethodPost + " /api/v1/orders":           {ttl: criticalIdempotencyTTL},
}

var errInFlight = pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress")

// storedResponse is the Redis value under an idempotency key. While the first
// request runs only Pending and Fingerprint are set.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func routeTTL(method, path string) (time.Duration, bool) {
	route, ok := guardedRoutes[method+" "+strings.TrimSuffix(path, "/")]
	return route.ttl, ok
}

// Idempotency replays the first response when a guarded route is retried
// with the same Idempotency-Key by the same caller. Requests without the
// header pass through. Reusing a key with another body is rejected, as is a
// retry that races the original. 5xx responses are not kept so the client
// can try again. Mount it after Auth: authenticated routes reached without
// an identity are never recorded.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !guarded || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			scope, ok := callerScope(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			if len(clientKey) > maxIdempotencyKeyLen {
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(scope, clientKey)

			pending, _ := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
			claimed, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				prior, err := loadStored(r, store, key, fingerprint)
				if err != nil {
					fail(err)
					return
				}
				prior.replay(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.code() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			done, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.code(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(done), ttl); err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func loadStored(r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		// released between our SetNX and Get; the original is still deciding
		return nil, errInFlight
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	switch {
	case prior.Fingerprint != fingerprint:
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case prior.Pending:
		return nil, errInFlight
	}
	return &prior, nil
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// callerScope keeps two users' identical keys apart. It reports false when
// the route needs a caller and none was resolved.
func callerScope(r *http.Request) (string, bool) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	caller := "anonymous"
	if identity, ok := IdentityFromContext(r.Context()); ok {
		caller = identity.UserID.String()
	} else if !guardedRoutes[r.Method+" "+path].anonymous {
		return "", false
	}
	return caller + "|" + r.Method + "|" + path, true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) code() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
