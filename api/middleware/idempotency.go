package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hariombakery/khakhra-backend/api/responses"
	"github.com/hariombakery/khakhra-backend/pkg/config"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
	inFlightMarker        = "__in_flight__"
	maxIdempotencyBody    = 1 << 20
)

// idempotencyStore is the slice of the Redis client this guard needs.
type idempotencyStore interface {
	Get(context.Context, string) (string, error)
	Set(context.Context, string, any, time.Duration) error
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

type routeMatcher func(method, pattern string) bool

func matchExact(method, pattern string) routeMatcher {
	return func(m, p string) bool {
		return m == method && p == pattern
	}
}

type idempotencyRule struct {
	match routeMatcher
	ttl   time.Duration
}

func idempotencyRules(cfg config.CheckoutConfig) []idempotencyRule {
	criticalTTL := cfg.IdempotencyTTL
	if criticalTTL <= 0 {
		criticalTTL = defaultIdempotencyTTL
	}
	return []idempotencyRule{
		{match: matchExact(http.MethodPost, "/api/v1/auth/register"), ttl: defaultIdempotencyTTL},
		{match: matchExact(http.MethodPost, "/api/v1/checkout"), ttl: criticalTTL},
		{match: matchExact(http.MethodPost, "/api/v1/checkout/{orderID}/confirm"), ttl: criticalTTL},
		{match: matchExact(http.MethodPost, "/api/v1/checkout/{orderID}/cancel"), ttl: criticalTTL},
		{match: matchExact(http.MethodPost, "/api/v1/payment/create"), ttl: criticalTTL},
		{match: matchExact(http.MethodPatch, "/api/v1/admin/orders/{orderID}/status"), ttl: defaultIdempotencyTTL},
	}
}

// idempotencyRecord is the cached outcome replayed for a reused key.
type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency short-circuits duplicate mutating requests. A reused key with
// the same payload replays the stored response; a reused key with a different
// payload is rejected. Responses above 499 are not cached so the client can
// retry them.
func Idempotency(store idempotencyStore, cfg config.CheckoutConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := idempotencyRules(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}

			var rule *idempotencyRule
			for i := range rules {
				if rules[i].match(r.Method, pattern) {
					rule = &rules[i]
					break
				}
			}
			if rule == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
					WithDetails(map[string]string{idempotencyHeader: "required"}))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r.Method, pattern, body)

			actor := UserIDFromContext(r.Context())
			if actor == "" {
				actor = "anon"
			}
			scope := strings.Join([]string{actor, r.Method, pattern}, "|")
			redisKey := store.IdempotencyKey(scope, key)

			stored, err := store.Get(r.Context(), redisKey)
			switch {
			case err == nil:
				replayStored(r.Context(), logg, w, stored, requestHash)
				return
			case !errors.Is(err, goredis.Nil):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
				return
			}

			set, err := store.SetNX(r.Context(), redisKey, inFlightMarker, rule.ttl)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency reserve"))
				return
			}
			if !set {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request already in flight").
					WithDetails(map[string]string{idempotencyHeader: key}))
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError || capture.status == 0 {
				_ = store.Del(r.Context(), redisKey)
				return
			}

			record := idempotencyRecord{
				Status:      capture.status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				Headers:     map[string]string{"Content-Type": capture.Header().Get("Content-Type")},
				RequestHash: requestHash,
			}
			encoded, err := json.Marshal(record)
			if err != nil {
				_ = store.Del(r.Context(), redisKey)
				return
			}
			if err := store.Set(r.Context(), redisKey, string(encoded), rule.ttl); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "idempotency_key", key), "idempotency record not stored")
			}
		})
	}
}

func replayStored(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	if stored == inFlightMarker {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request already in flight"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different payload"))
		return
	}

	payload, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency body"))
		return
	}

	for name, value := range record.Headers {
		if value != "" {
			w.Header().Set(name, value)
		}
	}
	w.WriteHeader(record.Status)
	_, _ = w.Write(payload)
}

func hashRequest(method, pattern string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{'|'})
	sum.Write([]byte(pattern))
	sum.Write([]byte{'|'})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
