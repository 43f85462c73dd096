package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hariombakery/khakhra-backend/pkg/config"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutRequest(body string) *http.Request {
	return requestWithPattern(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", strings.NewReader(body))
}

func TestIdempotencyRuleSelection(t *testing.T) {
	rules := idempotencyRules(config.CheckoutConfig{IdempotencyTTL: 168 * time.Hour})

	matched := func(method, pattern string) (time.Duration, bool) {
		for _, rule := range rules {
			if rule.match(method, pattern) {
				return rule.ttl, true
			}
		}
		return 0, false
	}

	ttl, ok := matched(http.MethodPost, "/api/v1/checkout")
	require.True(t, ok)
	assert.Equal(t, 168*time.Hour, ttl)

	ttl, ok = matched(http.MethodPost, "/api/v1/auth/register")
	require.True(t, ok)
	assert.Equal(t, defaultIdempotencyTTL, ttl)

	_, ok = matched(http.MethodPost, "/api/v1/auth/login")
	assert.False(t, ok)

	_, ok = matched(http.MethodGet, "/api/v1/checkout")
	assert.False(t, ok)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	mw := Idempotency(newFakeStore(), config.CheckoutConfig{}, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, checkoutRequest(`{"kind":"cart"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, handlerCalled)
}

func TestIdempotencySkipsUnlistedRoutes(t *testing.T) {
	mw := Idempotency(newFakeStore(), config.CheckoutConfig{}, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodGet, "/api/v1/cart", "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newFakeStore(), config.CheckoutConfig{}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order":"one"}}`))
	})

	req := checkoutRequest(`{"kind":"cart"}`)
	req.Header.Set(idempotencyHeader, "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	replay := checkoutRequest(`{"kind":"cart"}`)
	replay.Header.Set(idempotencyHeader, "abc")
	replayResp := httptest.NewRecorder()
	mw(handler).ServeHTTP(replayResp, replay)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, replayResp.Code)
	assert.JSONEq(t, `{"data":{"order":"one"}}`, replayResp.Body.String())
	assert.Equal(t, "application/json", replayResp.Header().Get("Content-Type"))
}

func TestIdempotencyRejectsReusedKeyWithDifferentPayload(t *testing.T) {
	mw := Idempotency(newFakeStore(), config.CheckoutConfig{}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	first := checkoutRequest(`{"kind":"cart"}`)
	first.Header.Set(idempotencyHeader, "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := checkoutRequest(`{"kind":"buy_now"}`)
	second.Header.Set(idempotencyHeader, "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, config.CheckoutConfig{}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	first := checkoutRequest(`{"kind":"cart"}`)
	first.Header.Set(idempotencyHeader, "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	retry := checkoutRequest(`{"kind":"cart"}`)
	retry.Header.Set(idempotencyHeader, "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, retry)

	assert.Equal(t, 2, calls)
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestIdempotencyScopedPerUser(t *testing.T) {
	mw := Idempotency(newFakeStore(), config.CheckoutConfig{}, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	first := checkoutRequest(`{"kind":"cart"}`)
	first = first.WithContext(WithUserID(first.Context(), "user-a"))
	first.Header.Set(idempotencyHeader, "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := checkoutRequest(`{"kind":"cart"}`)
	second = second.WithContext(WithUserID(second.Context(), "user-b"))
	second.Header.Set(idempotencyHeader, "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), second)

	assert.Equal(t, 2, calls)
}
