package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/hariombakery/khakhra-backend/pkg/auth"
	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "khakhra-test",
	ExpirationMinutes: 15,
}

type stubSessionChecker struct {
	has bool
	err error
}

func (s stubSessionChecker) HasSession(context.Context, string) (bool, error) {
	return s.has, s.err
}

func mintToken(t *testing.T, userID uuid.UUID, role enums.UserRole, jti string) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testJWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    jti,
	})
	require.NoError(t, err)
	return token
}

func TestAuthSetsUserContext(t *testing.T) {
	userID := uuid.New()
	mw := Auth(testJWT, stubSessionChecker{has: true}, nil)

	var gotUser, gotRole string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID, enums.UserRoleCustomer, "session-1"))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID.String(), gotUser)
	assert.Equal(t, string(enums.UserRoleCustomer), gotRole)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	mw := Auth(testJWT, stubSessionChecker{has: true}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	mw := Auth(testJWT, stubSessionChecker{has: true}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	mw := Auth(testJWT, stubSessionChecker{has: false}, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), enums.UserRoleCustomer, "revoked"))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireRoleBlocksCustomer(t *testing.T) {
	mw := RequireRole(string(enums.UserRoleAdmin), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.UserRoleCustomer)))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	admin = admin.WithContext(WithRole(admin.Context(), string(enums.UserRoleAdmin)))
	adminResp := httptest.NewRecorder()
	mw(handler).ServeHTTP(adminResp, admin)
	assert.Equal(t, http.StatusOK, adminResp.Code)
}
