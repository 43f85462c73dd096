package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgauth "github.com/hariombakery/khakhra-backend/pkg/auth"
	"github.com/hariombakery/khakhra-backend/pkg/auth/session"
	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "khakhra-test",
	ExpirationMinutes: 15,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

type stubUserRepo struct {
	user      *models.User
	createErr error
	findErr   error
	lastLogin *time.Time
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user.ID = uuid.New()
	s.user = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessionManager struct {
	generated string
	rotateErr error
	revoked   string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = accessID
	return "refresh-token", nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return "new-access-id", "new-refresh-token", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = accessID
	return nil
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
	})
	require.NoError(t, err)
	return svc
}

func hashedUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Name:         "Asha Patel",
		Email:        "asha@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
	}
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	repo := &stubUserRepo{}
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha Patel",
		Email:    "Asha@Example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.Equal(t, enums.UserRoleCustomer, resp.User.Role)

	// the stored hash must verify against the original password
	ok, err := security.VerifyPassword("supersecret", repo.user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{}, &stubSessionManager{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha Patel",
		Email:    "asha@example.com",
		Password: "short",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubUserRepo{user: hashedUser(t, "supersecret")}
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "asha@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	require.NotNil(t, repo.lastLogin)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, claims.UserID)
	assert.Equal(t, sessions.generated, claims.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &stubUserRepo{user: hashedUser(t, "supersecret")}
	svc := newTestService(t, repo, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "asha@example.com",
		Password: "wrong-password",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
	assert.Nil(t, repo.lastLogin)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := &stubUserRepo{findErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever123",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	user := hashedUser(t, "supersecret")
	repo := &stubUserRepo{user: user}
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	accessToken, err := pkgauth.MintAccessToken(testJWTConfig, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "new-refresh-token", resp.RefreshToken)
	claims, err := pkgauth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "new-access-id", claims.ID)
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	user := hashedUser(t, "supersecret")
	svc := newTestService(t, &stubUserRepo{user: user}, sessions)

	accessToken, err := pkgauth.MintAccessToken(testJWTConfig, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "stolen-token",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newTestService(t, &stubUserRepo{}, sessions)

	require.NoError(t, svc.Logout(context.Background(), "access-id"))
	assert.Equal(t, "access-id", sessions.revoked)
}

func TestProfileUnknownUser(t *testing.T) {
	repo := &stubUserRepo{findErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, &stubSessionManager{})

	_, err := svc.Profile(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
