package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubUserRepo struct {
	byUsername map[string]*models.User
	lastLogin  time.Time
}

func (s *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := s.byUsername[username]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

type stubSessions struct {
	started map[string]uuid.UUID
	err     error
}

func (s *stubSessions) Start(_ context.Context, accessID string, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.started[accessID] = userID
	return nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.started, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30}
}

func buildService(t *testing.T, user *models.User) (Service, *stubUserRepo, *stubSessions) {
	t.Helper()
	repo := &stubUserRepo{byUsername: map[string]*models.User{}}
	if user != nil {
		repo.byUsername[user.Username] = user
	}
	sessions := &stubSessions{started: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: testJWTConfig()})
	require.NoError(t, err)
	return svc, repo, sessions
}

func newUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	require.NoError(t, err)
	return &models.User{ID: uuid.New(), Username: "jane", Email: "jane@example.com", PasswordHash: hash, IsActive: true}
}

func TestLoginMintsTokenAndStartsSession(t *testing.T) {
	user := newUser(t, "correct-horse")
	svc, repo, sessions := buildService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "jane", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.False(t, repo.lastLogin.IsZero())

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "jane", claims.Username)
	assert.Equal(t, user.ID, sessions.started[claims.ID])

	require.NoError(t, svc.Logout(context.Background(), claims.ID))
	assert.Empty(t, sessions.started)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := newUser(t, "correct-horse")
	svc, _, _ := buildService(t, user)
	ctx := context.Background()

	cases := []LoginRequest{
		{Username: "jane", Password: "wrong"},
		{Username: "nobody", Password: "correct-horse"},
		{Username: "", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "%+v", req)
	}

	user.IsActive = false
	_, err := svc.Login(ctx, LoginRequest{Username: "jane", Password: "correct-horse"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginSessionStoreFailure(t *testing.T) {
	user := newUser(t, "correct-horse")
	svc, _, sessions := buildService(t, user)
	sessions.err = errors.New("redis down")

	_, err := svc.Login(context.Background(), LoginRequest{Username: "jane", Password: "correct-horse"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestProfile(t *testing.T) {
	user := newUser(t, "pw-123456")
	user.FirstName = "Jane"
	svc, _, _ := buildService(t, user)

	profile, err := svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", profile.Username)
	assert.Equal(t, "Jane", profile.FirstName)

	_, err = svc.Profile(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
