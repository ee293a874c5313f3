package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"elevtinget/backend/config"
	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
	pkgerrors "elevtinget/backend/pkg/errors"
	"elevtinget/backend/pkg/jwt"
)

// ── 测试辅助 ──

type fakeBlacklist struct {
	tokens map[string]time.Duration
	err    error
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.tokens[jti] = ttl
	return nil
}

func setupTestAuthService(t *testing.T) (*authService, *mockRepos, *jwt.Manager) {
	t.Helper()
	repo, m := newMockRepos()
	cfg := &config.Config{Auth: config.AuthConfig{
		JWTSecret:      "test-secret-key-0123456789",
		AccessTokenTTL: time.Hour,
	}}
	jwtMgr := jwt.NewManager(&cfg.Auth)

	hash, err := bcrypt.GenerateFromPassword([]byte("hemmelig123"), bcrypt.MinCost)
	require.NoError(t, err)
	m.users.users["user-1"] = &model.AppUser{
		UserID:       "user-1",
		Email:        "konkom@elev.no",
		Name:         "Kontrollkomiteen",
		PasswordHash: string(hash),
		Role:         &model.Role{Name: model.RoleKonkom, Permissions: []string{"case:read", "case:write"}},
	}
	m.users.users["admin-1"] = &model.AppUser{
		UserID:       "admin-1",
		Email:        "admin@elev.no",
		PasswordHash: string(hash),
		Role:         &model.Role{Name: model.RoleAdmin},
	}

	svc := NewAuthService(cfg, repo, jwtMgr, nil, newTestLogger(t)).(*authService)
	return svc, m, jwtMgr
}

// ── Login ──

func TestAuthService_Login(t *testing.T) {
	svc, _, jwtMgr := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: " KONKOM@elev.no ", Password: "hemmelig123"})
	require.NoError(t, err)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, model.RoleKonkom, resp.User.Role)
	assert.ElementsMatch(t, []string{"case:read", "case:write"}, resp.User.Permissions)

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, model.RoleKonkom, claims.Role)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, _ := setupTestAuthService(t)

	tests := []dto.LoginRequest{
		{Email: "konkom@elev.no", Password: "feil"},
		{Email: "ukjent@elev.no", Password: "hemmelig123"},
	}
	for _, req := range tests {
		_, err := svc.Login(context.Background(), &req)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("邮箱 %s：期望 ErrInvalidCredentials，实际: %v", req.Email, err)
		}
	}
}

// ── Me ──

func TestAuthService_Me_AdminHasAllCapabilities(t *testing.T) {
	svc, _, _ := setupTestAuthService(t)

	resp, err := svc.Me(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, resp.Permissions, len(allCapabilities))

	_, err = svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

// ── Logout ──

func TestAuthService_Logout(t *testing.T) {
	svc, _, _ := setupTestAuthService(t)

	// 未配置 Redis 时为空操作
	require.NoError(t, svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)))

	bl := &fakeBlacklist{tokens: map[string]time.Duration{}}
	svc.blacklist = bl
	require.NoError(t, svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)))
	assert.Contains(t, bl.tokens, "jti-1")
	assert.Greater(t, bl.tokens["jti-1"], 59*time.Minute)

	bl.err = errors.New("redis down")
	err := svc.Logout(context.Background(), "jti-2", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, pkgerrors.ErrDependency)
}
