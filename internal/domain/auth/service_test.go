package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pharmledger/internal/core/apperror"
	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/domain/auth"
	"pharmledger/internal/infrastructure/storage/memory"
)

func newAuthService(t *testing.T) (*auth.Service, *auth.JWTService) {
	t.Helper()
	store := memory.New()
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	cfg := auth.DefaultServiceConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.MaxLoginAttempts = 3
	return auth.NewService(store.Users(), store, jwtSvc, cfg), jwtSvc
}

func register(t *testing.T, svc *auth.Service, email string, role auth.Role) *auth.User {
	t.Helper()
	u, err := svc.Register(context.Background(), auth.RegisterRequest{
		Email:    email,
		Password: "correct-horse",
		FullName: "Test User",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc, _ := newAuthService(t)
	u := register(t, svc, " Cashier@Example.com", auth.RoleCashier)
	assert.Equal(t, "cashier@example.com", u.Email)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err := svc.Register(context.Background(), auth.RegisterRequest{
		Email: "cashier@example.com", Password: "another-pass", FullName: "Dup", Role: auth.RoleCashier,
	})
	assert.True(t, apperror.IsDuplicate(err), "got %v", err)

	_, err = svc.Register(context.Background(), auth.RegisterRequest{
		Email: "short@example.com", Password: "short", FullName: "Short", Role: auth.RoleCashier,
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)

	_, err = svc.Register(context.Background(), auth.RegisterRequest{
		Email: "role@example.com", Password: "long-enough", FullName: "Role", Role: "owner",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
}

func TestLogin(t *testing.T) {
	svc, jwtSvc := newAuthService(t)
	u := register(t, svc, "pharm@example.com", auth.RolePharmacist)

	token, got, err := svc.Login(context.Background(), auth.Credentials{Email: "PHARM@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Bearer", token.TokenType)
	require.NotNil(t, got.LastLoginAt)

	actor, err := jwtSvc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.UserID)

	_, _, err = svc.Login(context.Background(), auth.Credentials{Email: "nobody@example.com", Password: "x"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized), "got %v", err)
}

func TestLogin_LocksAfterFailures(t *testing.T) {
	svc, _ := newAuthService(t)
	register(t, svc, "locked@example.com", auth.RoleCashier)
	bad := auth.Credentials{Email: "locked@example.com", Password: "wrong-password"}

	for range 3 {
		_, _, err := svc.Login(context.Background(), bad)
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized), "got %v", err)
	}

	_, _, err := svc.Login(context.Background(), auth.Credentials{Email: "locked@example.com", Password: "correct-horse"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden), "got %v", err)
}

func TestMe(t *testing.T) {
	svc, _ := newAuthService(t)
	u := register(t, svc, "me@example.com", auth.RoleAdmin)

	_, err := svc.Me(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: u.ID})
	me, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.Email)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newAuthService(t)

	created, err := svc.EnsureAdmin(context.Background(), "admin@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(context.Background(), "ADMIN@example.com", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)
}
