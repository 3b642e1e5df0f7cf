package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	user := NewUser("Pharm@Example.com ", "hash", "Jane Pharmacist", RolePharmacist)

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), expiresAt, time.Minute)

	actor, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)
	assert.Equal(t, "pharm@example.com", actor.Email)
	assert.Equal(t, "pharmacist", actor.Role)
	assert.False(t, actor.IsAdmin)
	assert.Contains(t, actor.Permissions, PermStockAdjust)
	assert.NotContains(t, actor.Permissions, PermUsersManage)
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	user := NewUser("admin@example.com", "hash", "Admin", RoleAdmin)

	token, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("other-secret"))
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	expired := NewJWTService(DefaultJWTConfig("test-secret"))
	expired.now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err, "expired")

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPermissionsFor(t *testing.T) {
	cashier := PermissionsFor(RoleCashier)
	assert.Contains(t, cashier, PermSalesCreate)
	assert.Contains(t, cashier, PermCatalogRead)
	assert.NotContains(t, cashier, PermCatalogWrite)
	assert.NotContains(t, cashier, PermPrescriptionsWrite)

	assert.Contains(t, PermissionsFor(RoleAdmin), PermUsersManage)
	assert.Empty(t, PermissionsFor(Role("janitor")))
}

func TestUser_Lockout(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	u := NewUser("c@example.com", "hash", "Cashier", RoleCashier)

	for range 3 {
		u.RecordFailedLogin(now, 3, 15*time.Minute)
	}
	assert.Error(t, u.CanLogin(now))
	assert.NoError(t, u.CanLogin(now.Add(16*time.Minute)))

	u.RecordSuccessfulLogin(now)
	assert.Zero(t, u.FailedLoginAttempts)
	assert.Nil(t, u.LockedUntil)
}

func TestUser_Validate(t *testing.T) {
	u := NewUser("bad-email", "hash", "X", RoleCashier)
	assert.Error(t, u.Validate(t.Context()))

	u = NewUser("ok@example.com", "hash", "X", Role("owner"))
	assert.Error(t, u.Validate(t.Context()))

	u = NewUser("ok@example.com", "hash", "X", RoleCashier)
	assert.NoError(t, u.Validate(t.Context()))
}
