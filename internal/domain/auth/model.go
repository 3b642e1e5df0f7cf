// Package auth provides staff authentication and role-based permissions.
package auth

import (
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
)

// Role is a staff role.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCashier    Role = "cashier"
)

// Valid reports a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacist, RoleCashier:
		return true
	}
	return false
}

// Permission codes checked by the HTTP layer.
const (
	PermCatalogRead        = "catalog:read"
	PermCatalogWrite       = "catalog:write"
	PermStockRead          = "stock:read"
	PermStockAdjust        = "stock:adjust"
	PermSalesRead          = "sales:read"
	PermSalesCreate        = "sales:create"
	PermPrescriptionsRead  = "prescriptions:read"
	PermPrescriptionsWrite = "prescriptions:write"
	PermReportsRead        = "reports:read"
	PermUsersManage        = "users:manage"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermCatalogRead, PermCatalogWrite,
		PermStockRead, PermStockAdjust,
		PermSalesRead, PermSalesCreate,
		PermPrescriptionsRead, PermPrescriptionsWrite,
		PermReportsRead, PermUsersManage,
	},
	RolePharmacist: {
		PermCatalogRead, PermCatalogWrite,
		PermStockRead, PermStockAdjust,
		PermSalesRead, PermSalesCreate,
		PermPrescriptionsRead, PermPrescriptionsWrite,
		PermReportsRead,
	},
	RoleCashier: {
		PermCatalogRead,
		PermSalesRead, PermSalesCreate,
		PermPrescriptionsRead,
	},
}

// PermissionsFor returns the permissions granted to a role.
func PermissionsFor(r Role) []string {
	return slices.Clone(rolePermissions[r])
}

// User is a staff member.
type User struct {
	ID                  id.ID      `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FullName            string     `db:"full_name" json:"fullName"`
	Role                Role       `db:"role" json:"role"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewUser creates an active user.
func NewUser(email, passwordHash, fullName string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates user data.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" {
		return apperror.NewFieldValidation("email", "email is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return apperror.NewFieldValidation("email", "email is invalid")
	}
	if u.FullName == "" {
		return apperror.NewFieldValidation("full_name", "full name is required")
	}
	if !u.Role.Valid() {
		return apperror.NewFieldValidation("role", "role must be admin, pharmacist or cashier")
	}
	return nil
}

// IsLocked returns true if the account is temporarily locked.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// CanLogin checks if user can login.
func (u *User) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failure counter and locks after maxAttempts.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		until := now.Add(lockDuration)
		u.LockedUntil = &until
	}
	u.UpdatedAt = now
}

// RecordSuccessfulLogin resets the failure counter.
func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Permissions returns the permissions of the user's role.
func (u *User) Permissions() []string {
	return PermissionsFor(u.Role)
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}

// Credentials for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a staff account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}
