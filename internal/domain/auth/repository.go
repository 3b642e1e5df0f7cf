package auth

import (
	"context"

	"pharmledger/internal/core/id"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail looks up by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update writes login bookkeeping and profile fields.
	Update(ctx context.Context, user *User) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
