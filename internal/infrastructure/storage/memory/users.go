package memory

import (
	"context"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain/auth"
)

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	store *Store
}

var _ auth.UserRepository = (*UserRepo)(nil)

func findUserByEmail(st *state, email string) (auth.User, bool) {
	email = auth.NormalizeEmail(email)
	for _, u := range st.users {
		if u.Email == email {
			return u, true
		}
	}
	return auth.User{}, false
}

func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return apperror.NewDuplicate("user", "id", user.ID.String())
		}
		if _, ok := findUserByEmail(st, user.Email); ok {
			return apperror.NewDuplicate("user", "email", user.Email)
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	var (
		u  auth.User
		ok bool
	)
	r.store.read(func(st *state) { u, ok = st.users[userID] })
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var (
		u  auth.User
		ok bool
	)
	r.store.read(func(st *state) { u, ok = findUserByEmail(st, email) })
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return apperror.NewNotFound("user", user.ID.String())
		}
		updated := *user
		updated.Email = current.Email
		updated.CreatedAt = current.CreatedAt
		st.users[user.ID] = updated
		return nil
	})
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var ok bool
	r.store.read(func(st *state) { _, ok = findUserByEmail(st, email) })
	return ok, nil
}
