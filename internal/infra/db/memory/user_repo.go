package memory

import (
	"context"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

type UserRepo struct {
	s *Store
}

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) FindByEmail(_ context.Context, tx repository.Tx, email string) (*model.User, error) {
	var out *model.User
	err := r.s.read(tx, func(st *state) error {
		id, ok := st.userByEmail[model.NormalizeEmail(email)]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyUser(st.users[id])
		return nil
	})
	return out, err
}

func (r *UserRepo) FindByID(_ context.Context, tx repository.Tx, id string) (*model.User, error) {
	var out *model.User
	err := r.s.read(tx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

func (r *UserRepo) CreateIfAbsent(_ context.Context, tx repository.Tx, u *model.User) (*model.User, error) {
	var out *model.User
	err := r.s.write(tx, func(st *state) error {
		email := model.NormalizeEmail(u.Email)
		if id, ok := st.userByEmail[email]; ok {
			out = copyUser(st.users[id])
			return nil
		}
		stored := copyUser(u)
		stored.Email = email
		st.users[stored.ID] = stored
		st.userByEmail[email] = stored.ID
		out = copyUser(stored)
		return nil
	})
	return out, err
}

func (r *UserRepo) CountUsers(_ context.Context, tx repository.Tx) (int, error) {
	n := 0
	err := r.s.read(tx, func(st *state) error {
		n = len(st.users)
		return nil
	})
	return n, err
}
