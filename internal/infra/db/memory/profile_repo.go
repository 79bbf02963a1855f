package memory

import (
	"context"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

type ProfileRepo struct {
	s *Store
}

func NewProfileRepo(s *Store) *ProfileRepo { return &ProfileRepo{s: s} }

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

func (r *ProfileRepo) FindByUserID(_ context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	var out *model.Profile
	err := r.s.read(tx, func(st *state) error {
		p, ok := st.profiles[userID]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyProfile(p)
		return nil
	})
	return out, err
}

func (r *ProfileRepo) FindByUsername(_ context.Context, tx repository.Tx, username string) (*model.Profile, error) {
	var out *model.Profile
	err := r.s.read(tx, func(st *state) error {
		uid, ok := st.profileByUsername[username]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyProfile(st.profiles[uid])
		return nil
	})
	return out, err
}

func (r *ProfileRepo) UpdateDisplay(_ context.Context, tx repository.Tx, p *model.Profile) error {
	return r.s.write(tx, func(st *state) error {
		cur, ok := st.profiles[p.UserID]
		if !ok || cur.ID != p.ID {
			return domain.ErrNotFound
		}
		upd := copyProfile(cur)
		upd.DisplayName = p.DisplayName
		upd.Headline = p.Headline
		upd.Theme = p.Theme
		upd.Links = append([]model.ProfileLink(nil), p.Links...)
		st.profiles[p.UserID] = upd
		return nil
	})
}

func (r *ProfileRepo) CreateIfFree(_ context.Context, tx repository.Tx, p *model.Profile) (bool, error) {
	created := false
	err := r.s.write(tx, func(st *state) error {
		if _, taken := st.profileByUsername[p.Username]; taken {
			return nil
		}
		if _, has := st.profiles[p.UserID]; has {
			return nil
		}
		st.profiles[p.UserID] = copyProfile(p)
		st.profileByUsername[p.Username] = p.UserID
		created = true
		return nil
	})
	return created, err
}
