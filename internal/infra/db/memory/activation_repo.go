package memory

import (
	"context"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

type ActivationRepo struct {
	s *Store
}

func NewActivationRepo(s *Store) *ActivationRepo { return &ActivationRepo{s: s} }

var _ repository.ActivationRepository = (*ActivationRepo)(nil)

func (r *ActivationRepo) Save(_ context.Context, tx repository.Tx, a *model.Activation) (bool, error) {
	inserted := false
	err := r.s.write(tx, func(st *state) error {
		for _, cur := range st.activations {
			if cur.TagID == a.TagID && cur.UserID == a.UserID {
				return nil
			}
		}
		c := *a
		st.activations = append(st.activations, &c)
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *ActivationRepo) Exists(_ context.Context, tx repository.Tx, tagID, userID string) (bool, error) {
	found := false
	err := r.s.read(tx, func(st *state) error {
		for _, a := range st.activations {
			if a.TagID == tagID && a.UserID == userID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *ActivationRepo) CountActivations(_ context.Context, tx repository.Tx) (int, error) {
	n := 0
	err := r.s.read(tx, func(st *state) error {
		n = len(st.activations)
		return nil
	})
	return n, err
}

// ListByTag is a test helper.
func (r *ActivationRepo) ListByTag(tagID string) []model.Activation {
	var out []model.Activation
	_ = r.s.read(repository.NoTX, func(st *state) error {
		for _, a := range st.activations {
			if a.TagID == tagID {
				out = append(out, *a)
			}
		}
		return nil
	})
	return out
}
