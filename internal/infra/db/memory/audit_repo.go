package memory

import (
	"context"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

type AuditRepo struct {
	s *Store
}

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

var _ repository.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Append(_ context.Context, tx repository.Tx, e *model.AuditEntry) error {
	return r.s.write(tx, func(st *state) error {
		c := *e
		st.audit = append(st.audit, &c)
		return nil
	})
}

func (r *AuditRepo) ListByTag(_ context.Context, tx repository.Tx, tagID string, limit int) ([]*model.AuditEntry, error) {
	var out []*model.AuditEntry
	err := r.s.read(tx, func(st *state) error {
		for _, e := range st.audit {
			if e.TagID != nil && *e.TagID == tagID {
				c := *e
				out = append(out, &c)
				if limit > 0 && len(out) == limit {
					break
				}
			}
		}
		return nil
	})
	return out, err
}

func (r *AuditRepo) Recent(_ context.Context, tx repository.Tx, limit int) ([]*model.AuditEntry, error) {
	var out []*model.AuditEntry
	err := r.s.read(tx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			c := *st.audit[i]
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Actions lists the recorded actions in order; used by tests.
func (r *AuditRepo) Actions() []model.AuditAction {
	var out []model.AuditAction
	_ = r.s.read(repository.NoTX, func(st *state) error {
		for _, e := range st.audit {
			out = append(out, e.Action)
		}
		return nil
	})
	return out
}
