package memory

import (
	"context"
	"sort"
	"time"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

type TagRepo struct {
	s *Store
}

func NewTagRepo(s *Store) *TagRepo { return &TagRepo{s: s} }

var _ repository.TagRepository = (*TagRepo)(nil)

func (r *TagRepo) FindByToken(_ context.Context, tx repository.Tx, token string) (*model.Tag, error) {
	var out *model.Tag
	err := r.s.read(tx, func(st *state) error {
		id, ok := st.tagByToken[token]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyTag(st.tags[id])
		return nil
	})
	return out, err
}

// LockByToken needs no extra locking: a transaction already owns the store.
func (r *TagRepo) LockByToken(ctx context.Context, tx repository.Tx, token string) (*model.Tag, error) {
	return r.FindByToken(ctx, tx, token)
}

func (r *TagRepo) FindByID(_ context.Context, tx repository.Tx, id string) (*model.Tag, error) {
	var out *model.Tag
	err := r.s.read(tx, func(st *state) error {
		t, ok := st.tags[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyTag(t)
		return nil
	})
	return out, err
}

func (r *TagRepo) CreateUnassigned(_ context.Context, tx repository.Tx, t *model.Tag) (*model.Tag, bool, error) {
	var (
		out     *model.Tag
		created bool
	)
	err := r.s.write(tx, func(st *state) error {
		if id, ok := st.tagByToken[t.Token]; ok {
			out = copyTag(st.tags[id])
			return nil
		}
		if t.Status != model.TagStatusUnassigned || t.TargetURL != nil || t.BuyerUserID != nil {
			return domain.ErrIllegalTransition
		}
		stored := copyTag(t)
		st.tags[stored.ID] = stored
		st.tagByToken[stored.Token] = stored.ID
		out, created = copyTag(stored), true
		return nil
	})
	return out, created, err
}

func (r *TagRepo) CompareAndTransition(_ context.Context, tx repository.Tx, tagID string, tr model.TagTransition) (bool, error) {
	if err := tr.Validate(); err != nil {
		return false, err
	}
	changed := false
	err := r.s.write(tx, func(st *state) error {
		t, ok := st.tags[tagID]
		if !ok || !tr.Allows(t.Status) {
			return nil
		}
		tr.Apply(t, time.Now().UTC())
		changed = true
		return nil
	})
	return changed, err
}

func (r *TagRepo) CountByStatus(_ context.Context, tx repository.Tx) (map[model.TagStatus]int, error) {
	out := map[model.TagStatus]int{}
	err := r.s.read(tx, func(st *state) error {
		for _, t := range st.tags {
			out[t.Status]++
		}
		return nil
	})
	return out, err
}

func (r *TagRepo) ListExportRows(_ context.Context, tx repository.Tx) ([]model.TagExportRow, error) {
	var rows []model.TagExportRow
	err := r.s.read(tx, func(st *state) error {
		first := map[string]*model.Activation{}
		for _, a := range st.activations {
			if cur, ok := first[a.TagID]; !ok || a.CreatedAt.Before(cur.CreatedAt) {
				first[a.TagID] = a
			}
		}
		for _, t := range st.tags {
			row := model.TagExportRow{Token: t.Token, Status: t.Status, TargetURL: t.Target()}
			if a, ok := first[t.ID]; ok {
				at := a.CreatedAt
				row.ActivatedAt = &at
				row.PaymentProvider = string(a.PaymentProvider)
				row.PaymentHandle = a.PaymentHandleOrURL
				if u, ok := st.users[a.UserID]; ok {
					row.BuyerName = u.Name
					row.BuyerEmail = u.Email
					row.BuyerPhone = u.PhoneNumber()
				}
			}
			rows = append(rows, row)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Token < rows[j].Token })
	return rows, err
}
