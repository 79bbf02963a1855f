package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

var _ repository.TagRepository = (*tagRepo)(nil)

type tagRepo struct{ pool *pgxpool.Pool }

func NewTagRepo(pool *pgxpool.Pool) *tagRepo {
	return &tagRepo{pool: pool}
}

const tagColumns = `id, token, status, target_url, buyer_user_id, created_at, updated_at`

func scanTag(row pgx.Row) (*model.Tag, error) {
	var (
		t      model.Tag
		status string
	)
	if err := row.Scan(&t.ID, &t.Token, &status, &t.TargetURL, &t.BuyerUserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	s, err := model.ParseTagStatus(status)
	if err != nil {
		return nil, err
	}
	t.Status = s
	return &t, nil
}

func (r *tagRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Tag, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+tagColumns+` FROM tags WHERE token=$1;`, token)
	if err != nil {
		return nil, err
	}
	return scanTag(row)
}

// LockByToken takes a row lock held until the surrounding transaction ends.
func (r *tagRepo) LockByToken(ctx context.Context, tx repository.Tx, token string) (*model.Tag, error) {
	if !inTx(tx) {
		return nil, domain.ErrInvalidExecContext
	}
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+tagColumns+` FROM tags WHERE token=$1 FOR UPDATE;`, token)
	if err != nil {
		return nil, err
	}
	return scanTag(row)
}

func (r *tagRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Tag, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+tagColumns+` FROM tags WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanTag(row)
}

// CreateUnassigned relies on the unique index on token: the loser of a
// concurrent insert gets no row back and reads the winner's.
func (r *tagRepo) CreateUnassigned(ctx context.Context, tx repository.Tx, t *model.Tag) (*model.Tag, bool, error) {
	if t.Status != model.TagStatusUnassigned || t.TargetURL != nil || t.BuyerUserID != nil {
		return nil, false, domain.ErrIllegalTransition
	}
	const q = `
INSERT INTO tags (id, token, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token) DO NOTHING
RETURNING ` + tagColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, t.ID, t.Token, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	created, err := scanTag(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	existing, err := r.FindByToken(ctx, tx, t.Token)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *tagRepo) CompareAndTransition(ctx context.Context, tx repository.Tx, tagID string, tr model.TagTransition) (bool, error) {
	if err := tr.Validate(); err != nil {
		return false, err
	}
	const q = `
UPDATE tags
   SET status=$2, target_url=$3, buyer_user_id=$4, updated_at=NOW()
 WHERE id=$1 AND status = ANY($5);`
	cmd, err := execSQL(ctx, r.pool, tx, q, tagID, string(tr.To), tr.TargetURL, tr.BuyerUserID, tr.StatusStrings())
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *tagRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.TagStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM tags GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.TagStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.TagStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, opFailed(err)
	}
	return out, nil
}

// ListExportRows joins each tag with its first activation and that buyer.
func (r *tagRepo) ListExportRows(ctx context.Context, tx repository.Tx) ([]model.TagExportRow, error) {
	const q = `
SELECT t.token, t.status, COALESCE(t.target_url, ''),
       COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.phone, ''),
       a.created_at, COALESCE(a.payment_provider, ''), COALESCE(a.payment_handle_or_url, '')
  FROM tags t
  LEFT JOIN LATERAL (
        SELECT user_id, created_at, payment_provider, payment_handle_or_url
          FROM activations
         WHERE tag_id = t.id
         ORDER BY created_at
         LIMIT 1
  ) a ON TRUE
  LEFT JOIN users u ON u.id = a.user_id
 ORDER BY t.token;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TagExportRow
	for rows.Next() {
		var (
			row    model.TagExportRow
			status string
		)
		if err := rows.Scan(&row.Token, &status, &row.TargetURL, &row.BuyerName, &row.BuyerEmail, &row.BuyerPhone,
			&row.ActivatedAt, &row.PaymentProvider, &row.PaymentHandle); err != nil {
			return nil, scanErr(err)
		}
		row.Status = model.TagStatus(status)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, opFailed(err)
	}
	return out, nil
}
