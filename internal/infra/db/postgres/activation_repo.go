package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationRepository = (*activationRepo)(nil)

type activationRepo struct {
	pool *pgxpool.Pool
}

func NewActivationRepo(pool *pgxpool.Pool) repository.ActivationRepository {
	return &activationRepo{pool: pool}
}

// Save inserts the record once per (tag, user); a repeat reports false.
func (r *activationRepo) Save(ctx context.Context, tx repository.Tx, a *model.Activation) (bool, error) {
	const q = `
INSERT INTO activations (id, tag_id, user_id, payment_provider, payment_handle_or_url, resolved_target_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tag_id, user_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.TagID, a.UserID, string(a.PaymentProvider), a.PaymentHandleOrURL, a.ResolvedTargetURL, a.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *activationRepo) Exists(ctx context.Context, tx repository.Tx, tagID, userID string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM activations WHERE tag_id=$1 AND user_id=$2);`, tagID, userID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, scanErr(err)
	}
	return ok, nil
}

func (r *activationRepo) CountActivations(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM activations;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count activations: %w", err)
	}
	return n, nil
}
