package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

const profileColumns = `id, user_id, username, display_name, headline, theme, links, created_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p     model.Profile
		links []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Username, &p.DisplayName, &p.Headline, &p.Theme, &links, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.Links); err != nil {
			return nil, fmt.Errorf("%w: profile links: %w", domain.ErrReadDatabaseRow, err)
		}
	}
	return &p, nil
}

func (r *profileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+profileColumns+` FROM profiles WHERE user_id=$1;`, userID)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func (r *profileRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Profile, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+profileColumns+` FROM profiles WHERE username=$1;`, username)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

// CreateIfFree reports false when either unique key (user_id, username) is taken.
func (r *profileRepo) CreateIfFree(ctx context.Context, tx repository.Tx, p *model.Profile) (bool, error) {
	links, err := json.Marshal(p.Links)
	if err != nil {
		return false, fmt.Errorf("%w: profile links: %v", domain.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO profiles (` + profileColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
ON CONFLICT DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.Username, p.DisplayName, p.Headline, p.Theme, string(links), p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *profileRepo) UpdateDisplay(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	links, err := json.Marshal(p.Links)
	if err != nil {
		return fmt.Errorf("%w: profile links: %v", domain.ErrInvalidArgument, err)
	}
	const q = `
UPDATE profiles SET display_name=$2, headline=$3, theme=$4, links=$5::jsonb
WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, p.ID, p.DisplayName, p.Headline, p.Theme, string(links))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
