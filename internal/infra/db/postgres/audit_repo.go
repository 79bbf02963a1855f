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

var _ repository.AuditRepository = (*auditRepo)(nil)

type auditRepo struct{ pool *pgxpool.Pool }

func NewAuditRepo(pool *pgxpool.Pool) *auditRepo {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEntry) error {
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("%w: audit meta: %v", domain.ErrInvalidArgument, err)
	}
	if e.Meta == nil {
		meta = []byte("{}")
	}
	const q = `
INSERT INTO audit_log (id, actor, action, tag_id, meta, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6);`
	_, err = execSQL(ctx, r.pool, tx, q, e.ID, e.Actor, string(e.Action), e.TagID, string(meta), e.CreatedAt)
	return err
}

// ListByTag relies on ULID ids sorting by creation time.
func (r *auditRepo) ListByTag(ctx context.Context, tx repository.Tx, tagID string, limit int) ([]*model.AuditEntry, error) {
	const q = `
SELECT id, actor, action, tag_id, meta, created_at
  FROM audit_log
 WHERE tag_id=$1
 ORDER BY id
 LIMIT NULLIF($2, 0);`
	rows, err := queryRows(ctx, r.pool, tx, q, tagID, limit)
	if err != nil {
		return nil, err
	}
	return collectAudit(rows)
}

func (r *auditRepo) Recent(ctx context.Context, tx repository.Tx, limit int) ([]*model.AuditEntry, error) {
	const q = `
SELECT id, actor, action, tag_id, meta, created_at
  FROM audit_log
 ORDER BY id DESC
 LIMIT NULLIF($1, 0);`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	return collectAudit(rows)
}

func collectAudit(rows pgx.Rows) ([]*model.AuditEntry, error) {
	defer rows.Close()
	var out []*model.AuditEntry
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
			meta   []byte
		)
		if err := rows.Scan(&e.ID, &e.Actor, &action, &e.TagID, &meta, &e.CreatedAt); err != nil {
			return nil, scanErr(err)
		}
		e.Action = model.AuditAction(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("%w: audit meta: %w", domain.ErrReadDatabaseRow, err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, opFailed(err)
	}
	return out, nil
}
