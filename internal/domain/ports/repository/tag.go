package repository

import (
	"context"

	"tagpay/internal/domain/model"
)

// -----------------------------
// Tags
// -----------------------------

type TagRepository interface {
	// FindByToken returns domain.ErrNotFound for an unknown token.
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Tag, error)
	// LockByToken is FindByToken holding a row lock until tx ends.
	LockByToken(ctx context.Context, tx Tx, token string) (*model.Tag, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Tag, error)
	// CreateUnassigned inserts t unless the token exists. It returns the
	// stored tag and whether this call created it.
	CreateUnassigned(ctx context.Context, tx Tx, t *model.Tag) (*model.Tag, bool, error)
	// CompareAndTransition applies tr to the tag only if its current status
	// is one of tr.From. It reports whether a row changed.
	CompareAndTransition(ctx context.Context, tx Tx, tagID string, tr model.TagTransition) (bool, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.TagStatus]int, error)
	ListExportRows(ctx context.Context, tx Tx) ([]model.TagExportRow, error)
}
