package repository

import (
	"context"

	"tagpay/internal/domain/model"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, e *model.AuditEntry) error
	// ListByTag returns entries oldest first.
	ListByTag(ctx context.Context, tx Tx, tagID string, limit int) ([]*model.AuditEntry, error)
	// Recent returns the newest entries first.
	Recent(ctx context.Context, tx Tx, limit int) ([]*model.AuditEntry, error)
}
