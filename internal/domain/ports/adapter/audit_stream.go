package adapter

import (
	"context"

	"tagpay/internal/domain/model"
)

// AuditPublisher forwards committed audit entries to an external stream.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, e *model.AuditEntry) error
	Close() error
}
