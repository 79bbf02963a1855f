package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/adapter"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/logging"
	"tagpay/internal/infra/metrics"
	"tagpay/internal/infra/worker"
)

// Dispatcher runs work after the request's transaction has committed.
// *worker.Pool satisfies it.
type Dispatcher interface {
	Submit(task worker.Task) error
}

// dispatch hands task to jobs, or runs it inline on a detached context when
// no dispatcher is configured.
func dispatch(ctx context.Context, jobs Dispatcher, log *zerolog.Logger, what string, task worker.Task) {
	if jobs == nil {
		if err := task(context.WithoutCancel(ctx)); err != nil {
			logging.With(ctx, log).Warn().Err(err).Str("task", what).Msg("post-commit task failed")
		}
		return
	}
	if err := jobs.Submit(task); err != nil {
		logging.With(ctx, log).Warn().Err(err).Str("task", what).Msg("post-commit task not scheduled")
	}
}

// AuditLog is the append-only event sink. Entries written inside a
// transaction share its fate; Publish forwards committed ones to the
// optional external stream.
type AuditLog struct {
	repo   repository.AuditRepository
	stream adapter.AuditPublisher
	jobs   Dispatcher
	log    *zerolog.Logger
}

func NewAuditLog(repo repository.AuditRepository, stream adapter.AuditPublisher, jobs Dispatcher, logger *zerolog.Logger) *AuditLog {
	return &AuditLog{repo: repo, stream: stream, jobs: jobs, log: logger}
}

// Record appends an entry using tx. An error must abort the caller's transaction.
func (a *AuditLog) Record(ctx context.Context, tx repository.Tx, actor string, action model.AuditAction, tagID *string, meta map[string]any) (*model.AuditEntry, error) {
	e := model.NewAuditEntry(actor, action, tagID, meta)
	if err := a.repo.Append(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("append audit %s: %w", action, err)
	}
	return e, nil
}

// RecordDetached writes outside any transaction and publishes the entry.
// Failures are logged only.
func (a *AuditLog) RecordDetached(ctx context.Context, actor string, action model.AuditAction, tagID *string, meta map[string]any) {
	e, err := a.Record(ctx, repository.NoTX, actor, action, tagID, meta)
	if err != nil {
		logging.With(ctx, a.log).Error().Err(err).Str("action", string(action)).Msg("audit write failed")
		return
	}
	a.Publish(ctx, e)
}

// Publish forwards committed entries to the stream, if one is configured.
func (a *AuditLog) Publish(ctx context.Context, entries ...*model.AuditEntry) {
	if a.stream == nil {
		return
	}
	for _, e := range entries {
		if e == nil {
			continue
		}
		entry := e
		dispatch(ctx, a.jobs, a.log, "audit_stream", func(ctx context.Context) error {
			err := a.stream.PublishAudit(ctx, entry)
			metrics.IncAuditStream(err)
			return err
		})
	}
}

// ForTag returns a tag's entries, newest first.
func (a *AuditLog) ForTag(ctx context.Context, tagID string, limit int) ([]*model.AuditEntry, error) {
	entries, err := a.repo.ListByTag(ctx, repository.NoTX, tagID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*model.AuditEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *AuditLog) Recent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	return a.repo.Recent(ctx, repository.NoTX, limit)
}
