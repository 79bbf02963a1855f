package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/metrics"
)

// Sources recorded on token_created entries.
const (
	SourceRedirect     = "redirect"
	SourceActivate     = "activate"
	SourceActivatePage = "activate_page"
	SourceImport       = "import"
	SourceGenerate     = "generate"
)

// TagProvisioner is the single find-or-create path for tags. Every creation
// commits on its own together with its token_created entry.
type TagProvisioner struct {
	tm    repository.TransactionManager
	tags  repository.TagRepository
	audit *AuditLog
	log   *zerolog.Logger
}

func NewTagProvisioner(tm repository.TransactionManager, tags repository.TagRepository, audit *AuditLog, logger *zerolog.Logger) *TagProvisioner {
	return &TagProvisioner{tm: tm, tags: tags, audit: audit, log: logger}
}

// Ensure returns the tag for token, creating it as Unassigned when unseen.
// created is true only for the caller whose insert won.
func (p *TagProvisioner) Ensure(ctx context.Context, actor, token, source string, meta map[string]any) (tag *model.Tag, created bool, err error) {
	tag, err = p.tags.FindByToken(ctx, repository.NoTX, token)
	if err == nil {
		return tag, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	var entry *model.AuditEntry
	err = p.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		t, ok, err := p.tags.CreateUnassigned(ctx, tx, model.NewUnassignedTag(token))
		if err != nil {
			return err
		}
		tag, created = t, ok
		if !ok {
			return nil
		}
		m := map[string]any{"token": token, "source": source}
		for k, v := range meta {
			m[k] = v
		}
		entry, err = p.audit.Record(ctx, tx, actor, model.AuditTokenCreated, &t.ID, m)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.IncTagCreated(source)
		p.log.Debug().Str("token", token).Str("source", source).Msg("tag created")
		p.audit.Publish(ctx, entry)
	}
	return tag, created, nil
}
