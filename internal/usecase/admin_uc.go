package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/logging"
	"tagpay/internal/normalize"
	"tagpay/internal/validation"
)

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// ExportHeader is the column order of Export.
var ExportHeader = []string{
	"token", "status", "target_url", "buyer_name", "buyer_email", "buyer_phone",
	"activation_date", "payment_provider", "payment_handle",
}

type AdminUseCase interface {
	Block(ctx context.Context, actor, token string) (*model.Tag, error)
	Unblock(ctx context.Context, actor, token string) (*model.Tag, error)
	Import(ctx context.Context, actor string, r io.Reader) (*ImportReport, error)
	Export(ctx context.Context, w io.Writer) (int, error)
	Generate(ctx context.Context, actor string, count, length int) ([]string, error)
	Stats(ctx context.Context) (*Stats, error)
	TagAudit(ctx context.Context, token string, limit int) ([]*model.AuditEntry, error)
	RecordLogin(ctx context.Context, actor, clientIP string)
	RecordLogout(ctx context.Context, actor, clientIP string)
}

// ImportRow is one line of an import file.
type ImportRow struct {
	Token string `validate:"required,alphanum"`
	URL   string `validate:"omitempty,max=2048"`
}

type ImportError struct {
	Line   int    `json:"line"`
	Token  string `json:"token,omitempty"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

type Stats struct {
	Tags        map[model.TagStatus]int `json:"tags"`
	TotalTags   int                     `json:"total_tags"`
	Users       int                     `json:"users"`
	Activations int                     `json:"activations"`
}

const maxGenerate = 10000

type adminUC struct {
	tokens      *validation.TokenValidator
	tm          repository.TransactionManager
	tags        repository.TagRepository
	users       repository.UserRepository
	activations repository.ActivationRepository
	provisioner *TagProvisioner
	audit       *AuditLog
	validate    *validator.Validate
	log         *zerolog.Logger
}

func NewAdminUseCase(
	tokens *validation.TokenValidator,
	tm repository.TransactionManager,
	tags repository.TagRepository,
	users repository.UserRepository,
	activations repository.ActivationRepository,
	provisioner *TagProvisioner,
	audit *AuditLog,
	logger *zerolog.Logger,
) *adminUC {
	return &adminUC{
		tokens:      tokens,
		tm:          tm,
		tags:        tags,
		users:       users,
		activations: activations,
		provisioner: provisioner,
		audit:       audit,
		validate:    validator.New(),
		log:         logger,
	}
}

func (a *adminUC) Block(ctx context.Context, actor, token string) (*model.Tag, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Block")()
	return a.transition(ctx, actor, token, model.BlockTransition(), model.AuditTagBlocked)
}

func (a *adminUC) Unblock(ctx context.Context, actor, token string) (*model.Tag, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Unblock")()
	return a.transition(ctx, actor, token, model.UnblockTransition(), model.AuditTagUnblocked)
}

func (a *adminUC) transition(ctx context.Context, actor, token string, tr model.TagTransition, action model.AuditAction) (*model.Tag, error) {
	token = strings.TrimSpace(token)
	if !a.tokens.Valid(token) {
		return nil, domain.ErrInvalidTokenFormat
	}

	var (
		out   *model.Tag
		entry *model.AuditEntry
	)
	err := a.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		tag, err := a.tags.LockByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if !tr.Allows(tag.Status) {
			return fmt.Errorf("%w: tag is %s", domain.ErrNotAvailable, tag.Status)
		}
		ok, err := a.tags.CompareAndTransition(ctx, tx, tag.ID, tr)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotAvailable
		}
		entry, err = a.audit.Record(ctx, tx, actor, action, &tag.ID, map[string]any{
			"previous_status": string(tag.Status),
		})
		if err != nil {
			return err
		}
		prev := tag.Status
		tr.Apply(tag, time.Now().UTC())
		out = tag
		a.log.Info().Str("token", token).Str("from", string(prev)).Str("to", string(tr.To)).Str("actor", actor).Msg("tag status changed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.audit.Publish(ctx, entry)
	return out, nil
}

// Import reads "token,url" rows. A header row is optional. Existing tokens are
// skipped and URLs are kept only in the audit trail.
func (a *adminUC) Import(ctx context.Context, actor string, r io.Reader) (*ImportReport, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Import")()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	report := &ImportReport{Errors: []ImportError{}}
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed csv at line %d: %v", domain.ErrInvalidArgument, line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "token") {
			continue
		}

		row := ImportRow{Token: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			row.URL = strings.TrimSpace(rec[1])
		}
		if reason := a.checkRow(row); reason != "" {
			report.Errors = append(report.Errors, ImportError{Line: line, Token: row.Token, Reason: reason})
			continue
		}

		meta := map[string]any{}
		if row.URL != "" {
			u, err := normalize.CardLink(row.URL)
			if err != nil {
				report.Errors = append(report.Errors, ImportError{Line: line, Token: row.Token, Reason: normalize.Reason(err)})
				continue
			}
			meta["import_url"] = u
		}
		_, created, err := a.provisioner.Ensure(ctx, actor, row.Token, SourceImport, meta)
		if err != nil {
			return nil, err
		}
		if created {
			report.Imported++
		} else {
			report.Skipped++
		}
	}

	a.audit.RecordDetached(ctx, actor, model.AuditTagsImported, nil, map[string]any{
		"imported": report.Imported,
		"skipped":  report.Skipped,
		"errors":   len(report.Errors),
	})
	a.log.Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Int("errors", len(report.Errors)).Msg("tags imported")
	return report, nil
}

func (a *adminUC) checkRow(row ImportRow) string {
	if err := a.validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Sprintf("%s failed %s", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err.Error()
	}
	if !a.tokens.Valid(row.Token) {
		return domain.ErrInvalidTokenFormat.Error()
	}
	return ""
}

// Export writes one CSV row per tag and returns the row count.
func (a *adminUC) Export(ctx context.Context, w io.Writer) (int, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Export")()

	rows, err := a.tags.ListExportRows(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, err
	}
	for _, r := range rows {
		activated := ""
		if r.ActivatedAt != nil {
			activated = r.ActivatedAt.UTC().Format(time.RFC3339)
		}
		rec := []string{
			r.Token, string(r.Status), r.TargetURL, r.BuyerName, r.BuyerEmail, r.BuyerPhone,
			activated, r.PaymentProvider, r.PaymentHandle,
		}
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// Generate mints count random tokens and provisions them as Unassigned.
func (a *adminUC) Generate(ctx context.Context, actor string, count, length int) ([]string, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Generate")()

	rules := a.tokens.Rules()
	if length < rules.MinLength || length > rules.MaxLength {
		return nil, fmt.Errorf("%w: length must be between %d and %d", domain.ErrInvalidArgument, rules.MinLength, rules.MaxLength)
	}
	if count <= 0 || count > maxGenerate {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidArgument, maxGenerate)
	}

	out := make([]string, 0, count)
	for len(out) < count {
		token, err := generateToken(length)
		if err != nil {
			return nil, err
		}
		_, created, err := a.provisioner.Ensure(ctx, actor, token, SourceGenerate, nil)
		if err != nil {
			return nil, err
		}
		if created {
			out = append(out, token)
		}
	}
	return out, nil
}

func (a *adminUC) Stats(ctx context.Context) (*Stats, error) {
	defer logging.TraceDuration(a.log, "AdminUC.Stats")()

	byStatus, err := a.tags.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	st := &Stats{Tags: map[model.TagStatus]int{}}
	for _, s := range []model.TagStatus{model.TagStatusUnassigned, model.TagStatusRegistered, model.TagStatusActive, model.TagStatusBlocked} {
		st.Tags[s] = byStatus[s]
		st.TotalTags += byStatus[s]
	}
	if st.Users, err = a.users.CountUsers(ctx, repository.NoTX); err != nil {
		return nil, err
	}
	if st.Activations, err = a.activations.CountActivations(ctx, repository.NoTX); err != nil {
		return nil, err
	}
	return st, nil
}

func (a *adminUC) TagAudit(ctx context.Context, token string, limit int) ([]*model.AuditEntry, error) {
	defer logging.TraceDuration(a.log, "AdminUC.TagAudit")()

	token = strings.TrimSpace(token)
	if !a.tokens.Valid(token) {
		return nil, domain.ErrInvalidTokenFormat
	}
	tag, err := a.tags.FindByToken(ctx, repository.NoTX, token)
	if err != nil {
		return nil, err
	}
	return a.audit.ForTag(ctx, tag.ID, limit)
}

func (a *adminUC) RecordLogin(ctx context.Context, actor, clientIP string) {
	a.audit.RecordDetached(ctx, actor, model.AuditAdminLogin, nil, map[string]any{"ip": clientIP})
}

func (a *adminUC) RecordLogout(ctx context.Context, actor, clientIP string) {
	a.audit.RecordDetached(ctx, actor, model.AuditAdminLogout, nil, map[string]any{"ip": clientIP})
}
