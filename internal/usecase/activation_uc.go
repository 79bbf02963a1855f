package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/adapter"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/logging"
	"tagpay/internal/infra/metrics"
	"tagpay/internal/normalize"
	"tagpay/internal/validation"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase binds a tag to a user and a payment target.
type ActivationUseCase interface {
	Activate(ctx context.Context, in ActivateInput) (*ActivateResult, error)
}

type ActivateInput struct {
	Token         string
	Name          string
	Email         string
	Phone         string
	PaymentHandle string
	ClientIP      string
}

type ActivateResult struct {
	Token       string
	UserID      string
	Provider    model.PaymentProvider
	RedirectURL string
}

// ActivationDeps groups the collaborators of the activation workflow.
type ActivationDeps struct {
	Tokens      *validation.TokenValidator
	Normalizer  *normalize.Normalizer
	TM          repository.TransactionManager
	Tags        repository.TagRepository
	Users       repository.UserRepository
	Activations repository.ActivationRepository
	Profiles    ProfileUseCase
	Provisioner *TagProvisioner
	Audit       *AuditLog
	Notifier    adapter.Notifier // optional
	Jobs        Dispatcher       // optional; nil runs post-commit work inline
	Dev         bool
}

type activationUC struct {
	ActivationDeps
	log *zerolog.Logger
}

func NewActivationUseCase(deps ActivationDeps, logger *zerolog.Logger) *activationUC {
	return &activationUC{ActivationDeps: deps, log: logger}
}

func (uc *activationUC) Activate(ctx context.Context, in ActivateInput) (*ActivateResult, error) {
	defer logging.TraceDuration(uc.log, "ActivationUC.Activate")()

	res, err := uc.activate(ctx, in)
	metrics.IncActivation(outcomeOf(err))
	return res, err
}

func (uc *activationUC) activate(ctx context.Context, in ActivateInput) (*ActivateResult, error) {
	in = sanitizeActivateInput(in)
	log := logging.With(ctx, uc.log)

	// All input checks run before anything is written.
	if !uc.Tokens.Valid(in.Token) {
		return nil, domain.ErrInvalidTokenFormat
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, domain.ErrInvalidEmail
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	var target normalize.Result
	if in.PaymentHandle != "" {
		r, err := uc.Normalizer.Normalize(in.PaymentHandle, normalize.Contact{Name: in.Name, Email: in.Email, Phone: in.Phone})
		metrics.IncNormalization(string(r.Provider), err == nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPaymentHandle, err)
		}
		target = r
	}

	meta := map[string]any{"ip": in.ClientIP}
	if _, _, err := uc.Provisioner.Ensure(ctx, model.ActorSystem, in.Token, SourceActivate, meta); err != nil {
		return nil, internal(err)
	}

	var (
		result *ActivateResult
		entry  *model.AuditEntry
		user   *model.User
		tagID  string
	)
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := uc.TM.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		tag, err := uc.Tags.LockByToken(ctx, tx, in.Token)
		if err != nil {
			return err
		}
		tagID = tag.ID

		user, err = uc.Users.FindByEmail(ctx, tx, in.Email)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if !tag.Status.Activatable() {
			if tag.Status == model.TagStatusActive && user != nil {
				dup, err := uc.Activations.Exists(ctx, tx, tag.ID, user.ID)
				if err != nil {
					return err
				}
				if dup {
					return domain.ErrDuplicateActivation
				}
			}
			return statusError(tag.Status)
		}

		if user == nil {
			nu, err := model.NewUser(in.Name, in.Email, in.Phone)
			if err != nil {
				return err
			}
			if user, err = uc.Users.CreateIfAbsent(ctx, tx, nu); err != nil {
				return err
			}
		}
		dup, err := uc.Activations.Exists(ctx, tx, tag.ID, user.ID)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateActivation
		}

		if target.URL == "" {
			prof, _, err := uc.Profiles.Ensure(ctx, tx, user)
			if err != nil {
				return err
			}
			target = normalize.Result{Provider: model.ProviderProfile, URL: uc.Profiles.PublicURL(prof.Username)}
		}

		saved, err := uc.Activations.Save(ctx, tx, model.NewActivation(tag.ID, user.ID, target.Provider, in.PaymentHandle, target.URL))
		if err != nil {
			return err
		}
		if !saved {
			return domain.ErrDuplicateActivation
		}
		moved, err := uc.Tags.CompareAndTransition(ctx, tx, tag.ID, model.ActivateTransition(target.URL, user.ID))
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrAlreadyActivated
		}

		entry, err = uc.Audit.Record(ctx, tx, model.ActorSystem, model.AuditTokenActivated, &tag.ID, map[string]any{
			"user_email":   user.Email,
			"resolved_url": target.URL,
			"provider":     string(target.Provider),
			"ip":           in.ClientIP,
		})
		if err != nil {
			return err
		}

		result = &ActivateResult{Token: tag.Token, UserID: user.ID, Provider: target.Provider, RedirectURL: target.URL}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTagBlocked) && tagID != "" {
			uc.Audit.RecordDetached(ctx, model.ActorSystem, model.AuditActivationRejected, &tagID, map[string]any{
				"reason": "blocked",
				"ip":     in.ClientIP,
			})
		}
		if isActivationError(err) {
			log.Info().Err(err).Str("token", in.Token).Msg("activation rejected")
			return nil, err
		}
		log.Error().Err(err).Str("token", in.Token).Msg("activation failed")
		return nil, internal(err)
	}

	log.Info().
		Str("token", result.Token).
		Str("email", logging.RedactEmail(user.Email, uc.Dev)).
		Str("provider", string(result.Provider)).
		Msg("tag activated")

	uc.Audit.Publish(ctx, entry)
	uc.notify(ctx, adapter.ActivationNotice{
		Token:       result.Token,
		UserName:    user.Name,
		UserEmail:   user.Email,
		Provider:    string(result.Provider),
		TargetURL:   result.RedirectURL,
		ActivatedAt: time.Now().UTC(),
	})
	return result, nil
}

// notify never affects the committed activation.
func (uc *activationUC) notify(ctx context.Context, n adapter.ActivationNotice) {
	if uc.Notifier == nil {
		return
	}
	dispatch(ctx, uc.Jobs, uc.log, "notify", func(ctx context.Context) error {
		err := uc.Notifier.NotifyActivation(ctx, n)
		if err != nil {
			uc.log.Warn().Err(err).Str("token", n.Token).Str("notifier", uc.Notifier.Name()).Msg("activation notification failed")
		}
		return err
	})
}

func sanitizeActivateInput(in ActivateInput) ActivateInput {
	in.Token = strings.TrimSpace(in.Token)
	in.Name = validation.SanitizeInput(in.Name)
	in.Email = model.NormalizeEmail(validation.SanitizeInput(in.Email))
	in.Phone = validation.SanitizeInput(in.Phone)
	in.PaymentHandle = strings.TrimSpace(in.PaymentHandle)
	return in
}

func statusError(s model.TagStatus) error {
	switch s {
	case model.TagStatusActive:
		return domain.ErrAlreadyActivated
	case model.TagStatusBlocked:
		return domain.ErrTagBlocked
	default:
		return domain.ErrNotAvailable
	}
}

// isActivationError reports whether err is one of the outcomes callers map
// to a client response.
func isActivationError(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrTagBlocked) ||
		errors.Is(err, domain.ErrAlreadyActivated) ||
		errors.Is(err, domain.ErrDuplicateActivation) ||
		errors.Is(err, domain.ErrNotAvailable)
}

// internal wraps storage and other unexpected failures.
func internal(err error) error {
	if errors.Is(err, domain.ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInternal, err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsValidation(err):
		return "invalid"
	case errors.Is(err, domain.ErrTagBlocked):
		return "blocked"
	case errors.Is(err, domain.ErrAlreadyActivated):
		return "already_active"
	case errors.Is(err, domain.ErrDuplicateActivation):
		return "duplicate"
	case errors.Is(err, domain.ErrNotAvailable):
		return "not_available"
	default:
		return "internal"
	}
}
