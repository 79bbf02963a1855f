package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/logging"
	"tagpay/internal/infra/metrics"
	"tagpay/internal/validation"
)

// Compile-time check
var _ RedirectUseCase = (*redirectUC)(nil)

type DecisionKind int

const (
	DecisionNotFound DecisionKind = iota
	DecisionPermanentRedirect
	DecisionActivationRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionPermanentRedirect:
		return "permanent"
	case DecisionActivationRedirect:
		return "activation"
	default:
		return "not_found"
	}
}

// RedirectDecision is what a scan of a token resolves to.
type RedirectDecision struct {
	Kind DecisionKind
	// URL is the stored target for permanent redirects and the activation
	// page path for temporary ones.
	URL string
}

// StatusCode is the HTTP status that carries the decision.
func (d RedirectDecision) StatusCode() int {
	switch d.Kind {
	case DecisionPermanentRedirect:
		return http.StatusMovedPermanently
	case DecisionActivationRedirect:
		return http.StatusFound
	default:
		return http.StatusNotFound
	}
}

// AccessInfo describes who scanned a tag.
type AccessInfo struct {
	ClientIP  string
	UserAgent string
	Referer   string
}

// PromptState is what the activation page may tell a visitor about a token.
type PromptState string

const (
	PromptNew           PromptState = "new"
	PromptAvailable     PromptState = "available"
	PromptAlreadyActive PromptState = "already_active"
	PromptUnavailable   PromptState = "unavailable"
	PromptInvalid       PromptState = "invalid"
)

type RedirectUseCase interface {
	Resolve(ctx context.Context, token string, info AccessInfo) (RedirectDecision, error)
	PromptState(ctx context.Context, token string, clientIP string) (PromptState, error)
}

type redirectUC struct {
	tokens      *validation.TokenValidator
	tags        repository.TagRepository
	provisioner *TagProvisioner
	audit       *AuditLog
	log         *zerolog.Logger
}

func NewRedirectUseCase(tokens *validation.TokenValidator, tags repository.TagRepository, provisioner *TagProvisioner, audit *AuditLog, logger *zerolog.Logger) *redirectUC {
	return &redirectUC{tokens: tokens, tags: tags, provisioner: provisioner, audit: audit, log: logger}
}

// ActivationPath is the page a new or unclaimed token is sent to.
func ActivationPath(token string) string {
	return "/activate?token=" + url.QueryEscape(token)
}

func (uc *redirectUC) Resolve(ctx context.Context, token string, info AccessInfo) (RedirectDecision, error) {
	defer logging.TraceDuration(uc.log, "RedirectUC.Resolve")()

	d, err := uc.resolve(ctx, token, info)
	if err != nil {
		return RedirectDecision{}, err
	}
	metrics.IncResolution(d.Kind.String())
	return d, nil
}

func (uc *redirectUC) resolve(ctx context.Context, token string, info AccessInfo) (RedirectDecision, error) {
	if !uc.tokens.Valid(token) {
		return RedirectDecision{Kind: DecisionNotFound}, nil
	}

	tag, err := uc.tags.FindByToken(ctx, repository.NoTX, token)
	if errors.Is(err, domain.ErrNotFound) {
		var created bool
		tag, created, err = uc.provisioner.Ensure(ctx, model.ActorSystem, token, SourceRedirect, map[string]any{"ip": info.ClientIP})
		if err != nil {
			return RedirectDecision{}, internal(err)
		}
		if created {
			return RedirectDecision{Kind: DecisionActivationRedirect, URL: ActivationPath(token)}, nil
		}
	} else if err != nil {
		return RedirectDecision{}, internal(err)
	}

	uc.audit.RecordDetached(ctx, model.ActorSystem, model.AuditTokenAccessed, &tag.ID, map[string]any{
		"ip":         info.ClientIP,
		"user_agent": info.UserAgent,
		"referer":    info.Referer,
		"status":     string(tag.Status),
	})
	return decide(tag), nil
}

func decide(tag *model.Tag) RedirectDecision {
	switch tag.Status {
	case model.TagStatusActive:
		if target := tag.Target(); target != "" {
			return RedirectDecision{Kind: DecisionPermanentRedirect, URL: target}
		}
	case model.TagStatusUnassigned, model.TagStatusRegistered:
		return RedirectDecision{Kind: DecisionActivationRedirect, URL: ActivationPath(tag.Token)}
	}
	return RedirectDecision{Kind: DecisionNotFound}
}

// PromptState creates unknown tokens like a scan does, but records no access.
func (uc *redirectUC) PromptState(ctx context.Context, token string, clientIP string) (PromptState, error) {
	defer logging.TraceDuration(uc.log, "RedirectUC.PromptState")()

	token = strings.TrimSpace(token)
	if !uc.tokens.Valid(token) {
		return PromptInvalid, nil
	}
	tag, created, err := uc.provisioner.Ensure(ctx, model.ActorSystem, token, SourceActivatePage, map[string]any{"ip": clientIP})
	if err != nil {
		return "", internal(err)
	}
	if created {
		return PromptNew, nil
	}
	switch tag.Status {
	case model.TagStatusUnassigned, model.TagStatusRegistered:
		return PromptAvailable, nil
	case model.TagStatusActive:
		return PromptAlreadyActive, nil
	default:
		return PromptUnavailable, nil
	}
}
