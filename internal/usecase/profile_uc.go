package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/logging"
)

const maxUsernameAttempts = 100

// Compile-time check
var _ ProfileUseCase = (*profileUC)(nil)

type ProfileUseCase interface {
	// Ensure returns the user's profile, creating it on first need.
	Ensure(ctx context.Context, tx repository.Tx, u *model.User) (*model.Profile, bool, error)
	PublicURL(username string) string
	GetByUsername(ctx context.Context, username string) (*model.Profile, error)
}

type profileUC struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	baseURL  string
	log      *zerolog.Logger
}

func NewProfileUseCase(profiles repository.ProfileRepository, users repository.UserRepository, publicBaseURL string, logger *zerolog.Logger) *profileUC {
	return &profileUC{
		profiles: profiles,
		users:    users,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
		log:      logger,
	}
}

// Ensure tries base, base1, base2, ... until a username is free. The
// sequence is deterministic for a given email. An existing card gets its
// empty display fields filled in and saved.
func (p *profileUC) Ensure(ctx context.Context, tx repository.Tx, u *model.User) (*model.Profile, bool, error) {
	defer logging.TraceDuration(p.log, "ProfileUC.Ensure")()

	existing, err := p.profiles.FindByUserID(ctx, tx, u.ID)
	if err == nil {
		if existing.ApplyDefaults(u) {
			if err := p.profiles.UpdateDisplay(ctx, tx, existing); err != nil {
				return nil, false, fmt.Errorf("fill profile defaults: %w", err)
			}
		}
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	base := model.BaseUsername(u.Email)
	for i := 0; i < maxUsernameAttempts; i++ {
		prof := model.NewProfile(u, model.CandidateUsername(base, i))
		ok, err := p.profiles.CreateIfFree(ctx, tx, prof)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return prof, true, nil
		}
		if _, err := p.profiles.FindByUserID(ctx, tx, u.ID); err == nil {
			return p.Ensure(ctx, tx, u)
		}
	}
	return nil, false, fmt.Errorf("%w: no free username for %q", domain.ErrOperationFailed, base)
}

func (p *profileUC) PublicURL(username string) string {
	return p.baseURL + "/u/" + url.PathEscape(username)
}

// GetByUsername returns the card with display defaults filled in.
func (p *profileUC) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	defer logging.TraceDuration(p.log, "ProfileUC.GetByUsername")()

	prof, err := p.profiles.FindByUsername(ctx, repository.NoTX, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	u, err := p.users.FindByID(ctx, repository.NoTX, prof.UserID)
	if err != nil {
		return nil, err
	}
	prof.ApplyDefaults(u)
	return prof, nil
}
