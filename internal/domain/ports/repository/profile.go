package repository

import (
	"context"

	"tagpay/internal/domain/model"
)

type ProfileRepository interface {
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Profile, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.Profile, error)
	// CreateIfFree inserts p and reports false when the username or the
	// user already has a profile.
	CreateIfFree(ctx context.Context, tx Tx, p *model.Profile) (bool, error)
	// UpdateDisplay rewrites the display name, headline, theme and links.
	UpdateDisplay(ctx context.Context, tx Tx, p *model.Profile) error
}
