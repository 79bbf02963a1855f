package repository

import (
	"context"

	"tagpay/internal/domain/model"
)

// ActivationRepository stores successful claims. (tag_id, user_id) is unique.
type ActivationRepository interface {
	// Save reports false when an activation for the same tag and user exists.
	Save(ctx context.Context, tx Tx, a *model.Activation) (bool, error)
	Exists(ctx context.Context, tx Tx, tagID, userID string) (bool, error)
	CountActivations(ctx context.Context, tx Tx) (int, error)
}
