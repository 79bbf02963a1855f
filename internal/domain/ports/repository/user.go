package repository

import (
	"context"

	"tagpay/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// CreateIfAbsent inserts u keyed by email and returns the stored user,
	// which is the existing one when the email was taken.
	CreateIfAbsent(ctx context.Context, tx Tx, u *model.User) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}
