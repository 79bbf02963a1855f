package model

import (
	"strings"
	"time"

	"tagpay/internal/domain"

	"github.com/google/uuid"
)

// User is a person who activated at least one tag. Email is the dedup key.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	CreatedAt time.Time
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NewUser(name, email, phone string) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	u := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if p := strings.TrimSpace(phone); p != "" {
		u.Phone = &p
	}
	return u, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) PhoneNumber() string {
	if u == nil || u.Phone == nil {
		return ""
	}
	return *u.Phone
}
