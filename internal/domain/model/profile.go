package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultProfileHeadline = "Digital Business Card"
	DefaultProfileTheme    = "light"
)

// ProfileLink is one contact entry rendered on a business card.
type ProfileLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Profile is the public business card auto-provisioned for users who activate
// a tag without a payment handle.
type Profile struct {
	ID          string        `json:"-"`
	UserID      string        `json:"-"`
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Headline    string        `json:"headline"`
	Theme       string        `json:"theme"`
	Links       []ProfileLink `json:"links"`
	CreatedAt   time.Time     `json:"created_at"`
}

// BaseUsername derives the username stem from the local part of an email.
func BaseUsername(email string) string {
	local := NormalizeEmail(email)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// CandidateUsername returns the n-th candidate: base, base1, base2, ...
func CandidateUsername(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}

// NewProfile creates a card for u under the given username with default data.
func NewProfile(u *User, username string) *Profile {
	p := &Profile{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	p.ApplyDefaults(u)
	return p
}

// ApplyDefaults fills empty display fields from the user's contact data and
// reports whether anything changed.
func (p *Profile) ApplyDefaults(u *User) bool {
	changed := false
	if p.DisplayName == "" && u.Name != "" {
		p.DisplayName = u.Name
		changed = true
	}
	if p.Headline == "" {
		p.Headline = DefaultProfileHeadline
		changed = true
	}
	if p.Theme == "" {
		p.Theme = DefaultProfileTheme
		changed = true
	}
	if len(p.Links) == 0 {
		if links := DefaultProfileLinks(u); len(links) > 0 {
			p.Links = links
			changed = true
		}
	}
	return changed
}

func DefaultProfileLinks(u *User) []ProfileLink {
	var links []ProfileLink
	if u.Email != "" {
		links = append(links, ProfileLink{Title: "Email", URL: "mailto:" + u.Email, Type: "email"})
	}
	if phone := u.PhoneNumber(); phone != "" {
		links = append(links, ProfileLink{Title: "Phone", URL: "tel:" + phone, Type: "phone"})
	}
	return links
}
