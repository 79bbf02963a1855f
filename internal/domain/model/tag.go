package model

import (
	"fmt"
	"time"

	"tagpay/internal/domain"

	"github.com/google/uuid"
)

type TagStatus string

const (
	TagStatusUnassigned TagStatus = "unassigned" // provisioned or auto-created, no target yet
	TagStatusRegistered TagStatus = "registered" // reserved for a buyer, no resolved target yet
	TagStatusActive     TagStatus = "active"     // carries target_url and buyer
	TagStatusBlocked    TagStatus = "blocked"    // administratively disabled
)

// ParseTagStatus maps a stored value back to a TagStatus.
func ParseTagStatus(s string) (TagStatus, error) {
	switch TagStatus(s) {
	case TagStatusUnassigned, TagStatusRegistered, TagStatusActive, TagStatusBlocked:
		return TagStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown tag status %q", domain.ErrInvalidArgument, s)
	}
}

// Activatable reports whether a tag in this status may be claimed by a user.
func (s TagStatus) Activatable() bool {
	return s == TagStatusUnassigned || s == TagStatusRegistered
}

// Tag is one physical token and its lifecycle state.
// TargetURL and BuyerUserID are set iff Status is Active.
type Tag struct {
	ID          string
	Token       string
	Status      TagStatus
	TargetURL   *string
	BuyerUserID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUnassignedTag builds a fresh tag for a token that has never been seen.
func NewUnassignedTag(token string) *Tag {
	now := time.Now().UTC()
	return &Tag{
		ID:        uuid.NewString(),
		Token:     token,
		Status:    TagStatusUnassigned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t *Tag) IsZero() bool { return t == nil || t.ID == "" }

// Target returns the redirect destination, or "" when the tag has none.
func (t *Tag) Target() string {
	if t == nil || t.TargetURL == nil {
		return ""
	}
	return *t.TargetURL
}

// TagTransition is a compare-and-transition request: it applies only when the
// current status is one of From.
type TagTransition struct {
	From        []TagStatus
	To          TagStatus
	TargetURL   *string
	BuyerUserID *string
}

// ActivateTransition moves an Unassigned or Registered tag to Active.
func ActivateTransition(targetURL, buyerUserID string) TagTransition {
	return TagTransition{
		From:        []TagStatus{TagStatusUnassigned, TagStatusRegistered},
		To:          TagStatusActive,
		TargetURL:   &targetURL,
		BuyerUserID: &buyerUserID,
	}
}

// BlockTransition disables a tag from any non-blocked status and drops its target.
func BlockTransition() TagTransition {
	return TagTransition{
		From: []TagStatus{TagStatusUnassigned, TagStatusRegistered, TagStatusActive},
		To:   TagStatusBlocked,
	}
}

// UnblockTransition returns a blocked tag to the unassigned pool.
func UnblockTransition() TagTransition {
	return TagTransition{
		From: []TagStatus{TagStatusBlocked},
		To:   TagStatusUnassigned,
	}
}

// Allows reports whether the transition may start from s.
func (tr TagTransition) Allows(s TagStatus) bool {
	for _, f := range tr.From {
		if f == s {
			return true
		}
	}
	return false
}

// Validate enforces the target/buyer invariant on the destination state.
func (tr TagTransition) Validate() error {
	if len(tr.From) == 0 {
		return fmt.Errorf("%w: transition has no source states", domain.ErrIllegalTransition)
	}
	if _, err := ParseTagStatus(string(tr.To)); err != nil {
		return err
	}
	hasTarget := tr.TargetURL != nil && *tr.TargetURL != ""
	hasBuyer := tr.BuyerUserID != nil && *tr.BuyerUserID != ""
	if tr.To == TagStatusActive {
		if !hasTarget || !hasBuyer {
			return fmt.Errorf("%w: active requires target url and buyer", domain.ErrIllegalTransition)
		}
		return nil
	}
	if hasTarget || hasBuyer {
		return fmt.Errorf("%w: only active tags carry a target", domain.ErrIllegalTransition)
	}
	return nil
}

// StatusStrings renders From for SQL parameters.
func (tr TagTransition) StatusStrings() []string {
	out := make([]string, len(tr.From))
	for i, s := range tr.From {
		out[i] = string(s)
	}
	return out
}

// Apply mutates t in memory. Callers must check Allows first.
func (tr TagTransition) Apply(t *Tag, at time.Time) {
	t.Status = tr.To
	t.TargetURL = copyStr(tr.TargetURL)
	t.BuyerUserID = copyStr(tr.BuyerUserID)
	t.UpdatedAt = at
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
