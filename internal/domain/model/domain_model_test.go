//go:build !integration

package model

import (
	"errors"
	"testing"

	"tagpay/internal/domain"
)

// --- Tag Model Tests ---

func TestParseTagStatus(t *testing.T) {
	for _, s := range []string{"unassigned", "registered", "active", "blocked"} {
		got, err := ParseTagStatus(s)
		if err != nil {
			t.Fatalf("ParseTagStatus(%q) failed: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("expected %q, got %q", s, got)
		}
	}
	if _, err := ParseTagStatus("archived"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown status, got %v", err)
	}
}

func TestTagStatus_Activatable(t *testing.T) {
	cases := map[TagStatus]bool{
		TagStatusUnassigned: true,
		TagStatusRegistered: true,
		TagStatusActive:     false,
		TagStatusBlocked:    false,
	}
	for s, want := range cases {
		if got := s.Activatable(); got != want {
			t.Errorf("%s.Activatable() = %v, want %v", s, got, want)
		}
	}
}

func TestNewUnassignedTag(t *testing.T) {
	tag := NewUnassignedTag("ABCD1234")
	if tag.ID == "" {
		t.Fatal("expected tag ID to be generated")
	}
	if tag.Status != TagStatusUnassigned {
		t.Errorf("expected unassigned status, got %s", tag.Status)
	}
	if tag.TargetURL != nil || tag.BuyerUserID != nil {
		t.Error("a new tag must not carry a target or buyer")
	}
}

func TestTagTransitions(t *testing.T) {
	t.Run("activate is allowed from unassigned and registered only", func(t *testing.T) {
		tr := ActivateTransition("https://cash.app/$bob", "user-1")
		if err := tr.Validate(); err != nil {
			t.Fatalf("valid activate transition rejected: %v", err)
		}
		for s, want := range map[TagStatus]bool{
			TagStatusUnassigned: true, TagStatusRegistered: true,
			TagStatusActive: false, TagStatusBlocked: false,
		} {
			if tr.Allows(s) != want {
				t.Errorf("Allows(%s) = %v, want %v", s, !want, want)
			}
		}
	})

	t.Run("activate without target is rejected", func(t *testing.T) {
		tr := ActivateTransition("", "user-1")
		if err := tr.Validate(); !errors.Is(err, domain.ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("block clears target and buyer", func(t *testing.T) {
		tag := NewUnassignedTag("ABCD1234")
		ActivateTransition("https://cash.app/$bob", "user-1").Apply(tag, tag.UpdatedAt)
		if tag.Target() != "https://cash.app/$bob" {
			t.Fatalf("expected target to be set, got %q", tag.Target())
		}
		block := BlockTransition()
		if !block.Allows(tag.Status) {
			t.Fatal("expected block to be allowed from active")
		}
		block.Apply(tag, tag.UpdatedAt)
		if tag.Status != TagStatusBlocked || tag.TargetURL != nil || tag.BuyerUserID != nil {
			t.Errorf("unexpected tag after block: %+v", tag)
		}
	})

	t.Run("unblock only from blocked", func(t *testing.T) {
		tr := UnblockTransition()
		if err := tr.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Allows(TagStatusActive) || !tr.Allows(TagStatusBlocked) {
			t.Error("unblock must start from blocked only")
		}
	})

	t.Run("non-active destination with target is rejected", func(t *testing.T) {
		url := "https://cash.app/$bob"
		tr := TagTransition{From: []TagStatus{TagStatusActive}, To: TagStatusBlocked, TargetURL: &url}
		if err := tr.Validate(); !errors.Is(err, domain.ErrIllegalTransition) {
			t.Errorf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("normalizes email and keeps optional phone", func(t *testing.T) {
		u, err := NewUser(" Bob ", " Bob@Example.COM ", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u.Email != "bob@example.com" {
			t.Errorf("expected normalized email, got %q", u.Email)
		}
		if u.Name != "Bob" {
			t.Errorf("expected trimmed name, got %q", u.Name)
		}
		if u.Phone != nil {
			t.Error("expected nil phone for blank input")
		}
	})

	t.Run("rejects blank name", func(t *testing.T) {
		if _, err := NewUser("  ", "bob@example.com", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

// --- Profile Model Tests ---

func TestBaseUsername(t *testing.T) {
	cases := []struct{ email, want string }{
		{"Bob.Smith@example.com", "bobsmith"},
		{"alice_1@example.com", "alice_1"},
		{"+++@example.com", "user"},
	}
	for _, c := range cases {
		if got := BaseUsername(c.email); got != c.want {
			t.Errorf("BaseUsername(%q) = %q, want %q", c.email, got, c.want)
		}
	}
	if CandidateUsername("bob", 0) != "bob" || CandidateUsername("bob", 2) != "bob2" {
		t.Error("unexpected candidate username sequence")
	}
}

func TestNewProfile_Defaults(t *testing.T) {
	u, _ := NewUser("Bob", "bob@example.com", "+1 555 123 4567")
	p := NewProfile(u, "bob")
	if p.DisplayName != "Bob" || p.Headline != DefaultProfileHeadline || p.Theme != DefaultProfileTheme {
		t.Errorf("defaults not applied: %+v", p)
	}
	if len(p.Links) != 2 || p.Links[0].URL != "mailto:bob@example.com" {
		t.Errorf("unexpected default links: %+v", p.Links)
	}
}

func TestProfile_ApplyDefaultsReportsChange(t *testing.T) {
	u, _ := NewUser("Bob", "bob@example.com", "")
	p := &Profile{Username: "bob", Theme: "dark"}
	if !p.ApplyDefaults(u) {
		t.Fatal("expected empty fields to be filled")
	}
	if p.Theme != "dark" {
		t.Errorf("expected an explicit theme to be kept, got %q", p.Theme)
	}
	if p.ApplyDefaults(u) {
		t.Error("expected no change on a filled profile")
	}
}

// --- Audit Model Tests ---

func TestNewAuditEntry(t *testing.T) {
	a := NewAuditEntry("", AuditTokenCreated, nil, map[string]any{"token": "ABCD1234"})
	b := NewAuditEntry("admin@example.com", AuditTagBlocked, nil, nil)
	if a.Actor != ActorSystem {
		t.Errorf("expected default actor %q, got %q", ActorSystem, a.Actor)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Error("expected unique audit IDs")
	}
	if a.ID > b.ID {
		t.Error("expected audit IDs to sort by creation order")
	}
}
