//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/usecase"
)

func TestActivationUseCase_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("should activate a new token with a cashtag and redirect permanently", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.activate(t, "ABCD1234", "bob@example.com", "$bob")
		if err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		if res.RedirectURL != "https://cash.app/$bob" || res.Provider != model.ProviderCashApp {
			t.Errorf("unexpected result: %+v", res)
		}

		tag := f.tag(t, "ABCD1234")
		if tag.Status != model.TagStatusActive || tag.Target() != "https://cash.app/$bob" {
			t.Errorf("expected active tag with target, got %+v", tag)
		}
		if tag.BuyerUserID == nil || *tag.BuyerUserID != res.UserID {
			t.Error("expected buyer to be recorded on the tag")
		}

		d, err := f.redirect.Resolve(ctx, "ABCD1234", usecase.AccessInfo{})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if d.Kind != usecase.DecisionPermanentRedirect || d.URL != "https://cash.app/$bob" || d.StatusCode() != 301 {
			t.Errorf("expected 301 to cash.app, got %+v", d)
		}

		if f.countAction(model.AuditTokenCreated) != 1 || f.countAction(model.AuditTokenActivated) != 1 {
			t.Errorf("unexpected audit trail: %v", f.audits.Actions())
		}
		if f.notifier.count() != 1 {
			t.Errorf("expected one notification, got %d", f.notifier.count())
		}
	})

	t.Run("should provision a profile when no handle is given", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.activate(t, "CARD0001", "Alice.Smith@Example.com", "")
		if err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		if res.Provider != model.ProviderProfile || res.RedirectURL != "https://tagpay.example/u/alicesmith" {
			t.Errorf("unexpected result: %+v", res)
		}

		// Same base username for another user gets a suffix.
		res2, err := f.activate(t, "CARD0002", "alice.smith@other.org", "")
		if err != nil {
			t.Fatalf("second Activate failed: %v", err)
		}
		if res2.RedirectURL != "https://tagpay.example/u/alicesmith1" {
			t.Errorf("expected suffixed username, got %s", res2.RedirectURL)
		}

		prof, err := f.profile.GetByUsername(ctx, "alicesmith")
		if err != nil {
			t.Fatalf("GetByUsername failed: %v", err)
		}
		if prof.Headline != model.DefaultProfileHeadline {
			t.Errorf("expected default headline, got %q", prof.Headline)
		}
	})

	t.Run("should reject a second activation by the same user as duplicate", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.activate(t, "DUPE1234", "bob@example.com", "$bob"); err != nil {
			t.Fatalf("first Activate failed: %v", err)
		}
		_, err := f.activate(t, "DUPE1234", "BOB@example.com", "$other")
		if !errors.Is(err, domain.ErrDuplicateActivation) {
			t.Fatalf("expected ErrDuplicateActivation, got %v", err)
		}
		if got := f.activations.ListByTag(f.tag(t, "DUPE1234").ID); len(got) != 1 {
			t.Errorf("expected exactly one activation, got %d", len(got))
		}
	})

	t.Run("should reject another user on an active tag", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.activate(t, "TAKEN123", "bob@example.com", "$bob"); err != nil {
			t.Fatalf("first Activate failed: %v", err)
		}
		_, err := f.activate(t, "TAKEN123", "eve@example.com", "$eve")
		if !errors.Is(err, domain.ErrAlreadyActivated) {
			t.Fatalf("expected ErrAlreadyActivated, got %v", err)
		}
		if f.tag(t, "TAKEN123").Target() != "https://cash.app/$bob" {
			t.Error("target must not change after activation")
		}
	})

	t.Run("should reject a blocked tag and audit the attempt", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.redirect.Resolve(ctx, "BLOCK123", usecase.AccessInfo{}); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if _, err := f.admin.Block(ctx, "admin@example.com", "BLOCK123"); err != nil {
			t.Fatalf("Block failed: %v", err)
		}

		_, err := f.activate(t, "BLOCK123", "bob@example.com", "$bob")
		if !errors.Is(err, domain.ErrTagBlocked) {
			t.Fatalf("expected ErrTagBlocked, got %v", err)
		}
		if f.countAction(model.AuditActivationRejected) != 1 {
			t.Errorf("expected activation_rejected entry, got %v", f.audits.Actions())
		}
		if n, _ := f.users.CountUsers(ctx, nil); n != 0 {
			t.Errorf("expected no user to be created, got %d", n)
		}
	})

	t.Run("should fail validation before touching storage", func(t *testing.T) {
		cases := []struct {
			name  string
			in    usecase.ActivateInput
			match error
		}{
			{"bad token", usecase.ActivateInput{Token: "ab", Name: "Bob", Email: "bob@example.com"}, domain.ErrInvalidTokenFormat},
			{"token with symbols", usecase.ActivateInput{Token: "ABCD-1234", Name: "Bob", Email: "bob@example.com"}, domain.ErrInvalidTokenFormat},
			{"bad email", usecase.ActivateInput{Token: "ABCD1234", Name: "Bob", Email: "bob@"}, domain.ErrInvalidEmail},
			{"missing name", usecase.ActivateInput{Token: "ABCD1234", Email: "bob@example.com"}, domain.ErrInvalidArgument},
			{"bad handle", usecase.ActivateInput{Token: "ABCD1234", Name: "Bob", Email: "bob@example.com", PaymentHandle: "https://evil.com/pay"}, domain.ErrInvalidPaymentHandle},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				f := newFixture(t)
				_, err := f.activation.Activate(ctx, c.in)
				if !errors.Is(err, c.match) {
					t.Fatalf("expected %v, got %v", c.match, err)
				}
				if !domain.IsValidation(err) {
					t.Errorf("expected a validation error, got %v", err)
				}
				if len(f.audits.Actions()) != 0 {
					t.Errorf("expected no writes, got audit %v", f.audits.Actions())
				}
			})
		}
	})

	t.Run("should keep the activation when the notifier fails", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("smtp down")

		res, err := f.activate(t, "NOTIFY12", "bob@example.com", "paypal.me/bob")
		if err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		if res.RedirectURL != "https://paypal.me/bob" {
			t.Errorf("unexpected target %s", res.RedirectURL)
		}
		if f.tag(t, "NOTIFY12").Status != model.TagStatusActive {
			t.Error("expected tag to stay active")
		}
	})

	t.Run("should roll back and report internal on storage failure", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.redirect.Resolve(ctx, "FAIL1234", usecase.AccessInfo{}); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		f.store.FailWrites(errors.New("disk full"))

		_, err := f.activate(t, "FAIL1234", "bob@example.com", "$bob")
		if !errors.Is(err, domain.ErrInternal) {
			t.Fatalf("expected ErrInternal, got %v", err)
		}
		f.store.FailWrites(nil)

		if tag := f.tag(t, "FAIL1234"); tag.Status != model.TagStatusUnassigned || tag.TargetURL != nil {
			t.Errorf("expected untouched tag, got %+v", tag)
		}
		if n, _ := f.users.CountUsers(ctx, nil); n != 0 {
			t.Errorf("expected user insert to be rolled back, got %d users", n)
		}
		if f.notifier.count() != 0 {
			t.Error("expected no notification for a failed activation")
		}
	})

	t.Run("should publish committed audit entries to the stream", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.activate(t, "STREAM12", "bob@example.com", "@bob"); err != nil {
			t.Fatalf("Activate failed: %v", err)
		}
		got := f.stream.actions()
		want := []model.AuditAction{model.AuditTokenCreated, model.AuditTokenActivated}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("expected stream %v, got %v", want, got)
		}
	})
}

func TestActivationUseCase_ConcurrentClaims(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.activate(t, "RACE1234", fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("$user%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	for _, err := range others {
		if !errors.Is(err, domain.ErrAlreadyActivated) {
			t.Errorf("expected ErrAlreadyActivated for losers, got %v", err)
		}
	}
	tag := f.tag(t, "RACE1234")
	if got := f.activations.ListByTag(tag.ID); len(got) != 1 {
		t.Fatalf("expected one activation, got %d", len(got))
	}
	if !strings.HasPrefix(tag.Target(), "https://cash.app/$user") {
		t.Errorf("unexpected target %s", tag.Target())
	}
	if f.countAction(model.AuditTokenCreated) != 1 {
		t.Errorf("expected a single token_created, got %v", f.audits.Actions())
	}
}
