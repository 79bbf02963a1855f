//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v4"

	"tagpay/internal/domain"
	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/repository"
)

func TestTagRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	tags := NewTagRepo(testPool)
	users := NewUserRepo(testPool)
	tm := NewTxManager(testPool)

	t.Run("concurrent first touch creates exactly one row", func(t *testing.T) {
		cleanup(t)

		const n = 12
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			ids     = map[string]struct{}{}
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tag, ok, err := tags.CreateUnassigned(ctx, repository.NoTX, model.NewUnassignedTag("RACE0001"))
				if err != nil {
					t.Errorf("CreateUnassigned failed: %v", err)
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if ok {
					created++
				}
				ids[tag.ID] = struct{}{}
			}()
		}
		wg.Wait()

		if created != 1 || len(ids) != 1 {
			t.Fatalf("expected one creation seen by all, got created=%d ids=%d", created, len(ids))
		}
	})

	t.Run("compare and transition applies once", func(t *testing.T) {
		cleanup(t)
		tag, _, err := tags.CreateUnassigned(ctx, repository.NoTX, model.NewUnassignedTag("CAS00001"))
		if err != nil {
			t.Fatalf("create tag: %v", err)
		}
		u, _ := model.NewUser("Bob", "bob@example.com", "")
		u, err = users.CreateIfAbsent(ctx, repository.NoTX, u)
		if err != nil {
			t.Fatalf("create user: %v", err)
		}

		ok, err := tags.CompareAndTransition(ctx, repository.NoTX, tag.ID, model.ActivateTransition("https://cash.app/$bob", u.ID))
		if err != nil || !ok {
			t.Fatalf("first transition: ok=%v err=%v", ok, err)
		}
		ok, err = tags.CompareAndTransition(ctx, repository.NoTX, tag.ID, model.ActivateTransition("https://cash.app/$eve", u.ID))
		if err != nil || ok {
			t.Fatalf("second transition must not apply: ok=%v err=%v", ok, err)
		}

		got, err := tags.FindByToken(ctx, repository.NoTX, "CAS00001")
		if err != nil {
			t.Fatalf("FindByToken: %v", err)
		}
		if got.Status != model.TagStatusActive || got.Target() != "https://cash.app/$bob" {
			t.Errorf("unexpected tag: %+v", got)
		}

		ok, err = tags.CompareAndTransition(ctx, repository.NoTX, tag.ID, model.BlockTransition())
		if err != nil || !ok {
			t.Fatalf("block: ok=%v err=%v", ok, err)
		}
		got, _ = tags.FindByToken(ctx, repository.NoTX, "CAS00001")
		if got.TargetURL != nil || got.BuyerUserID != nil {
			t.Errorf("blocked tag must not keep target or buyer: %+v", got)
		}
	})

	t.Run("lock requires a transaction", func(t *testing.T) {
		cleanup(t)
		if _, err := tags.LockByToken(ctx, repository.NoTX, "ABCDEF12"); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Fatalf("expected ErrInvalidExecContext, got %v", err)
		}
		_, _, _ = tags.CreateUnassigned(ctx, repository.NoTX, model.NewUnassignedTag("ABCDEF12"))
		err := tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
			tag, err := tags.LockByToken(ctx, tx, "ABCDEF12")
			if err != nil {
				return err
			}
			if tag.Status != model.TagStatusUnassigned {
				t.Errorf("unexpected status %s", tag.Status)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithTx: %v", err)
		}
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		cleanup(t)
		if _, err := tags.FindByToken(ctx, repository.NoTX, "NOPE0000"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("stats and export", func(t *testing.T) {
		cleanup(t)
		_, _, _ = tags.CreateUnassigned(ctx, repository.NoTX, model.NewUnassignedTag("EXPORT01"))
		tag, _, _ := tags.CreateUnassigned(ctx, repository.NoTX, model.NewUnassignedTag("EXPORT02"))
		u, _ := model.NewUser("Bob", "bob@example.com", "5551234567")
		u, _ = users.CreateIfAbsent(ctx, repository.NoTX, u)
		act := model.NewActivation(tag.ID, u.ID, model.ProviderCashApp, "$bob", "https://cash.app/$bob")
		if _, err := NewActivationRepo(testPool).Save(ctx, repository.NoTX, act); err != nil {
			t.Fatalf("save activation: %v", err)
		}
		_, _ = tags.CompareAndTransition(ctx, repository.NoTX, tag.ID, model.ActivateTransition(act.ResolvedTargetURL, u.ID))

		counts, err := tags.CountByStatus(ctx, repository.NoTX)
		if err != nil {
			t.Fatalf("CountByStatus: %v", err)
		}
		if counts[model.TagStatusActive] != 1 || counts[model.TagStatusUnassigned] != 1 {
			t.Errorf("unexpected counts: %v", counts)
		}

		rows, err := tags.ListExportRows(ctx, repository.NoTX)
		if err != nil {
			t.Fatalf("ListExportRows: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0].Token != "EXPORT01" || rows[0].ActivatedAt != nil {
			t.Errorf("unexpected first row: %+v", rows[0])
		}
		if rows[1].BuyerEmail != "bob@example.com" || rows[1].PaymentHandle != "$bob" || rows[1].ActivatedAt == nil {
			t.Errorf("unexpected second row: %+v", rows[1])
		}
	})
}
