//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tagpay/internal/domain/model"
	"tagpay/internal/domain/ports/adapter"
	"tagpay/internal/infra/db/memory"
	"tagpay/internal/normalize"
	"tagpay/internal/usecase"
	"tagpay/internal/validation"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// -----------------------------
// Mock notifier and audit stream
// -----------------------------

type mockNotifier struct {
	mu      sync.Mutex
	notices []adapter.ActivationNotice
	err     error
}

func (m *mockNotifier) NotifyActivation(_ context.Context, n adapter.ActivationNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	return m.err
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notices)
}

type mockAuditStream struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (m *mockAuditStream) PublishAudit(_ context.Context, e *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditStream) Close() error { return nil }

func (m *mockAuditStream) actions() []model.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditAction, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// -----------------------------
// Fixture: everything wired over the memory store
// -----------------------------

type fixture struct {
	store       *memory.Store
	tags        *memory.TagRepo
	users       *memory.UserRepo
	activations *memory.ActivationRepo
	audits      *memory.AuditRepo
	profiles    *memory.ProfileRepo
	notifier    *mockNotifier
	stream      *mockAuditStream

	activation usecase.ActivationUseCase
	redirect   usecase.RedirectUseCase
	admin      usecase.AdminUseCase
	profile    usecase.ProfileUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := newTestLogger()

	norm, err := normalize.New(normalize.Config{
		AllowedDomains: []string{"cash.app", "paypal.me", "venmo.com", "example.com"},
		ServiceDomain:  "tagpay.example",
	})
	if err != nil {
		t.Fatalf("normalize.New failed: %v", err)
	}
	tokens := validation.MustTokenValidator(validation.DefaultTokenRules())

	f := &fixture{
		store:    memory.NewStore(),
		notifier: &mockNotifier{},
		stream:   &mockAuditStream{},
	}
	f.tags = memory.NewTagRepo(f.store)
	f.users = memory.NewUserRepo(f.store)
	f.activations = memory.NewActivationRepo(f.store)
	f.audits = memory.NewAuditRepo(f.store)
	f.profiles = memory.NewProfileRepo(f.store)
	tm := memory.NewTxManager(f.store)

	audit := usecase.NewAuditLog(f.audits, f.stream, nil, log)
	prov := usecase.NewTagProvisioner(tm, f.tags, audit, log)
	f.profile = usecase.NewProfileUseCase(f.profiles, f.users, "https://tagpay.example/", log)
	f.activation = usecase.NewActivationUseCase(usecase.ActivationDeps{
		Tokens:      tokens,
		Normalizer:  norm,
		TM:          tm,
		Tags:        f.tags,
		Users:       f.users,
		Activations: f.activations,
		Profiles:    f.profile,
		Provisioner: prov,
		Audit:       audit,
		Notifier:    f.notifier,
	}, log)
	f.redirect = usecase.NewRedirectUseCase(tokens, f.tags, prov, audit, log)
	f.admin = usecase.NewAdminUseCase(tokens, tm, f.tags, f.users, f.activations, prov, audit, log)
	return f
}

func (f *fixture) tag(t *testing.T, token string) *model.Tag {
	t.Helper()
	tag, err := f.tags.FindByToken(context.Background(), nil, token)
	if err != nil {
		t.Fatalf("FindByToken(%s) failed: %v", token, err)
	}
	return tag
}

func (f *fixture) countAction(a model.AuditAction) int {
	n := 0
	for _, got := range f.audits.Actions() {
		if got == a {
			n++
		}
	}
	return n
}

func (f *fixture) activate(t *testing.T, token, email, handle string) (*usecase.ActivateResult, error) {
	t.Helper()
	return f.activation.Activate(context.Background(), usecase.ActivateInput{
		Token:         token,
		Name:          "Bob",
		Email:         email,
		PaymentHandle: handle,
		ClientIP:      "203.0.113.7",
	})
}
