//go:build !integration

package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tagpay/internal/config"
	"tagpay/internal/infra/db/memory"
	"tagpay/internal/infra/redis"
	"tagpay/internal/normalize"
	"tagpay/internal/usecase"
	"tagpay/internal/validation"
)

const (
	testAdminEmail    = "admin@tagpay.example"
	testAdminPassword = "correct horse battery staple"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type testEnv struct {
	store  *memory.Store
	router http.Handler
}

func newTestEnv(t *testing.T, rl config.RateLimitConfig) *testEnv {
	t.Helper()
	log := newLogger()

	norm, err := normalize.New(normalize.Config{
		AllowedDomains: []string{"cash.app", "paypal.me", "venmo.com"},
		ServiceDomain:  "tagpay.example",
	})
	if err != nil {
		t.Fatalf("normalize.New: %v", err)
	}
	tokens := validation.MustTokenValidator(validation.DefaultTokenRules())

	store := memory.NewStore()
	tm := memory.NewTxManager(store)
	tags := memory.NewTagRepo(store)
	users := memory.NewUserRepo(store)
	acts := memory.NewActivationRepo(store)
	profiles := memory.NewProfileRepo(store)

	audit := usecase.NewAuditLog(memory.NewAuditRepo(store), nil, nil, log)
	prov := usecase.NewTagProvisioner(tm, tags, audit, log)
	profileUC := usecase.NewProfileUseCase(profiles, users, "https://tagpay.example", log)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	srv := NewServer(Deps{
		Activation: usecase.NewActivationUseCase(usecase.ActivationDeps{
			Tokens:      tokens,
			Normalizer:  norm,
			TM:          tm,
			Tags:        tags,
			Users:       users,
			Activations: acts,
			Profiles:    profileUC,
			Provisioner: prov,
			Audit:       audit,
		}, log),
		Redirect:   usecase.NewRedirectUseCase(tokens, tags, prov, audit, log),
		Admin:      usecase.NewAdminUseCase(tokens, tm, tags, users, acts, prov, audit, log),
		Profiles:   profileUC,
		Normalizer: norm,
		Auth:       NewAuthManager("test-secret", testAdminEmail, string(hash), false, "", time.Hour),
		Limiter:    redis.NewLocalRateLimiter(),
	}, config.ServerConfig{RequestTimeout: 5 * time.Second}, rl, log)

	return &testEnv{store: store, router: srv.Router()}
}

func (e *testEnv) do(t *testing.T, method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
