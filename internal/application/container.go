package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tagpay/internal/config"
	"tagpay/internal/domain/ports/adapter"
	"tagpay/internal/domain/ports/repository"
	"tagpay/internal/infra/db/memory"
	pg "tagpay/internal/infra/db/postgres"
	"tagpay/internal/infra/events"
	"tagpay/internal/infra/metrics"
	"tagpay/internal/infra/notify"
	red "tagpay/internal/infra/redis"
	"tagpay/internal/infra/scheduler"
	"tagpay/internal/infra/web"
	"tagpay/internal/infra/worker"
	"tagpay/internal/normalize"
	"tagpay/internal/usecase"
	"tagpay/internal/validation"
)

const (
	poolStatsEvery = 15 * time.Second
	inventoryEvery = time.Minute
)

// Repos groups the storage ports so both backends wire the same way.
type Repos struct {
	TM          repository.TransactionManager
	Tags        repository.TagRepository
	Users       repository.UserRepository
	Activations repository.ActivationRepository
	Audit       repository.AuditRepository
	Profiles    repository.ProfileRepository
}

// Container owns every long-lived dependency of the service. The HTTP server
// and the admin CLI both build one from the same config.
type Container struct {
	Cfg        *config.Config
	Log        *zerolog.Logger
	Tokens     *validation.TokenValidator
	Normalizer *normalize.Normalizer
	Repos      Repos
	Jobs       *worker.Pool
	Limiter    web.RateLimiter
	Notifier   adapter.Notifier
	Stream     adapter.AuditPublisher

	Audit      *usecase.AuditLog
	Activation usecase.ActivationUseCase
	Redirect   usecase.RedirectUseCase
	Admin      usecase.AdminUseCase
	Profiles   usecase.ProfileUseCase

	inventory  *scheduler.Scheduler
	startHooks []func(ctx context.Context)
	closers    []func() error
}

// New connects storage and builds the use cases. Close must be called even
// when New fails part way, so it is safe on a partially built container.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {
	c := &Container{Cfg: cfg, Log: logger}

	tokens, err := validation.NewTokenValidator(validation.TokenRules{
		MinLength: cfg.Tokens.MinLength,
		MaxLength: cfg.Tokens.MaxLength,
	})
	if err != nil {
		return c, fmt.Errorf("tokens: %w", err)
	}
	c.Tokens = tokens

	c.Normalizer, err = normalize.New(normalize.Config{
		AllowedDomains: cfg.Payments.AllowedDomains,
		ServiceDomain:  cfg.Payments.ServiceDomain,
	})
	if err != nil {
		return c, fmt.Errorf("normalizer: %w", err)
	}

	if err := c.openStorage(ctx); err != nil {
		return c, err
	}
	if err := c.openLimiter(ctx); err != nil {
		return c, err
	}
	if err := c.openOutbound(); err != nil {
		return c, err
	}

	c.Jobs = worker.NewPool(cfg.Workers.Size, cfg.Workers.Queue, logger)
	// Jobs outlive the serving context so Close can drain them.
	c.startHooks = append(c.startHooks, func(ctx context.Context) {
		c.Jobs.Start(context.WithoutCancel(ctx))
	})

	// Dispatcher is an interface: a nil *Pool must not reach the use cases.
	var jobs usecase.Dispatcher = c.Jobs

	r := c.Repos
	c.Audit = usecase.NewAuditLog(r.Audit, c.Stream, jobs, logger)
	prov := usecase.NewTagProvisioner(r.TM, r.Tags, c.Audit, logger)
	c.Profiles = usecase.NewProfileUseCase(r.Profiles, r.Users, cfg.Server.PublicBaseURL, logger)
	c.Activation = usecase.NewActivationUseCase(usecase.ActivationDeps{
		Tokens:      tokens,
		Normalizer:  c.Normalizer,
		TM:          r.TM,
		Tags:        r.Tags,
		Users:       r.Users,
		Activations: r.Activations,
		Profiles:    c.Profiles,
		Provisioner: prov,
		Audit:       c.Audit,
		Notifier:    c.Notifier,
		Jobs:        jobs,
		Dev:         cfg.Runtime.Dev,
	}, logger)
	c.Redirect = usecase.NewRedirectUseCase(tokens, r.Tags, prov, c.Audit, logger)
	c.Admin = usecase.NewAdminUseCase(tokens, r.TM, r.Tags, r.Users, r.Activations, prov, c.Audit, logger)

	c.inventory = scheduler.New("tag_inventory", inventoryEvery, c.refreshInventory, logger)
	c.startHooks = append(c.startHooks, c.inventory.Start)
	return c, nil
}

// refreshInventory publishes the per-status tag counts as gauges.
func (c *Container) refreshInventory(ctx context.Context) error {
	st, err := c.Admin.Stats(ctx)
	if err != nil {
		return err
	}
	byStatus := make(map[string]int, len(st.Tags))
	for status, n := range st.Tags {
		byStatus[string(status)] = n
	}
	metrics.SetTagInventory(byStatus)
	return nil
}

func (c *Container) openStorage(ctx context.Context) error {
	if c.Cfg.Database.InMemory() {
		c.Log.Warn().Msg("using in-memory storage; data is lost on exit")
		s := memory.NewStore()
		c.Repos = Repos{
			TM:          memory.NewTxManager(s),
			Tags:        memory.NewTagRepo(s),
			Users:       memory.NewUserRepo(s),
			Activations: memory.NewActivationRepo(s),
			Audit:       memory.NewAuditRepo(s),
			Profiles:    memory.NewProfileRepo(s),
		}
		return nil
	}

	pool, err := pg.Connect(ctx, c.Cfg.Database.URL, c.Cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	c.closers = append(c.closers, func() error { pool.Close(); return nil })
	c.startHooks = append(c.startHooks, func(ctx context.Context) {
		go pg.ReportPoolStats(ctx, pool, poolStatsEvery, c.Log)
	})
	c.Repos = Repos{
		TM:          pg.NewTxManager(pool),
		Tags:        pg.NewTagRepo(pool),
		Users:       pg.NewUserRepo(pool),
		Activations: pg.NewActivationRepo(pool),
		Audit:       pg.NewAuditRepo(pool),
		Profiles:    pg.NewProfileRepo(pool),
	}
	return nil
}

func (c *Container) openLimiter(ctx context.Context) error {
	if c.Cfg.Redis.InMemory() {
		c.Limiter = red.NewLocalRateLimiter()
		return nil
	}
	client, err := red.NewClient(ctx, &c.Cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)
	c.Limiter = red.NewRateLimiter(client)
	return nil
}

func (c *Container) openOutbound() error {
	var channels []adapter.Notifier
	if c.Cfg.Mail.Enabled() {
		n, err := notify.NewEmailNotifier(&c.Cfg.Mail)
		if err != nil {
			return fmt.Errorf("mail: %w", err)
		}
		channels = append(channels, n)
	}
	if c.Cfg.Telegram.Enabled() {
		n, err := notify.NewTelegramNotifier(&c.Cfg.Telegram)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		channels = append(channels, n)
	}
	if multi := notify.NewMulti(c.Log, channels...); multi.Len() > 0 {
		c.Notifier = multi
	}

	if c.Cfg.Kafka.Enabled() {
		p, err := events.NewKafkaAuditPublisher(c.Cfg.Kafka.Brokers, c.Cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		c.closers = append(c.closers, p.Close)
		c.Stream = p
	}
	return nil
}

// Start launches background work bound to ctx.
func (c *Container) Start(ctx context.Context) {
	for _, h := range c.startHooks {
		h(ctx)
	}
}

// Close drains queued jobs first, then releases connections in reverse order.
func (c *Container) Close() error {
	if c.inventory != nil {
		c.inventory.Stop()
	}
	if c.Jobs != nil {
		c.Jobs.Stop()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Auth builds the admin session manager. Cookies are marked secure when the
// public base URL is https.
func (c *Container) Auth() *web.AuthManager {
	a := c.Cfg.Admin
	secure := false
	if u, err := url.Parse(c.Cfg.Server.PublicBaseURL); err == nil {
		secure = strings.EqualFold(u.Scheme, "https")
	}
	return web.NewAuthManager(a.JWTSecret, a.Email, a.PasswordHash, secure, "", a.SessionTTL)
}

// Server assembles the HTTP surface.
func (c *Container) Server() *web.Server {
	return web.NewServer(web.Deps{
		Activation: c.Activation,
		Redirect:   c.Redirect,
		Admin:      c.Admin,
		Profiles:   c.Profiles,
		Normalizer: c.Normalizer,
		Auth:       c.Auth(),
		Limiter:    c.Limiter,
	}, c.Cfg.Server, c.Cfg.RateLimit, c.Log)
}
