// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PublicBaseURL   string        `yaml:"public_base_url"` // e.g. https://tagpay.example
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrustProxy      bool          `yaml:"trust_proxy"` // honour X-Forwarded-For / X-Real-IP
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // postgres://... or memory://
	MaxConns int32  `yaml:"max_conns"`
}

// InMemory reports whether the in-process store was selected.
func (d DatabaseConfig) InMemory() bool { return strings.HasPrefix(d.URL, "memory://") }

type RedisConfig struct {
	URL      string `yaml:"url"` // redis://host:6379 or memory://
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) InMemory() bool { return r.URL == "" || strings.HasPrefix(r.URL, "memory://") }

type TokenConfig struct {
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`
}

type PaymentsConfig struct {
	AllowedDomains []string `yaml:"allowed_domains"`
	ServiceDomain  string   `yaml:"service_domain"`
}

type AdminConfig struct {
	Email        string        `yaml:"email"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (m MailConfig) Enabled() bool { return m.Host != "" && m.From != "" }

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

func (t TelegramConfig) Enabled() bool { return t.Token != "" && len(t.AdminChatIDs) > 0 }

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type RateLimitConfig struct {
	Requests         int           `yaml:"requests"` // per window, per client ip
	ActivateRequests int           `yaml:"activate_requests"`
	Window           time.Duration `yaml:"window"`
}

type WorkersConfig struct {
	Size  int `yaml:"size"`
	Queue int `yaml:"queue"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Tokens    TokenConfig     `yaml:"tokens"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Admin     AdminConfig     `yaml:"admin"`
	Mail      MailConfig      `yaml:"mail"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Workers   WorkersConfig   `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads .env (if present), the YAML file at path (if present),
// then applies environment overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("PUBLIC_BASE_URL", &cfg.Server.PublicBaseURL)
	str("SERVICE_DOMAIN", &cfg.Payments.ServiceDomain)
	str("ADMIN_EMAIL", &cfg.Admin.Email)
	str("ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash)
	str("JWT_SECRET", &cfg.Admin.JWTSecret)
	str("MAIL_HOST", &cfg.Mail.Host)
	str("MAIL_USERNAME", &cfg.Mail.Username)
	str("MAIL_PASSWORD", &cfg.Mail.Password)
	str("MAIL_FROM", &cfg.Mail.From)
	str("TELEGRAM_TOKEN", &cfg.Telegram.Token)
	str("LOG_LEVEL", &cfg.Log.Level)
	if v := os.Getenv("MAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = p
		}
	}
	if v := os.Getenv("ALLOWED_PAYMENT_DOMAINS"); v != "" {
		cfg.Payments.AllowedDomains = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Tokens.MinLength <= 0 {
		cfg.Tokens.MinLength = 6
	}
	if cfg.Tokens.MaxLength <= 0 {
		cfg.Tokens.MaxLength = 16
	}
	if len(cfg.Payments.AllowedDomains) == 0 {
		cfg.Payments.AllowedDomains = []string{"cash.app", "paypal.me", "venmo.com"}
	}
	if cfg.Payments.ServiceDomain == "" && cfg.Server.PublicBaseURL != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.Server.PublicBaseURL, "https://"), "http://")
		cfg.Payments.ServiceDomain = strings.TrimSuffix(host, "/")
	}
	if cfg.Server.PublicBaseURL == "" && cfg.Payments.ServiceDomain != "" {
		cfg.Server.PublicBaseURL = "https://" + cfg.Payments.ServiceDomain
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 12 * time.Hour
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "tagpay.audit"
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 120
	}
	if cfg.RateLimit.ActivateRequests <= 0 {
		cfg.RateLimit.ActivateRequests = 10
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Workers.Size <= 0 {
		cfg.Workers.Size = 4
	}
	if cfg.Workers.Queue <= 0 {
		cfg.Workers.Queue = 256
	}
}

// Validate performs the minimal checks needed to start the service.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Payments.ServiceDomain == "" {
		return errors.New("payments.service_domain is required")
	}
	if c.Tokens.MinLength > c.Tokens.MaxLength {
		return fmt.Errorf("tokens.min_length %d exceeds max_length %d", c.Tokens.MinLength, c.Tokens.MaxLength)
	}
	if c.Admin.Email != "" && c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when admin.email is set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
