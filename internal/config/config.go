// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	BaseURL        string        `yaml:"base_url"` // public origin used in redirects and gateway URLs
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CookieSecure   bool          `yaml:"cookie_secure"`

	// checkout attempts per user per window; needs redis
	CheckoutRateLimit  int           `yaml:"checkout_rate_limit"`
	CheckoutRateWindow time.Duration `yaml:"checkout_rate_window"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DynamoConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // local dynamodb, optional
}

type DatabaseConfig struct {
	Driver string       `yaml:"driver"` // postgres|dynamodb|memory
	URL    string       `yaml:"url"`
	Dynamo DynamoConfig `yaml:"dynamodb"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
}

type NoopPaymentConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

type PaymentConfig struct {
	Provider string            `yaml:"provider"` // stripe|noop
	Stripe   StripeConfig      `yaml:"stripe"`
	Noop     NoopPaymentConfig `yaml:"noop"`
}

type CatalogConfig struct {
	Owner    string        `yaml:"owner"`
	Repo     string        `yaml:"repo"`
	Branch   string        `yaml:"branch"`
	Token    string        `yaml:"token"` // optional GitHub token for rate limits
	APIBase  string        `yaml:"api_base"`
	RawBase  string        `yaml:"raw_base"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// listings are refetched on this interval when redis is enabled
	WarmInterval time.Duration `yaml:"warm_interval"`
}

type AuthConfig struct {
	SessionSecret      string        `yaml:"session_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	GitHubClientID     string        `yaml:"github_client_id"`
	GitHubClientSecret string        `yaml:"github_client_secret"`
}

type MessagingConfig struct {
	AMQPURL        string        `yaml:"amqp_url"` // empty disables publishing
	Exchange       string        `yaml:"exchange"`
	Workers        int           `yaml:"workers"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Auth      AuthConfig      `yaml:"auth"`
	Messaging MessagingConfig `yaml:"messaging"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, applies env overrides and defaults,
// then validates what the selected drivers need.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults(dev)
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Database.URL, "DATABASE_URL")
	override(&c.Payment.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	override(&c.Payment.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	override(&c.Auth.SessionSecret, "SESSION_SECRET")
	override(&c.Auth.GitHubClientID, "GITHUB_CLIENT_ID")
	override(&c.Auth.GitHubClientSecret, "GITHUB_CLIENT_SECRET")
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults(dev bool) {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Server.CheckoutRateLimit <= 0 {
		c.Server.CheckoutRateLimit = 10
	}
	if c.Server.CheckoutRateWindow <= 0 {
		c.Server.CheckoutRateWindow = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Driver == "" {
		if dev {
			c.Database.Driver = "memory"
		} else {
			c.Database.Driver = "postgres"
		}
	}
	if c.Database.Dynamo.Table == "" {
		c.Database.Dynamo.Table = "purchases"
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	if c.Payment.Provider == "" {
		if dev {
			c.Payment.Provider = "noop"
		} else {
			c.Payment.Provider = "stripe"
		}
	}
	if c.Payment.Stripe.Currency == "" {
		c.Payment.Stripe.Currency = "jpy"
	}
	if c.Catalog.Branch == "" {
		c.Catalog.Branch = "main"
	}
	if c.Catalog.APIBase == "" {
		c.Catalog.APIBase = "https://api.github.com"
	}
	if c.Catalog.RawBase == "" {
		c.Catalog.RawBase = "https://raw.githubusercontent.com"
	}
	if c.Catalog.Timeout <= 0 {
		c.Catalog.Timeout = 10 * time.Second
	}
	c.Catalog.CacheTTL = normalizeTTL(c.Catalog.CacheTTL)
	if c.Catalog.WarmInterval <= 0 {
		c.Catalog.WarmInterval = c.Catalog.CacheTTL / 2
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.Messaging.Exchange == "" {
		c.Messaging.Exchange = "purchases"
	}
	if c.Messaging.Workers <= 0 {
		c.Messaging.Workers = 2
	}
	if c.Messaging.PublishTimeout <= 0 {
		c.Messaging.PublishTimeout = 5 * time.Second
	}
}

// Minimal validation
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	switch c.Payment.Provider {
	case "stripe":
		if c.Payment.Stripe.SecretKey == "" || c.Payment.Stripe.WebhookSecret == "" {
			return errors.New("payment.stripe.secret_key and webhook_secret are required")
		}
	case "noop":
		// noop checkout urls point at /dev/pay, which only exists in dev mode
		if !c.Runtime.Dev {
			return errors.New("payment.provider noop requires -dev")
		}
		if c.Payment.Noop.WebhookSecret == "" {
			return errors.New("payment.noop.webhook_secret is required")
		}
	default:
		return fmt.Errorf("payment.provider %q is not supported", c.Payment.Provider)
	}
	if c.Catalog.Owner == "" || c.Catalog.Repo == "" {
		return errors.New("catalog.owner and catalog.repo are required")
	}
	if c.Auth.SessionSecret == "" {
		return errors.New("auth.session_secret is required")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
