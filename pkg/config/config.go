package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "AKIYA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App       AppConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	Stripe    StripeConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AKIYA_APP_ENV" default:"development"`
	Port         string `envconfig:"AKIYA_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"AKIYA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AKIYA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type MongoConfig struct {
	Host       string `envconfig:"AKIYA_DB_HOST" required:"true"`
	Port       int    `envconfig:"AKIYA_DB_PORT" default:"27017"`
	User       string `envconfig:"AKIYA_DB_USER"`
	Password   string `envconfig:"AKIYA_DB_PASSWORD"`
	AuthSource string `envconfig:"AKIYA_DB_AUTH_SOURCE" default:"admin"`

	// CrawlerDB holds the externally sourced listing collections; UserDB holds
	// users, subscriptions and favorites.
	CrawlerDB string `envconfig:"AKIYA_CRAWLER_DB" required:"true"`
	UserDB    string `envconfig:"AKIYA_USER_DB" required:"true"`

	ConnectTimeout time.Duration `envconfig:"AKIYA_DB_CONNECT_TIMEOUT" default:"10s"`
}

// URI assembles the connection string, escaping credentials and pinning the
// auth source so root users authenticate against the admin database.
func (m MongoConfig) URI() string {
	host := fmt.Sprintf("%s:%d", m.Host, m.Port)
	if m.User == "" {
		return fmt.Sprintf("mongodb://%s/?authSource=%s", host, m.AuthSource)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s/?authSource=%s",
		url.QueryEscape(m.User), url.QueryEscape(m.Password), host, m.AuthSource)
}

type JWTConfig struct {
	Secret            string `envconfig:"AKIYA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AKIYA_JWT_ISSUER" default:"akiya-api"`
	ExpirationMinutes int    `envconfig:"AKIYA_JWT_EXPIRATION_MINUTES" default:"30"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StripeConfig struct {
	SecretKey      string `envconfig:"AKIYA_STRIPE_SECRET_KEY"`
	PublishableKey string `envconfig:"AKIYA_STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret  string `envconfig:"AKIYA_STRIPE_WEBHOOK_SECRET"`
	ProductID      string `envconfig:"AKIYA_STRIPE_PRODUCT_ID"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AKIYA_REDIS_URL"`
	DialTimeout  time.Duration `envconfig:"AKIYA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AKIYA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AKIYA_REDIS_WRITE_TIMEOUT" default:"5s"`

	WebhookIdempotencyTTL time.Duration `envconfig:"AKIYA_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// Enabled reports whether a Redis endpoint was configured at all; the service
// runs without one, dropping webhook replay protection.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"AKIYA_RATE_LIMIT_WINDOW" default:"1m"`
	Max    int           `envconfig:"AKIYA_RATE_LIMIT_MAX" default:"10"`
}

type CORSConfig struct {
	// AllowedOrigins applies outside development; development allows any origin.
	AllowedOrigins []string `envconfig:"AKIYA_CORS_ALLOWED_ORIGINS" default:"https://akiyahelper.homes,https://www.akiyahelper.homes"`
}
