package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DevSecret signs tokens when JWT_SECRET is unset outside production.
// Never rely on it in a deployed environment.
const DevSecret = "dev-insecure-secret"

const EnvProduction = "production"

var ErrMissingSecret = errors.New("config: JWT_SECRET is required in production")

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// UserStore selects the user repository: "mongo" or "memory".
	UserStore string `env:"USER_STORE, default=mongo"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=24h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	BcryptCost      int           `env:"BCRYPT_COST,       default=12"`
	AuditWorkers    int           `env:"AUDIT_WORKERS,     default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tenant_auth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether ENV names the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Secret returns the token signing key. The boolean is true when DevSecret
// was substituted for a missing JWT_SECRET.
func (c *Config) Secret() ([]byte, bool, error) {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret), false, nil
	}
	if c.IsProduction() {
		return nil, false, ErrMissingSecret
	}
	return []byte(DevSecret), true, nil
}
