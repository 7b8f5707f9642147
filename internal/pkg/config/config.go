package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	BodyLimit string `env:"BODY_LIMIT, default=16M"`
	// CORSOrigins is a comma-separated list of client origins allowed to send
	// credentialed requests. Browsers refuse credentials for "*".
	CORSOrigins  []string `env:"CORS_ORIGIN, required"`
	CookieSecure bool     `env:"COOKIE_SECURE, default=true"`
	StoreDriver  string   `env:"STORE_DRIVER, default=mongo"`

	Auth       AuthConfig
	Mongo      MongoConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	S3         S3Config
	Serializer SerializerConfig
}

type AuthConfig struct {
	AccessSecret  string        `env:"ACCESS_TOKEN_SECRET, required"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL,    default=15m"`
	RefreshSecret string        `env:"REFRESH_TOKEN_SECRET, required"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL,   default=240h"`
	BcryptCost    int           `env:"BCRYPT_COST,         default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=videotube"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type S3Config struct {
	Endpoint  string `env:"S3_ENDPOINT, default=localhost:9000"`
	Region    string `env:"S3_REGION,   default=us-east-1"`
	Bucket    string `env:"S3_BUCKET,   default=media"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	PublicURL string `env:"S3_PUBLIC_URL"`
}

type SerializerConfig struct {
	Workers int `env:"SERIALIZER_WORKERS, default=8"`
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMongo:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("CORS_ORIGIN must list explicit origins, not *"))
			break
		}
	}
	if c.Serializer.Workers <= 0 {
		errs = append(errs, errors.New("SERIALIZER_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// LoadWith reads configuration through the given lookuper and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
