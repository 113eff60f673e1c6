package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "AMAIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CatalogSourceMock       = "mock"
	CatalogSourceStorefront = "storefront"

	StorageDriverMemory = "memory"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

const (
	EnvAppEnv               = "AMAIA_APP_ENV"
	EnvPort                 = "AMAIA_APP_PORT"
	EnvCatalogSource        = "AMAIA_CATALOG_SOURCE"
	EnvCatalogStoreDomain   = "AMAIA_CATALOG_STORE_DOMAIN"
	EnvCatalogAccessToken   = "AMAIA_CATALOG_ACCESS_TOKEN"
	EnvCartStorageDriver    = "AMAIA_CART_STORAGE_DRIVER"
	EnvRedisURL             = "AMAIA_REDIS_URL"
	EnvRedisAddr            = "AMAIA_REDIS_ADDR"
	EnvDBDSN                = "AMAIA_DB_DSN"
	EnvDBDriver             = "AMAIA_DB_DRIVER"
	EnvSessionSecret        = "AMAIA_SESSION_SECRET"
	EnvCheckoutDelay        = "AMAIA_CHECKOUT_PAYMENT_DELAY"
	EnvCheckoutSimulateErr  = "AMAIA_CHECKOUT_SIMULATE_FAILURE"
	EnvCheckoutFreeShipping = "AMAIA_CHECKOUT_FREE_SHIPPING_THRESHOLD"
	EnvCheckoutFlatShipping = "AMAIA_CHECKOUT_FLAT_SHIPPING"
)

type Config struct {
	App          AppConfig
	Catalog      CatalogConfig
	Cart         CartConfig
	Redis        RedisConfig
	DB           DBConfig
	Session      SessionConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AMAIA_APP_ENV" required:"true"`
	Port         string `envconfig:"AMAIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AMAIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AMAIA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"AMAIA_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"AMAIA_APP_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CatalogConfig selects and configures the product data source.
type CatalogConfig struct {
	Source      string        `envconfig:"AMAIA_CATALOG_SOURCE" default:"mock"`
	StoreDomain string        `envconfig:"AMAIA_CATALOG_STORE_DOMAIN"`
	APIVersion  string        `envconfig:"AMAIA_CATALOG_API_VERSION" default:"2025-07"`
	AccessToken string        `envconfig:"AMAIA_CATALOG_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"AMAIA_CATALOG_TIMEOUT" default:"10s"`
	MockLatency time.Duration `envconfig:"AMAIA_CATALOG_MOCK_LATENCY" default:"0s"`
}

type CartConfig struct {
	StorageDriver string        `envconfig:"AMAIA_CART_STORAGE_DRIVER" default:"memory"`
	StorageKey    string        `envconfig:"AMAIA_CART_STORAGE_KEY" default:"amaia-cart"`
	TTL           time.Duration `envconfig:"AMAIA_CART_TTL" default:"720h"`

	// SQL snapshots older than SnapshotRetention are purged every CleanupInterval.
	SnapshotRetention time.Duration `envconfig:"AMAIA_CART_SNAPSHOT_RETENTION" default:"720h"`
	CleanupInterval   time.Duration `envconfig:"AMAIA_CART_CLEANUP_INTERVAL" default:"1h"`

	// In-memory sessions unused for SessionIdle are evicted every SessionSweep.
	SessionIdle  time.Duration `envconfig:"AMAIA_CART_SESSION_IDLE" default:"30m"`
	SessionSweep time.Duration `envconfig:"AMAIA_CART_SESSION_SWEEP" default:"5m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AMAIA_REDIS_URL"`
	Address      string        `envconfig:"AMAIA_REDIS_ADDR"`
	Password     string        `envconfig:"AMAIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"AMAIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AMAIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AMAIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AMAIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AMAIA_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"AMAIA_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type DBConfig struct {
	DSN    string `envconfig:"AMAIA_DB_DSN" default:"file:amaia.db?cache=shared"`
	Driver string `envconfig:"AMAIA_DB_DRIVER" default:"sqlite"`

	MaxOpenConns    int           `envconfig:"AMAIA_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"AMAIA_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"AMAIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AMAIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"AMAIA_DB_SLOW_QUERY" default:"200ms"`
}

// SessionConfig signs the tokens that scope a cart to one client.
type SessionConfig struct {
	Secret     string `envconfig:"AMAIA_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"AMAIA_SESSION_ISSUER" default:"amaia-storefront"`
	TTLMinutes int    `envconfig:"AMAIA_SESSION_TTL_MINUTES" default:"43200"`
}

// TTL returns the session token lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type CheckoutConfig struct {
	PaymentDelay          time.Duration `envconfig:"AMAIA_CHECKOUT_PAYMENT_DELAY" default:"2s"`
	SimulateFailure       bool          `envconfig:"AMAIA_CHECKOUT_SIMULATE_FAILURE" default:"false"`
	FreeShippingThreshold string        `envconfig:"AMAIA_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"50.00"`
	FlatShipping          string        `envconfig:"AMAIA_CHECKOUT_FLAT_SHIPPING" default:"5.99"`
	RateLimitMax          int64         `envconfig:"AMAIA_CHECKOUT_RATE_LIMIT_MAX" default:"10"`
	RateLimitWindow       time.Duration `envconfig:"AMAIA_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AMAIA_AUTO_MIGRATE" default:"false"`
}

func (c *Config) validate() error {
	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	switch c.Catalog.Source {
	case CatalogSourceMock:
	case CatalogSourceStorefront:
		missing := []string{}
		if c.Catalog.StoreDomain == "" {
			missing = append(missing, EnvCatalogStoreDomain)
		}
		if c.Catalog.AccessToken == "" {
			missing = append(missing, EnvCatalogAccessToken)
		}
		if len(missing) > 0 {
			return fmt.Errorf("storefront catalog requires %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	c.Cart.StorageDriver = strings.ToLower(strings.TrimSpace(c.Cart.StorageDriver))
	switch c.Cart.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("redis cart storage requires %s or %s", EnvRedisURL, EnvRedisAddr)
		}
	case StorageDriverSQL:
		if c.DB.DSN == "" {
			return fmt.Errorf("sql cart storage requires %s", EnvDBDSN)
		}
		if c.DB.Driver != DBDriverSQLite && c.DB.Driver != DBDriverPostgres {
			return fmt.Errorf("unsupported %s %q", EnvDBDriver, c.DB.Driver)
		}
	default:
		return fmt.Errorf("unknown cart storage driver %q", c.Cart.StorageDriver)
	}

	if c.Checkout.PaymentDelay < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckoutDelay)
	}
	for env, amount := range map[string]string{
		EnvCheckoutFreeShipping: c.Checkout.FreeShippingThreshold,
		EnvCheckoutFlatShipping: c.Checkout.FlatShipping,
	} {
		d, err := decimal.NewFromString(amount)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%s must be a non-negative amount, got %q", env, amount)
		}
	}
	return nil
}
