package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	RecordStore RecordStoreConfig
	Cart        CartConfig
	Checkout    CheckoutConfig
	Catalog     CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.RecordStore.validate(); err != nil {
		return nil, err
	}
	if cfg.RecordStore.UsesDB() {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	UseSQLite   bool   `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`
	AutoMigrate bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Dialect reports the goose/gorm dialect name for the configured database.
func (db DBConfig) Dialect() string {
	if db.UseSQLite {
		return DriverSQLite
	}
	if db.Driver == "" {
		return DriverPostgres
	}
	return strings.ToLower(db.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type RecordStoreConfig struct {
	Backend     string        `envconfig:"STOREFRONT_RECORDSTORE_BACKEND" default:"http"`
	BaseURL     string        `envconfig:"STOREFRONT_RECORDSTORE_URL"`
	APIKey      string        `envconfig:"STOREFRONT_RECORDSTORE_API_KEY"`
	Timeout     time.Duration `envconfig:"STOREFRONT_RECORDSTORE_TIMEOUT" default:"10s"`
	MaxRetries  uint64        `envconfig:"STOREFRONT_RECORDSTORE_MAX_RETRIES" default:"3"`
	BackoffBase time.Duration `envconfig:"STOREFRONT_RECORDSTORE_BACKOFF_BASE" default:"100ms"`
}

func (r RecordStoreConfig) UsesDB() bool {
	return strings.EqualFold(r.Backend, RecordStoreBackendDB)
}

func (r RecordStoreConfig) validate() error {
	switch strings.ToLower(r.Backend) {
	case RecordStoreBackendDB:
		return nil
	case RecordStoreBackendHTTP:
		if strings.TrimSpace(r.BaseURL) == "" {
			return fmt.Errorf("%s is required for the http record store", EnvRecordStoreURL)
		}
		if _, err := url.Parse(r.BaseURL); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRecordStoreURL, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown record store backend %q", r.Backend)
	}
}

type CartConfig struct {
	Namespace string        `envconfig:"STOREFRONT_CART_NAMESPACE" default:"marketplace-cart"`
	TTL       time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
}

type CheckoutConfig struct {
	FreeShippingThreshold string `envconfig:"STOREFRONT_CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"50"`
	ShippingFee           string `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"9.99"`
	TaxRate               string `envconfig:"STOREFRONT_CHECKOUT_TAX_RATE" default:"0.08"`
}

type CatalogConfig struct {
	Language      string `envconfig:"STOREFRONT_CATALOG_LANGUAGE" default:"en"`
	FeaturedLimit int    `envconfig:"STOREFRONT_CATALOG_FEATURED_LIMIT" default:"8"`
}

// EnsureDSN fills DSN from the SQLite path or the legacy connection parts.
func (db *DBConfig) EnsureDSN() error {
	if db.UseSQLite {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
