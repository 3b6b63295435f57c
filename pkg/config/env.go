package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it is informational.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	RecordStoreBackendHTTP = "http"
	RecordStoreBackendDB   = "db"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBHost         = "STOREFRONT_DB_HOST"
	EnvDBUser         = "STOREFRONT_DB_USER"
	EnvDBName         = "STOREFRONT_DB_NAME"
	EnvUseSQLite      = "STOREFRONT_USE_SQLITE"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvRecordStore    = "STOREFRONT_RECORDSTORE_BACKEND"
	EnvRecordStoreURL = "STOREFRONT_RECORDSTORE_URL"
	EnvCartNamespace  = "STOREFRONT_CART_NAMESPACE"
	EnvTaxRate        = "STOREFRONT_CHECKOUT_TAX_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
