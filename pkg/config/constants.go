package config

// EnvPrefix is handed to envconfig; every field carries its full name in the tag.
const EnvPrefix = "AITOOLS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const MinProdJWTSecretLen = 32

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

const (
	EnvAppEnv          = "AITOOLS_APP_ENV"
	EnvPort            = "AITOOLS_APP_PORT"
	EnvStoreDriver     = "AITOOLS_STORE_DRIVER"
	EnvDBDSN           = "AITOOLS_DB_DSN"
	EnvDBHost          = "AITOOLS_DB_HOST"
	EnvDBUser          = "AITOOLS_DB_USER"
	EnvDBName          = "AITOOLS_DB_NAME"
	EnvMongoURI        = "AITOOLS_MONGO_URI"
	EnvRedisURL        = "AITOOLS_REDIS_URL"
	EnvScraperDryRun   = "AITOOLS_SCRAPER_DRY_RUN"
	EnvScraperCats     = "AITOOLS_SCRAPER_CATEGORIES"
	EnvScraperDelayMin = "AITOOLS_SCRAPER_DELAY_MIN"
	EnvScraperDelayMax = "AITOOLS_SCRAPER_DELAY_MAX"
	EnvGeminiAPIKey    = "AITOOLS_GEMINI_API_KEY"
	EnvLLMProvider     = "AITOOLS_LLM_PROVIDER"
	EnvJWTSecret       = "AITOOLS_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
