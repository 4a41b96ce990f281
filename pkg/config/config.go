package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	Store        StoreConfig
	DB           DBConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Scraper      ScraperConfig
	Fetch        FetchConfig
	LLM          LLMConfig
	Gemini       GeminiConfig
	OpenAI       OpenAIConfig
	Harvest      HarvestConfig
	Cache        CacheConfig
	Cron         CronConfig
	API          APIConfig
	JWT          JWTConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.IsSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	} else if cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvStoreDriver, StoreDriverMongo)
	}
	if err := cfg.Scraper.validate(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && cfg.JWT.Enabled() && len(cfg.JWT.Secret) < MinProdJWTSecretLen {
		return nil, fmt.Errorf("%s must be at least %d characters in %s", EnvJWTSecret, MinProdJWTSecretLen, AppEnvProd)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AITOOLS_APP_ENV" required:"true"`
	Port         string `envconfig:"AITOOLS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AITOOLS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AITOOLS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AITOOLS_SERVICE_KIND" default:"scraper"`
}

type StoreConfig struct {
	Driver string `envconfig:"AITOOLS_STORE_DRIVER" default:"postgres"`
}

// IsSQL reports whether the relational gateway is selected.
func (s StoreConfig) IsSQL() bool {
	return !strings.EqualFold(strings.TrimSpace(s.Driver), StoreDriverMongo)
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StoreDriverPostgres, StoreDriverMongo:
		return nil
	}
	return fmt.Errorf("%s must be one of %s|%s, got %q", EnvStoreDriver, StoreDriverPostgres, StoreDriverMongo, s.Driver)
}

type DBConfig struct {
	DSN    string `envconfig:"AITOOLS_DB_DSN"`
	Driver string `envconfig:"AITOOLS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AITOOLS_DB_HOST"`
	LegacyPort     int    `envconfig:"AITOOLS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AITOOLS_DB_USER"`
	LegacyPassword string `envconfig:"AITOOLS_DB_PASSWORD"`
	LegacyName     string `envconfig:"AITOOLS_DB_NAME"`
	LegacySSLMode  string `envconfig:"AITOOLS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AITOOLS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"AITOOLS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"AITOOLS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AITOOLS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"AITOOLS_DB_QUERY_TIMEOUT" default:"10s"`
}

type MongoConfig struct {
	URI            string        `envconfig:"AITOOLS_MONGO_URI"`
	Database       string        `envconfig:"AITOOLS_MONGO_DATABASE" default:"seohub"`
	ConnectTimeout time.Duration `envconfig:"AITOOLS_MONGO_CONNECT_TIMEOUT" default:"10s"`
	QueryTimeout   time.Duration `envconfig:"AITOOLS_MONGO_QUERY_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AITOOLS_REDIS_URL"`
	Address      string        `envconfig:"AITOOLS_REDIS_ADDR"`
	Password     string        `envconfig:"AITOOLS_REDIS_PASSWORD"`
	DB           int           `envconfig:"AITOOLS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AITOOLS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AITOOLS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AITOOLS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AITOOLS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AITOOLS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AITOOLS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AITOOLS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AITOOLS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AITOOLS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AITOOLS_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"AITOOLS_AUTO_MIGRATE" default:"false"`
	ScheduledScrape bool `envconfig:"AITOOLS_FEATURE_SCHEDULED_SCRAPE" default:"false"`
}

type ScraperConfig struct {
	SourceURL     string        `envconfig:"AITOOLS_SCRAPER_SOURCE_URL" default:"https://theresanaiforthat.com/"`
	Categories    []string      `envconfig:"AITOOLS_SCRAPER_CATEGORIES" default:"seo,marketing,social media,management,sales,productivity"`
	DryRun        bool          `envconfig:"AITOOLS_SCRAPER_DRY_RUN" default:"true"`
	DefaultStatus string        `envconfig:"AITOOLS_SCRAPER_DEFAULT_STATUS" default:"approved"`
	DelayMin      time.Duration `envconfig:"AITOOLS_SCRAPER_DELAY_MIN" default:"3s"`
	DelayMax      time.Duration `envconfig:"AITOOLS_SCRAPER_DELAY_MAX" default:"7s"`
	RunLogPath    string        `envconfig:"AITOOLS_RUNLOG_PATH" default:"scraper_log.txt"`
}

func (s ScraperConfig) validate() error {
	if s.DelayMax < s.DelayMin {
		return fmt.Errorf("%s must not be lower than %s", EnvScraperDelayMax, EnvScraperDelayMin)
	}
	return nil
}

type FetchConfig struct {
	UserAgent string        `envconfig:"AITOOLS_FETCH_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
	Timeout   time.Duration `envconfig:"AITOOLS_FETCH_TIMEOUT" default:"15s"`
	MaxBytes  int64         `envconfig:"AITOOLS_FETCH_MAX_BYTES" default:"5242880"`
	Extractor string        `envconfig:"AITOOLS_FETCH_EXTRACTOR" default:"strip"`
}

type LLMConfig struct {
	Provider   string        `envconfig:"AITOOLS_LLM_PROVIDER" default:"gemini"`
	Model      string        `envconfig:"AITOOLS_LLM_MODEL"`
	Timeout    time.Duration `envconfig:"AITOOLS_LLM_TIMEOUT" default:"60s"`
	MaxRetries int           `envconfig:"AITOOLS_LLM_MAX_RETRIES" default:"2"`
}

type GeminiConfig struct {
	APIKey  string `envconfig:"AITOOLS_GEMINI_API_KEY"`
	BaseURL string `envconfig:"AITOOLS_GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/models"`
}

type OpenAIConfig struct {
	APIKey  string `envconfig:"AITOOLS_OPENAI_API_KEY"`
	BaseURL string `envconfig:"AITOOLS_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
}

type HarvestConfig struct {
	Mode         string        `envconfig:"AITOOLS_HARVEST_MODE" default:"browser"`
	ProfilesFile string        `envconfig:"AITOOLS_HARVEST_PROFILES_FILE"`
	Profile      string        `envconfig:"AITOOLS_HARVEST_PROFILE" default:"theresanaiforthat"`
	Headless     bool          `envconfig:"AITOOLS_HARVEST_HEADLESS" default:"false"`
	ChromePath   string        `envconfig:"AITOOLS_HARVEST_CHROME_PATH"`
	StepTimeout  time.Duration `envconfig:"AITOOLS_HARVEST_STEP_TIMEOUT" default:"20s"`
}

type CacheConfig struct {
	TTL       time.Duration `envconfig:"AITOOLS_CACHE_TTL" default:"1h"`
	KeyPrefix string        `envconfig:"AITOOLS_CACHE_KEY_PREFIX"`
}

type APIConfig struct {
	RateLimitWindow time.Duration `envconfig:"AITOOLS_API_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP  int           `envconfig:"AITOOLS_API_RATE_LIMIT_PER_IP" default:"120"`
	CORSOrigins     []string      `envconfig:"AITOOLS_API_CORS_ORIGINS" default:"*"`

	LoginRateLimitWindow time.Duration `envconfig:"AITOOLS_API_LOGIN_RATE_LIMIT_WINDOW" default:"15m"`
	LoginRateLimitPerIP  int           `envconfig:"AITOOLS_API_LOGIN_RATE_LIMIT_PER_IP" default:"10"`
}

// JWTConfig signs the admin access tokens. The admin routes are not mounted
// while Secret is empty.
type JWTConfig struct {
	Secret            string `envconfig:"AITOOLS_JWT_SECRET"`
	Issuer            string `envconfig:"AITOOLS_JWT_ISSUER" default:"aitools-api"`
	ExpirationMinutes int    `envconfig:"AITOOLS_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) Enabled() bool {
	return j.Secret != ""
}

type CronConfig struct {
	Schedule string        `envconfig:"AITOOLS_CRON_SCHEDULE" default:"@every 24h"`
	LockTTL  time.Duration `envconfig:"AITOOLS_CRON_LOCK_TTL" default:"25h"`
}

func (db *DBConfig) ensureDSN() error {
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
