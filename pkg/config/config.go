package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Chain         ChainConfig
	Signer        SignerConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Signer.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadForOutbox reads the sections the outbox relay needs; it does not
// require signer or chain settings.
func LoadForOutbox() (*Config, error) {
	var cfg Config
	for _, section := range []any{&cfg.App, &cfg.Service, &cfg.DB, &cfg.FeatureFlags, &cfg.GCP, &cfg.PubSub, &cfg.Outbox} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadForCron reads the sections the maintenance worker needs.
func LoadForCron() (*Config, error) {
	var cfg Config
	for _, section := range []any{&cfg.App, &cfg.Service, &cfg.DB, &cfg.Redis, &cfg.FeatureFlags, &cfg.Outbox, &cfg.Cron} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadForMigrations reads only the sections the migration CLI needs.
func LoadForMigrations() (*Config, error) {
	var cfg Config
	for _, section := range []any{&cfg.App, &cfg.DB} {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CRISPYSPIN_APP_ENV" required:"true"`
	Port         string   `envconfig:"CRISPYSPIN_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CRISPYSPIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CRISPYSPIN_LOG_WARN_STACK" default:"false"`
	LogFile      string   `envconfig:"CRISPYSPIN_LOG_FILE"`
	LogFormat    string   `envconfig:"CRISPYSPIN_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"CRISPYSPIN_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRISPYSPIN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRISPYSPIN_DB_DSN"`
	Driver string `envconfig:"CRISPYSPIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRISPYSPIN_DB_HOST"`
	LegacyPort     int    `envconfig:"CRISPYSPIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRISPYSPIN_DB_USER"`
	LegacyPassword string `envconfig:"CRISPYSPIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRISPYSPIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRISPYSPIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRISPYSPIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRISPYSPIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRISPYSPIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRISPYSPIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"CRISPYSPIN_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRISPYSPIN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRISPYSPIN_REDIS_ADDR"`
	Password     string        `envconfig:"CRISPYSPIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRISPYSPIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRISPYSPIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRISPYSPIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRISPYSPIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRISPYSPIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRISPYSPIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CRISPYSPIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CRISPYSPIN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CRISPYSPIN_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AuthConfig controls the wallet sign-in challenge.
type AuthConfig struct {
	Domain       string        `envconfig:"CRISPYSPIN_AUTH_DOMAIN" default:"localhost:3000"`
	URI          string        `envconfig:"CRISPYSPIN_AUTH_URI" default:"http://localhost:3000"`
	Statement    string        `envconfig:"CRISPYSPIN_AUTH_STATEMENT" default:"Sign in to CrispySpin"`
	ChallengeTTL time.Duration `envconfig:"CRISPYSPIN_AUTH_CHALLENGE_TTL" default:"5m"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginWalletLimit     int           `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_LOGIN_WALLET_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	ChallengeWindow      time.Duration `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_CHALLENGE_WINDOW" default:"1m"`
	ChallengeIPLimit     int           `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_CHALLENGE_IP_LIMIT" default:"30"`
	ChallengeWalletLimit int           `envconfig:"CRISPYSPIN_AUTH_RATE_LIMIT_CHALLENGE_WALLET_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CRISPYSPIN_AUTO_MIGRATE" default:"false"`
}

// ChainConfig describes the JSON-RPC endpoint used to verify payments.
type ChainConfig struct {
	RPCURL            string        `envconfig:"CRISPYSPIN_CHAIN_RPC_URL" required:"true"`
	ChainID           int64         `envconfig:"CRISPYSPIN_CHAIN_ID" default:"8453"`
	VerifyTimeout     time.Duration `envconfig:"CRISPYSPIN_CHAIN_VERIFY_TIMEOUT" default:"10s"`
	RPCRatePerSecond  float64       `envconfig:"CRISPYSPIN_CHAIN_RPC_RATE_PER_SECOND" default:"10"`
	RPCBurst          int           `envconfig:"CRISPYSPIN_CHAIN_RPC_BURST" default:"20"`
	TreasuryAddress   string        `envconfig:"CRISPYSPIN_CHAIN_TREASURY_ADDRESS"`
	RequirePayerMatch bool          `envconfig:"CRISPYSPIN_CHAIN_REQUIRE_PAYER_MATCH" default:"false"`
}

// SignerConfig holds the attestation key and the contracts it signs for.
type SignerConfig struct {
	PrivateKey       string        `envconfig:"CRISPYSPIN_SIGNER_PRIVATE_KEY" required:"true"`
	MintContract     string        `envconfig:"CRISPYSPIN_SIGNER_MINT_CONTRACT" required:"true"`
	ClaimVault       string        `envconfig:"CRISPYSPIN_SIGNER_CLAIM_VAULT" required:"true"`
	PartnerToken     string        `envconfig:"CRISPYSPIN_SIGNER_PARTNER_TOKEN" required:"true"`
	PartnerAmountWei string        `envconfig:"CRISPYSPIN_SIGNER_PARTNER_AMOUNT_WEI" default:"1000000000000000000"`
	PartnerTokenID   uint64        `envconfig:"CRISPYSPIN_SIGNER_PARTNER_TOKEN_ID" default:"0"`
	ClaimTTL         time.Duration `envconfig:"CRISPYSPIN_SIGNER_CLAIM_TTL" default:"24h"`
}

// PartnerAmount parses the configured partner amount.
func (s SignerConfig) PartnerAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s.PartnerAmountWei))
}

func (s SignerConfig) validate() error {
	amount, err := s.PartnerAmount()
	if err != nil {
		return fmt.Errorf("%s: %w", EnvSignerPartnerAmount, err)
	}
	if amount.IsNegative() || !amount.IsInteger() {
		return fmt.Errorf("%s must be a non-negative integer", EnvSignerPartnerAmount)
	}
	if s.ClaimTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSignerClaimTTL)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRISPYSPIN_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CRISPYSPIN_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRISPYSPIN_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic  string `envconfig:"CRISPYSPIN_PUBSUB_DOMAIN_TOPIC" default:"crispyspin-domain-events"`
	// EmulatorHost points the client at a local Pub/Sub emulator.
	EmulatorHost string `envconfig:"CRISPYSPIN_PUBSUB_EMULATOR_HOST"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"CRISPYSPIN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"CRISPYSPIN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"CRISPYSPIN_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"CRISPYSPIN_OUTBOX_METRICS_ADDR"`
}

// CronConfig sets the maintenance worker cadence.
type CronConfig struct {
	Tick            time.Duration `envconfig:"CRISPYSPIN_CRON_TICK" default:"1m"`
	OutboxRetention time.Duration `envconfig:"CRISPYSPIN_CRON_OUTBOX_RETENTION" default:"720h"`
	RetentionEvery  time.Duration `envconfig:"CRISPYSPIN_CRON_RETENTION_EVERY" default:"24h"`
	DeadLetterEvery time.Duration `envconfig:"CRISPYSPIN_CRON_DEAD_LETTER_EVERY" default:"5m"`
	MetricsAddr     string        `envconfig:"CRISPYSPIN_CRON_METRICS_ADDR"`
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
