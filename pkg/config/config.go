package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "KHAKHRA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KHAKHRA_DB_DSN"
	EnvDBHost = "KHAKHRA_DB_HOST"
	EnvDBUser = "KHAKHRA_DB_USER"
	EnvDBName = "KHAKHRA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Store        StoreConfig
	Checkout     CheckoutConfig
	Payment      PaymentConfig
	SMTP         SMTPConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KHAKHRA_APP_ENV" required:"true"`
	Port         string `envconfig:"KHAKHRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KHAKHRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KHAKHRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KHAKHRA_DB_DSN"`
	Driver string `envconfig:"KHAKHRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KHAKHRA_DB_HOST"`
	LegacyPort     int    `envconfig:"KHAKHRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KHAKHRA_DB_USER"`
	LegacyPassword string `envconfig:"KHAKHRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"KHAKHRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"KHAKHRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KHAKHRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KHAKHRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KHAKHRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KHAKHRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KHAKHRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KHAKHRA_REDIS_ADDR"`
	Password     string        `envconfig:"KHAKHRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KHAKHRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KHAKHRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KHAKHRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KHAKHRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KHAKHRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KHAKHRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KHAKHRA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KHAKHRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KHAKHRA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"KHAKHRA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// PasswordConfig tunes the Argon2id hashing parameters.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KHAKHRA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KHAKHRA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KHAKHRA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KHAKHRA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KHAKHRA_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KHAKHRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KHAKHRA_AUTO_MIGRATE" default:"false"`
}

// StoreConfig carries the storefront business knobs.
type StoreConfig struct {
	LocalDeliveryState       string `envconfig:"KHAKHRA_LOCAL_DELIVERY_STATE" default:"gujarat"`
	LocalDeliveryChargePaise int64  `envconfig:"KHAKHRA_LOCAL_DELIVERY_CHARGE_PAISE" default:"6000"`
	OtherDeliveryChargePaise int64  `envconfig:"KHAKHRA_OTHER_DELIVERY_CHARGE_PAISE" default:"10000"`
	HamperMinPackets         int    `envconfig:"KHAKHRA_HAMPER_MIN_PACKETS" default:"10"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"KHAKHRA_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type PaymentConfig struct {
	Provider string `envconfig:"KHAKHRA_PAYMENT_PROVIDER" default:"cashfree"`

	CashfreeAppID     string        `envconfig:"KHAKHRA_CASHFREE_APP_ID"`
	CashfreeSecret    string        `envconfig:"KHAKHRA_CASHFREE_SECRET"`
	CashfreeEnv       string        `envconfig:"KHAKHRA_CASHFREE_ENV" default:"sandbox"`
	CashfreeTimeout   time.Duration `envconfig:"KHAKHRA_CASHFREE_TIMEOUT" default:"15s"`
	CashfreeReturnURL string        `envconfig:"KHAKHRA_CASHFREE_RETURN_URL"`

	SquareAccessToken string `envconfig:"KHAKHRA_SQUARE_ACCESS_TOKEN"`
	SquareLocationID  string `envconfig:"KHAKHRA_SQUARE_LOCATION_ID"`
	SquareEnv         string `envconfig:"KHAKHRA_SQUARE_ENV" default:"sandbox"`
}

type SMTPConfig struct {
	Host     string `envconfig:"KHAKHRA_SMTP_HOST"`
	Port     int    `envconfig:"KHAKHRA_SMTP_PORT" default:"587"`
	Username string `envconfig:"KHAKHRA_SMTP_USERNAME"`
	Password string `envconfig:"KHAKHRA_SMTP_PASSWORD"`
	From     string `envconfig:"KHAKHRA_SMTP_FROM"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"KHAKHRA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"KHAKHRA_PUBSUB_ORDERS_TOPIC" default:"khakhra-order-events"`
	OrdersSubscription string `envconfig:"KHAKHRA_PUBSUB_ORDERS_SUBSCRIPTION" default:"khakhra-order-events-email"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KHAKHRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KHAKHRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KHAKHRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// Environment returns the normalized Cashfree environment (sandbox/production).
func (p PaymentConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.CashfreeEnv))
	if env == "" {
		return "sandbox"
	}
	return env
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
