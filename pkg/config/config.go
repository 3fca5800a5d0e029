package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every CourierLoop environment variable.
	EnvPrefix = "courierloop"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "COURIERLOOP_APP_ENV"
	EnvPort   = "COURIERLOOP_APP_PORT"
	EnvDBDSN  = "COURIERLOOP_DB_DSN"
	EnvDBHost = "COURIERLOOP_DB_HOST"
	EnvDBUser = "COURIERLOOP_DB_USER"
	EnvDBName = "COURIERLOOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Routing      RoutingConfig
	Conditions   ConditionsConfig
	Broadcast    BroadcastConfig
	RateLimit    RateLimitConfig
	Pricing      PricingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"COURIERLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"COURIERLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURIERLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURIERLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURIERLOOP_DB_DSN"`
	Driver string `envconfig:"COURIERLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURIERLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"COURIERLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURIERLOOP_DB_USER"`
	LegacyPassword string `envconfig:"COURIERLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURIERLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURIERLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURIERLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURIERLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURIERLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURIERLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	WriteTimeout time.Duration `envconfig:"COURIERLOOP_DB_WRITE_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURIERLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COURIERLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"COURIERLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURIERLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURIERLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURIERLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURIERLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURIERLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURIERLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURIERLOOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURIERLOOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURIERLOOP_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// RoutingConfig drives the external directions provider adapter.
type RoutingConfig struct {
	BaseURL        string        `envconfig:"COURIERLOOP_ROUTING_BASE_URL" default:"https://api.mapbox.com"`
	APIKey         string        `envconfig:"COURIERLOOP_ROUTING_API_KEY"`
	Profile        string        `envconfig:"COURIERLOOP_ROUTING_PROFILE" default:"driving-traffic"`
	RequestTimeout time.Duration `envconfig:"COURIERLOOP_ROUTING_REQUEST_TIMEOUT" default:"10s"`
	RefreshTimeout time.Duration `envconfig:"COURIERLOOP_ROUTING_REFRESH_TIMEOUT" default:"30s"`
}

// ConditionsConfig bounds how long and how far a road-condition report applies.
type ConditionsConfig struct {
	TTL      time.Duration `envconfig:"COURIERLOOP_CONDITIONS_TTL" default:"30m"`
	RadiusKm float64       `envconfig:"COURIERLOOP_CONDITIONS_RADIUS_KM" default:"5"`
}

type BroadcastConfig struct {
	SubscriberBuffer int `envconfig:"COURIERLOOP_BROADCAST_SUBSCRIBER_BUFFER" default:"16"`
}

// RateLimitConfig bounds the write-heavy driver endpoints. A zero window or
// limit disables the corresponding policy.
type RateLimitConfig struct {
	RefreshWindow     time.Duration `envconfig:"COURIERLOOP_RATE_LIMIT_REFRESH_WINDOW" default:"1m"`
	RefreshIPLimit    int           `envconfig:"COURIERLOOP_RATE_LIMIT_REFRESH_IP_LIMIT" default:"60"`
	RefreshActorLimit int           `envconfig:"COURIERLOOP_RATE_LIMIT_REFRESH_ACTOR_LIMIT" default:"12"`
	ReportWindow      time.Duration `envconfig:"COURIERLOOP_RATE_LIMIT_REPORT_WINDOW" default:"1m"`
	ReportIPLimit     int           `envconfig:"COURIERLOOP_RATE_LIMIT_REPORT_IP_LIMIT" default:"120"`
	ReportActorLimit  int           `envconfig:"COURIERLOOP_RATE_LIMIT_REPORT_ACTOR_LIMIT" default:"30"`
}

type PricingConfig struct {
	BasePrice  string `envconfig:"COURIERLOOP_PRICING_BASE" default:"50"`
	PerKmPrice string `envconfig:"COURIERLOOP_PRICING_PER_KM" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COURIERLOOP_AUTO_MIGRATE" default:"false"`
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
