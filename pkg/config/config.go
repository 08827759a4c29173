package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is empty because every field carries its fully qualified
// EVENTSTOCK_* variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"EVENTSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"EVENTSTOCK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EVENTSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EVENTSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EVENTSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EVENTSTOCK_DB_DSN"`
	Driver string `envconfig:"EVENTSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EVENTSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"EVENTSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EVENTSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"EVENTSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"EVENTSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"EVENTSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EVENTSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EVENTSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EVENTSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EVENTSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles the DSN from the legacy discrete variables when no
// EVENTSTOCK_DB_DSN was provided.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either EVENTSTOCK_DB_DSN or EVENTSTOCK_DB_HOST/USER/NAME must be set")
	}
	userInfo := url.User(d.LegacyUser)
	if d.LegacyPassword != "" {
		userInfo = url.UserPassword(d.LegacyUser, d.LegacyPassword)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: "sslmode=" + d.LegacySSLMode,
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"EVENTSTOCK_REDIS_URL"`
	Address      string        `envconfig:"EVENTSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"EVENTSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"EVENTSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EVENTSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EVENTSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EVENTSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EVENTSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EVENTSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EVENTSTOCK_AUTO_MIGRATE" default:"false"`
}

// SweepConfig tunes the maintenance-worker cadence. The sweep only flags
// instances due for maintenance; it never participates in allocation.
type SweepConfig struct {
	Interval        time.Duration `envconfig:"EVENTSTOCK_SWEEP_INTERVAL" default:"24h"`
	LockTTL         time.Duration `envconfig:"EVENTSTOCK_SWEEP_LOCK_TTL" default:"1h"`
	MaintenanceLead time.Duration `envconfig:"EVENTSTOCK_SWEEP_MAINTENANCE_LEAD" default:"168h"`
}
