package config

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "nils/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	DefaultSlowQueryThreshold = 200 * time.Millisecond

	BackendBundle   = "bundle"
	BackendDatabase = "database"
	BackendStatic   = "static"
)

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	LocalizationBackend         string `envDefault:"bundle"   env:"NILS_BACKEND"          yaml:"localization_backend"`
	LocalizationBaseFileName    string `envDefault:"messages" env:"NILS_BASE_FILE_NAME"   yaml:"localization_base_file_name"`
	LocalizationOwner           string `envDefault:"localization" env:"NILS_OWNER"            yaml:"localization_owner"`
	LocalizationDefaultLanguage string `envDefault:"en"       env:"NILS_DEFAULT_LANGUAGE" yaml:"localization_default_language"`

	DatabaseDriver                       string `envDefault:"postgres" env:"NILS_DATABASE_DRIVER"                         yaml:"database_driver"`
	DatabaseURL                          string `env:"NILS_DATABASE_URL"                                                     yaml:"database_url"`
	DatabaseTable                        string `envDefault:"translations" env:"NILS_DATABASE_TABLE"                     yaml:"database_table"`
	DatabasePreferSimpleProtocol         bool   `envDefault:"true" env:"PREFER_SIMPLE_PROTOCOL"                            yaml:"prefer_simple_protocol"`
	DatabaseMaxIdleConnections           int    `envDefault:"2"    env:"DATABASE_MAX_IDLE_CONNECTIONS"                     yaml:"database_max_idle_connections"`
	DatabaseMaxOpenConnections           int    `envDefault:"5"    env:"DATABASE_MAX_OPEN_CONNECTIONS"                     yaml:"database_max_open_connections"`
	DatabaseMaxConnectionLifeTimeSeconds int    `envDefault:"300"  env:"DATABASE_MAX_CONNECTION_LIFE_TIME_IN_SECONDS"      yaml:"database_max_connection_life_time_seconds"`

	DatabaseTraceQueries          bool   `envDefault:"false" env:"DATABASE_LOG_QUERIES"          yaml:"database_log_queries"`
	DatabaseSlowQueryLogThreshold string `envDefault:"200ms" env:"DATABASE_SLOW_QUERY_THRESHOLD" yaml:"database_slow_query_threshold"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

// ConfigurationLocalization describes where localized resources come from.
type ConfigurationLocalization interface {
	Backend() string
	BaseFileName() string
	Owner() string
	DefaultLanguage() string
}

var _ ConfigurationLocalization = new(ConfigurationDefault)

// Backend is one of BackendBundle, BackendDatabase or BackendStatic.
func (c *ConfigurationDefault) Backend() string {
	backend := strings.TrimSpace(strings.ToLower(c.LocalizationBackend))
	switch backend {
	case BackendDatabase, BackendStatic:
		return backend
	default:
		return BackendBundle
	}
}

func (c *ConfigurationDefault) BaseFileName() string {
	return c.LocalizationBaseFileName
}

func (c *ConfigurationDefault) Owner() string {
	return c.LocalizationOwner
}

func (c *ConfigurationDefault) DefaultLanguage() string {
	if strings.TrimSpace(c.LocalizationDefaultLanguage) == "" {
		return "en"
	}
	return c.LocalizationDefaultLanguage
}

type ConfigurationDatabase interface {
	GetDatabaseDriver() string
	GetDatabaseURL() string
	GetDatabaseTable() string
	PreferSimpleProtocol() bool
	GetMaxIdleConnections() int
	GetMaxOpenConnections() int
	GetMaxConnectionLifeTimeInSeconds() time.Duration
}

type ConfigurationDatabaseTracing interface {
	CanDatabaseTraceQueries() bool
	GetDatabaseSlowQueryLogThreshold() time.Duration
}

var _ ConfigurationDatabase = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetDatabaseDriver() string {
	return c.DatabaseDriver
}

func (c *ConfigurationDefault) GetDatabaseURL() string {
	return c.DatabaseURL
}

func (c *ConfigurationDefault) GetDatabaseTable() string {
	if c.DatabaseTable == "" {
		return "translations"
	}
	return c.DatabaseTable
}

func (c *ConfigurationDefault) PreferSimpleProtocol() bool {
	return c.DatabasePreferSimpleProtocol
}

func (c *ConfigurationDefault) GetMaxIdleConnections() int {
	return c.DatabaseMaxIdleConnections
}

func (c *ConfigurationDefault) GetMaxOpenConnections() int {
	return c.DatabaseMaxOpenConnections
}

func (c *ConfigurationDefault) GetMaxConnectionLifeTimeInSeconds() time.Duration {
	return time.Duration(c.DatabaseMaxConnectionLifeTimeSeconds) * time.Second
}

var _ ConfigurationDatabaseTracing = new(ConfigurationDefault)

func (c *ConfigurationDefault) CanDatabaseTraceQueries() bool {
	return c.DatabaseTraceQueries
}

func (c *ConfigurationDefault) GetDatabaseSlowQueryLogThreshold() time.Duration {
	threshold, err := time.ParseDuration(c.DatabaseSlowQueryLogThreshold)
	if err != nil {
		threshold = DefaultSlowQueryThreshold
	}
	return threshold
}
