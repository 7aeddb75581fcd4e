// Package config loads Inkwell settings from config.yml, an optional
// per-environment overlay and the process environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds every setting. Keys are the environment variable names.
type Config struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"APP_ENV"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath             string `mapstructure:"DB_SQLITE_PATH"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	BcryptCost     int    `mapstructure:"BCRYPT_COST"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `mapstructure:"LOG_COMPRESS"`

	TracingEnabled  bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSample   float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	DevBootstrapAdmin bool   `mapstructure:"DEV_BOOTSTRAP_ADMIN"`
	DevAdminUsername  string `mapstructure:"DEV_ADMIN_USERNAME"`
	DevAdminEmail     string `mapstructure:"DEV_ADMIN_EMAIL"`
	DevAdminPassword  string `mapstructure:"DEV_ADMIN_PASSWORD"`
}

// defaults also tells viper which environment variables to look for.
var defaults = map[string]any{
	"PORT":       "5000",
	"APP_ENV":    "development",
	"JWT_SECRET": defaultJWTSecret,

	"DB_DRIVER":                    "postgres",
	"DB_HOST":                      "localhost",
	"DB_PORT":                      "5432",
	"DB_USER":                      "user",
	"DB_PASSWORD":                  "password",
	"DB_NAME":                      "inkwell",
	"DB_SSLMODE":                   "disable",
	"DB_SQLITE_PATH":               "inkwell.db",
	"DB_SCHEMA_MODE":               "hybrid",
	"DB_MAX_OPEN_CONNS":            25,
	"DB_MAX_IDLE_CONNS":            5,
	"DB_CONN_MAX_LIFETIME_MINUTES": 5,

	"REDIS_URL":       "localhost:6379",
	"ALLOWED_ORIGINS": "http://localhost:5173,http://localhost:3000",
	"FEATURE_FLAGS":   "rendered_content=on,live_feed=on",
	"BCRYPT_COST":     10,

	"LOG_LEVEL":        "info",
	"LOG_FILE":         "",
	"LOG_MAX_SIZE_MB":  100,
	"LOG_MAX_BACKUPS":  5,
	"LOG_MAX_AGE_DAYS": 28,
	"LOG_COMPRESS":     true,

	"TRACING_ENABLED":      false,
	"TRACING_EXPORTER":     "stdout",
	"OTLP_ENDPOINT":        "localhost:4318",
	"TRACING_SAMPLE_RATIO": 1.0,

	"DEV_BOOTSTRAP_ADMIN": false,
	"DEV_ADMIN_USERNAME":  "admin",
	"DEV_ADMIN_EMAIL":     "admin@inkwell.local",
	"DEV_ADMIN_PASSWORD":  "",
}

var searchPaths = []string{".", "..", "../.."}

// LoadConfig reads config.yml (optional), then config.<APP_ENV>.yml, which
// is required outside development and test, then the environment.
func LoadConfig() (*Config, error) {
	return load(viper.New(), searchPaths)
}

func load(v *viper.Viper, paths []string) (*Config, error) {
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigType("yml")
	v.SetConfigName("config")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	_ = v.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for _, s := range []*string{&c.Env, &c.DBDriver, &c.DBSSLMode, &c.DBSchemaMode, &c.TracingExporter} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate reports every problem at once. Production additionally refuses
// default or weak secrets, plaintext database connections and the dev admin
// bootstrap.
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Port == "", "PORT is required")
	check(c.JWTSecret == "", "JWT_SECRET is required")
	check(c.DBDriver != "postgres" && c.DBDriver != "sqlite",
		fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		check(true, fmt.Sprintf("DB_SCHEMA_MODE must be hybrid, sql or auto, got %q", c.DBSchemaMode))
	}
	check(c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31), "BCRYPT_COST must be between 4 and 31")
	check(c.DBConnMaxLifetimeMinutes < 0, "DB_CONN_MAX_LIFETIME_MINUTES cannot be negative")

	if !c.IsProduction() {
		if len(c.JWTSecret) < 32 {
			log.Println("WARNING: JWT_SECRET is shorter than 32 characters")
		}
		return errors.Join(errs...)
	}

	check(c.JWTSecret == defaultJWTSecret, "JWT_SECRET must be changed from the default value in production")
	check(len(c.JWTSecret) < 32, "JWT_SECRET must be at least 32 characters in production")
	if c.DBDriver == "postgres" {
		check(c.DBPassword == "" || c.DBPassword == "password", "a strong DB_PASSWORD is required in production")
		check(c.DBSSLMode == "" || c.DBSSLMode == "disable", "DB_SSLMODE must enable TLS in production")
	}
	check(c.DevBootstrapAdmin, "DEV_BOOTSTRAP_ADMIN cannot be enabled in production")
	if c.AllowedOrigins == "*" {
		log.Println("WARNING: ALLOWED_ORIGINS is '*' in production")
	}
	return errors.Join(errs...)
}
