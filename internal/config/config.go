package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

const (
	BackendAppSync  = "appsync"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// AppSyncConfig holds the hosted GraphQL endpoint configuration
type AppSyncConfig struct {
	URL         string        `mapstructure:"url"`
	APIKey      string        `mapstructure:"api_key"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// MemoryConfig seeds the in-process backend used to rehearse a run against an export.
// Mutations applied to it are discarded when the process exits.
type MemoryConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// CollectionsConfig names the remote models (appsync) or tables (postgres) backing each collection.
// Empty names fall back to the backend defaults.
type CollectionsConfig struct {
	Address  string `mapstructure:"address"`
	Resident string `mapstructure:"resident"`
	Consent  string `mapstructure:"consent"`
}

// SyncConfig holds bulk synchronization tunables
type SyncConfig struct {
	PageSize         int           `mapstructure:"page_size"`
	MutationInterval time.Duration `mapstructure:"mutation_interval"` // Minimum delay between two remote mutations
	ProgressEvery    int           `mapstructure:"progress_every"`    // Log progress every N applied operations
	ConsentSource    string        `mapstructure:"consent_source"`
	RecordedBy       string        `mapstructure:"recorded_by"`
}

// AddressConfig holds address normalization settings
type AddressConfig struct {
	// CityEquivalents lists groups of city names referring to the same postal locality
	CityEquivalents [][]string `mapstructure:"city_equivalents"`
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Backend     string            `mapstructure:"backend"`
	AppSync     AppSyncConfig     `mapstructure:"appsync"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Memory      MemoryConfig      `mapstructure:"memory"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Address     AddressConfig     `mapstructure:"address"`
}

// LoadReconcilerConfig loads configuration for the reconciler
func LoadReconcilerConfig(configFile string, envPath string) (*ReconcilerConfig, error) {
	v := configureViper("reconciler", configFile, envPath)

	// Set defaults
	v.SetDefault("backend", BackendAppSync)
	v.SetDefault("appsync.http_timeout", "30s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("sync.page_size", 1000)
	v.SetDefault("sync.mutation_interval", "100ms")
	v.SetDefault("sync.progress_every", 50)
	v.SetDefault("sync.consent_source", "csv-upload")
	v.SetDefault("sync.recorded_by", "reconciler")
	v.SetDefault("address.city_equivalents", [][]string{{"Ashburn", "Broadlands"}})

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional when it was not named explicitly
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg ReconcilerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the selected backend has what it needs
func (c *ReconcilerConfig) Validate() error {
	switch c.Backend {
	case BackendAppSync:
		if c.AppSync.URL == "" {
			return errors.New("appsync.url is required")
		}
		if c.AppSync.APIKey == "" {
			return errors.New("appsync.api_key is required")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required")
		}
	case BackendMemory:
		if c.Memory.SeedFile == "" {
			return errors.New("memory.seed_file is required")
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownBackend, c.Backend)
	}

	if c.Sync.PageSize <= 0 {
		return errors.New("sync.page_size must be positive")
	}
	if c.Sync.MutationInterval < 0 {
		return errors.New("sync.mutation_interval must not be negative")
	}

	return nil
}

// CollectionNames returns the configured collection names with backend defaults filled in
func (c *ReconcilerConfig) CollectionNames() CollectionsConfig {
	names := c.Collections
	defaults := CollectionsConfig{Address: "Address", Resident: "Resident", Consent: "Consent"}
	if c.Backend == BackendPostgres {
		defaults = CollectionsConfig{Address: "addresses", Resident: "residents", Consent: "consents"}
	}

	if names.Address == "" {
		names.Address = defaults.Address
	}
	if names.Resident == "" {
		names.Resident = defaults.Resident
	}
	if names.Consent == "" {
		names.Consent = defaults.Consent
	}
	return names
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/reconciler/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"backend",
		// AppSync
		"appsync.url",
		"appsync.api_key",
		"appsync.http_timeout",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Collections
		"collections.address",
		"collections.resident",
		"collections.consent",
		// Sync
		"sync.page_size",
		"sync.mutation_interval",
		"sync.progress_every",
		"sync.consent_source",
		"sync.recorded_by",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
