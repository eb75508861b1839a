package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

func TestLoadReconcilerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *ReconcilerConfig)
	}{
		{
			name: "valid appsync config",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
backend: appsync
appsync:
  url: "https://example.appsync-api.us-east-1.amazonaws.com/graphql"
  api_key: "da2-test"
  http_timeout: "10s"
collections:
  resident: Person
sync:
  page_size: 200
  mutation_interval: "250ms"
  progress_every: 10
  consent_source: bulk-upload
address:
  city_equivalents:
    - [Ashburn, Broadlands]
    - [Sterling, Potomac Falls]
`,
			validate: func(t *testing.T, cfg *ReconcilerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, BackendAppSync, cfg.Backend)
				assert.Equal(t, "da2-test", cfg.AppSync.APIKey)
				assert.Equal(t, 10*time.Second, cfg.AppSync.HTTPTimeout)
				assert.Equal(t, 200, cfg.Sync.PageSize)
				assert.Equal(t, 250*time.Millisecond, cfg.Sync.MutationInterval)
				assert.Equal(t, 10, cfg.Sync.ProgressEvery)
				assert.Equal(t, "bulk-upload", cfg.Sync.ConsentSource)
				assert.Equal(t, [][]string{{"Ashburn", "Broadlands"}, {"Sterling", "Potomac Falls"}}, cfg.Address.CityEquivalents)

				names := cfg.CollectionNames()
				assert.Equal(t, "Address", names.Address)
				assert.Equal(t, "Person", names.Resident)
				assert.Equal(t, "Consent", names.Consent)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "postgres config with defaults",
			configFile: `
backend: postgres
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			validate: func(t *testing.T, cfg *ReconcilerConfig) {
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 1000, cfg.Sync.PageSize)
				assert.Equal(t, 100*time.Millisecond, cfg.Sync.MutationInterval)
				assert.Equal(t, 50, cfg.Sync.ProgressEvery)
				assert.Equal(t, "csv-upload", cfg.Sync.ConsentSource)
				assert.Equal(t, "reconciler", cfg.Sync.RecordedBy)
				assert.Equal(t, "residents", cfg.CollectionNames().Resident)
				assert.Equal(t, [][]string{{"Ashburn", "Broadlands"}}, cfg.Address.CityEquivalents)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			require.NoError(t, os.WriteFile(configFile, []byte(tt.configFile), 0600))

			cfg, err := LoadReconcilerConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validate(t, cfg)
		})
	}
}

func TestLoadReconcilerConfig_MissingExplicitFile(t *testing.T) {
	cfg, err := LoadReconcilerConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"), t.TempDir())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestReconcilerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ReconcilerConfig
		wantErr string
	}{
		{
			name:    "appsync without url",
			config:  ReconcilerConfig{Backend: BackendAppSync, AppSync: AppSyncConfig{APIKey: "k"}, Sync: SyncConfig{PageSize: 1}},
			wantErr: "appsync.url is required",
		},
		{
			name:    "appsync without key",
			config:  ReconcilerConfig{Backend: BackendAppSync, AppSync: AppSyncConfig{URL: "u"}, Sync: SyncConfig{PageSize: 1}},
			wantErr: "appsync.api_key is required",
		},
		{
			name:    "postgres without host",
			config:  ReconcilerConfig{Backend: BackendPostgres, Database: DatabaseConfig{DBName: "db"}, Sync: SyncConfig{PageSize: 1}},
			wantErr: "database.host is required",
		},
		{
			name:    "memory without seed",
			config:  ReconcilerConfig{Backend: BackendMemory, Sync: SyncConfig{PageSize: 1}},
			wantErr: "memory.seed_file is required",
		},
		{
			name:    "zero page size",
			config:  ReconcilerConfig{Backend: BackendPostgres, Database: DatabaseConfig{Host: "h", DBName: "db"}},
			wantErr: "sync.page_size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	err := (&ReconcilerConfig{Backend: "dynamo"}).Validate()
	assert.ErrorIs(t, err, domain.ErrUnknownBackend)

	memory := ReconcilerConfig{Backend: BackendMemory, Memory: MemoryConfig{SeedFile: "export.json"}, Sync: SyncConfig{PageSize: 1}}
	assert.NoError(t, memory.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "p@ssw0rd!",
		DBName:   "testdb",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable", cfg.DSN())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	require.NoError(t, os.MkdirAll(envDir, 0750))

	// Viper uses the RECONCILER_ prefix
	envContent := `RECONCILER_BACKEND=postgres
RECONCILER_DATABASE_HOST=env-host
RECONCILER_DATABASE_DBNAME=env-db
RECONCILER_SYNC_PAGE_SIZE=25
`
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env"), []byte(envContent), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, ".env.reconciler.local"), []byte("RECONCILER_DATABASE_HOST=local-host\n"), 0600))
	t.Cleanup(func() {
		for _, key := range []string{"RECONCILER_BACKEND", "RECONCILER_DATABASE_HOST", "RECONCILER_DATABASE_DBNAME", "RECONCILER_SYNC_PAGE_SIZE"} {
			_ = os.Unsetenv(key)
		}
	})

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
backend: appsync
database:
  host: file-host
  dbname: file-db
sync:
  page_size: 500
`
	require.NoError(t, os.WriteFile(configPath, []byte(configFile), 0600))

	cfg, err := LoadReconcilerConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "local-host", cfg.Database.Host)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Sync.PageSize)
	assert.NoError(t, cfg.Validate())
}
