package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/config"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/providers/appsync"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/syncer"
)

type options struct {
	configFile         string
	envPath            string
	backend            string
	dryRun             bool
	addressCollection  string
	residentCollection string
	consentCollection  string
	reportPath         string
	expectDigest       string
}

// app holds everything a command needs once configuration is loaded
type app struct {
	cfg          *config.ReconcilerConfig
	repo         store.Repository
	orchestrator *syncer.Orchestrator
	fs           adapter.FileSystem
	json         adapter.JSON
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Flush(2 * time.Second)
		os.Exit(1) //nolint:gocritic
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Reconcile HOA consent records with the canonical store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to configuration file")
	flags.StringVar(&opts.envPath, "env", "config/", "Path to environment files")
	flags.StringVar(&opts.backend, "backend", "", "Storage backend: appsync, postgres or memory (overrides config)")
	flags.BoolVar(&opts.dryRun, "dry-run", true, "Compute and report the plan without mutating anything")
	flags.StringVar(&opts.addressCollection, "address-collection", "", "Address collection name (overrides config)")
	flags.StringVar(&opts.residentCollection, "resident-collection", "", "Resident collection name (overrides config)")
	flags.StringVar(&opts.consentCollection, "consent-collection", "", "Consent collection name (overrides config)")
	flags.StringVar(&opts.reportPath, "report", "", "Write the full JSON report to this path")
	flags.StringVar(&opts.expectDigest, "expect-digest", "", "Abort an applying run whose plan digest differs")

	cmd.AddCommand(
		newImportAddressesCmd(&opts),
		newImportResidentsCmd(&opts),
		newImportConsentsCmd(&opts),
		newDedupeConsentsCmd(&opts),
		newDedupeAddressesCmd(&opts),
		newSyncIDsCmd(&opts),
		newAbsenteeCheckCmd(&opts),
		newExportCmd(&opts),
	)

	return cmd
}

// setup loads configuration, initializes logging and connects to the backend
func setup(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.LoadReconcilerConfig(opts.configFile, opts.envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.addressCollection != "" {
		cfg.Collections.Address = opts.addressCollection
	}
	if opts.residentCollection != "" {
		cfg.Collections.Resident = opts.residentCollection
	}
	if opts.consentCollection != "" {
		cfg.Collections.Consent = opts.consentCollection
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "reconciler",
			"backend": cfg.Backend,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	json := adapter.NewJSON()
	fs := adapter.NewFileSystem()

	repo, err := openRepository(ctx, cfg, json, fs)
	if err != nil {
		return nil, err
	}

	orchestrator := syncer.New(syncer.Config{
		DryRun:           opts.dryRun,
		ExpectDigest:     opts.expectDigest,
		PageSize:         cfg.Sync.PageSize,
		MutationInterval: cfg.Sync.MutationInterval,
		ProgressEvery:    cfg.Sync.ProgressEvery,
		ConsentSource:    cfg.Sync.ConsentSource,
		RecordedBy:       cfg.Sync.RecordedBy,
	},
		repo,
		address.NewNormalizer(cfg.Address.CityEquivalents),
		adapter.NewClock(),
		json,
		adapter.NewJCS(),
	)

	return &app{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
		fs:           fs,
		json:         json,
	}, nil
}

func openRepository(ctx context.Context, cfg *config.ReconcilerConfig, json adapter.JSON, fs adapter.FileSystem) (store.Repository, error) {
	names := cfg.CollectionNames()

	switch cfg.Backend {
	case config.BackendAppSync:
		client := appsync.NewClient(adapter.NewHTTPClient(cfg.AppSync.HTTPTimeout), cfg.AppSync.URL, cfg.AppSync.APIKey, json)
		logger.InfoCtx(ctx, "Using AppSync backend", zap.String("url", cfg.AppSync.URL))
		return appsync.NewRepository(client, appsync.ModelNames{
			Address:  names.Address,
			Resident: names.Resident,
			Consent:  names.Consent,
		}), nil

	case config.BackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			return nil, fmt.Errorf("failed to configure connection pool: %w", err)
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		)
		return store.NewPGRepository(db, store.TableNames{
			Address:  names.Address,
			Resident: names.Resident,
			Consent:  names.Consent,
		}), nil

	case config.BackendMemory:
		f, err := fs.Open(cfg.Memory.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed %s: %w", cfg.Memory.SeedFile, err)
		}
		defer f.Close()

		repo, err := store.LoadMemoryRepository(f, json)
		if err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "Using in-memory backend",
			zap.String("seed", cfg.Memory.SeedFile),
			zap.Int("addresses", len(repo.AddressCollection.Items())),
			zap.Int("residents", len(repo.ResidentCollection.Items())),
			zap.Int("consents", len(repo.ConsentCollection.Items())),
		)
		return repo, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownBackend, cfg.Backend)
}
