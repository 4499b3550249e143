package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// app holds the wiring shared by the commands of one invocation
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	serializer *event.EventSerializer
	scope      *persistence.GormTransactionScope
	backends   *cache.Backends
	metrics    *telemetry.LedgerMetrics

	closers []func(context.Context) error
}

func newApp(ctx context.Context, opts *globalOptions) (_ *app, err error) {
	cfg := opts.cfg
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootstrap, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = bootstrap

	if err := a.initTelemetry(ctx, logCfg); err != nil {
		return nil, err
	}

	if err := a.openDatabase(opts.sqlite); err != nil {
		return nil, err
	}

	a.backends, err = cache.NewFactory(cfg.Redis, cfg.Lock, cache.WithLogger(a.logger)).Create(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.backends.Close() })

	a.serializer = event.NewLedgerSerializer()
	a.scope = persistence.NewGormTransactionScope(a.db, event.NewOutboxPublisher(a.serializer, cfg.Event.MaxRetries))
	return a, nil
}

func (a *app) initTelemetry(ctx context.Context, logCfg *logger.Config) error {
	tc := a.cfg.Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:       tc.ServiceName,
		ServiceVersion:    a.cfg.App.Version,
		CollectorEndpoint: tc.CollectorEndpoint,
		Insecure:          tc.Insecure,
		Traces:            tc.Enabled,
		SamplingRatio:     tc.SamplingRatio,
		Metrics:           tc.MetricsEnabled,
		Logs:              tc.LogsEnabled,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	a.closers = append(a.closers, providers.Shutdown)

	a.metrics, err = telemetry.NewLedgerMetrics(providers.Meter("github.com/erp/ledger"))
	if err != nil {
		return fmt.Errorf("failed to register ledger metrics: %w", err)
	}

	if providers.LogsEnabled() {
		withOTEL, err := logger.New(logCfg, providers.LogCore(tc.ServiceName, logger.ParseLevel(logCfg.Level)))
		if err != nil {
			return fmt.Errorf("failed to attach log export: %w", err)
		}
		a.logger = withOTEL
	}
	return nil
}

// openDatabase connects to PostgreSQL, or to a SQLite file whose schema is
// created on open when path is set
func (a *app) openDatabase(path string) error {
	tc := a.cfg.Telemetry
	tracing := telemetry.DBTracingConfig{
		Enabled:         tc.DBTraceEnabled,
		LogFullSQL:      tc.DBLogFullSQL,
		SlowQueryThresh: tc.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}

	if path == "" {
		database, err := persistence.NewDatabase(&a.cfg.Database,
			persistence.WithDatabaseLogger(a.logger),
			persistence.WithDatabaseTracing(tracing),
		)
		if err != nil {
			return err
		}
		a.db = database.DB
		a.closers = append(a.closers, func(context.Context) error { return database.Close() })
		return nil
	}

	gormLogger := logger.NewSQLLogger(a.logger, logger.ParseSQLLevel(a.cfg.Database.LogLevel),
		logger.WithSlowThreshold(tc.DBSlowQueryThresh))
	db, err := persistence.Open(sqlite.Open(path), gormLogger)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	database := &persistence.Database{DB: db}
	a.closers = append(a.closers, func(context.Context) error { return database.Close() })

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	tracing.DBSystem = "sqlite"
	if err := telemetry.NewDBTracingPlugin(tracing, a.logger).RegisterOtelGorm(db); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}
	if err := database.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	a.db = db
	return nil
}

func (a *app) serviceOptions() []appledger.ServiceOption {
	return []appledger.ServiceOption{
		appledger.WithLogger(a.logger),
		appledger.WithLocker(a.backends.Locker),
		appledger.WithMetrics(a.metrics),
	}
}

func (a *app) postingService() *appledger.PostingService {
	opts := a.serviceOptions()
	return appledger.NewPostingService(a.scope, appledger.NewInventoryService(a.scope, opts...), opts...)
}

func (a *app) settlementService() *appledger.SettlementService {
	return appledger.NewSettlementService(a.scope, a.serviceOptions()...)
}

func (a *app) inventoryService() *appledger.InventoryService {
	return appledger.NewInventoryService(a.scope, a.serviceOptions()...)
}

func (a *app) trialBalanceService() *appledger.TrialBalanceService {
	return appledger.NewTrialBalanceService(a.scope, a.cfg.Ledger.BalanceTolerance, a.serviceOptions()...)
}

func (a *app) categoryService() *appledger.CategoryService {
	return appledger.NewCategoryService(a.scope, a.serviceOptions()...)
}

// close releases resources in reverse order of acquisition
func (a *app) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// withApp builds the app for one command and closes it afterwards
func withApp(cmd interface{ Context() context.Context }, opts *globalOptions, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(context.Background()); cerr != nil {
			a.logger.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()
	return fn(ctx, a)
}
