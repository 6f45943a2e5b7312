package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"github.com/newsdesk/backend/internal/infrastructure/cache"
	"github.com/newsdesk/backend/internal/infrastructure/config"
	"github.com/newsdesk/backend/internal/infrastructure/event"
	"github.com/newsdesk/backend/internal/infrastructure/logger"
	"github.com/newsdesk/backend/internal/infrastructure/persistence"
	"github.com/newsdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const subscribeTimeout = 2 * time.Second

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	eventLog   string
	output     string
}

// app holds the wired services for one command run
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	runID     string
	providers *telemetry.Providers
	db        *persistence.Database
	bus       *event.InMemoryEventBus
	treeCache cache.Cache
	eventLog  *os.File

	graph        *taxonomy.Graph
	categories   *apptaxonomy.CategoryService
	news         *apptaxonomy.NewsService
	associations *apptaxonomy.AssociationService
	presentation *apptaxonomy.PresentationService
}

// loadBase reads configuration and builds the run logger. It does not touch the database.
func loadBase(ctx context.Context, opts *globalOptions, operation string) (context.Context, *config.Config, *zap.Logger, string, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return ctx, nil, nil, "", fmt.Errorf("load config: %w", err)
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	format := opts.logFormat
	if format == "" {
		format = cfg.Log.Format
	}
	log, err := logger.NewForEnvironment(cfg.App.Env, level, format, cfg.Log.Output)
	if err != nil {
		return ctx, nil, nil, "", fmt.Errorf("init logger: %w", err)
	}

	runID := uuid.NewString()
	ctx, log = logger.WithRunID(ctx, log, runID)
	ctx, log = logger.WithOperation(ctx, log, operation)
	return ctx, cfg, log, runID, nil
}

// newApp wires configuration, storage, cache, events and services
func newApp(ctx context.Context, opts *globalOptions, operation string) (context.Context, *app, error) {
	ctx, cfg, log, runID, err := loadBase(ctx, opts, operation)
	if err != nil {
		return ctx, nil, err
	}
	a := &app{cfg: cfg, log: log, runID: runID}

	a.providers, err = telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		return ctx, nil, err
	}
	log = a.providers.BridgeLogger(log, zap.String("run_id", runID), zap.String("operation", operation))
	a.log = log
	ctx = logger.WithContext(ctx, log)

	a.db, err = persistence.NewDatabase(&cfg.Database,
		persistence.WithDatabaseLogger(log),
		persistence.WithSlowQueryThreshold(cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithQueryTracing(telemetry.DBTracingConfig{
			Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		}),
	)
	if err != nil {
		a.close(ctx)
		return ctx, nil, err
	}
	// the SQL migrations target postgres; sqlite gets its schema from the models
	if a.db.Driver() == config.DriverSQLite {
		if err := a.db.AutoMigrate(ctx); err != nil {
			a.close(ctx)
			return ctx, nil, err
		}
	}

	if err := a.wireServices(ctx, opts); err != nil {
		a.close(ctx)
		return ctx, nil, err
	}

	log.Debug("newsctl ready",
		zap.String("driver", a.db.Driver()),
		zap.Bool("serializable", cfg.Database.Serializable),
		zap.Bool("tree_cache", a.treeCache != nil),
	)
	return ctx, a, nil
}

func (a *app) wireServices(ctx context.Context, opts *globalOptions) error {
	metrics, err := telemetry.NewTaxonomyMetrics(a.providers.Meter("newsdesk/taxonomy"))
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	categoryRepo := persistence.NewGormCategoryRepository(a.db.DB)
	newsRepo := persistence.NewGormNewsRepository(a.db.DB)
	assignmentRepo := persistence.NewGormAssignmentRepository(a.db.DB)
	scope := persistence.NewGormTransactionScope(a.db.DB,
		persistence.WithSerializable(a.cfg.Database.Serializable),
		persistence.WithTransactionLogger(a.log),
	)

	a.graph = taxonomy.NewGraph(categoryRepo,
		taxonomy.WithMaxDepth(a.cfg.Taxonomy.MaxDepth),
		taxonomy.WithLogger(a.log),
		taxonomy.WithTraversalObserver(metrics),
	)

	a.bus = event.NewInMemoryEventBus(a.log)
	if err := a.bus.Start(ctx); err != nil {
		return err
	}

	if opts.eventLog != "" {
		f, err := os.OpenFile(opts.eventLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		a.eventLog = f
		a.bus.Subscribe(event.NewEventLogHandler(f, event.NewTaxonomyEventSerializer()))
	}

	a.treeCache, err = cache.NewTreeCacheFactory(a.cfg.Taxonomy, a.cfg.Redis, cache.WithLogger(a.log)).Create(ctx)
	if err != nil {
		return err
	}
	if tiered, ok := a.treeCache.(*cache.TieredTreeCache); ok {
		a.startInvalidationSubscription(ctx, tiered)
	}

	presentationOpts := []apptaxonomy.PresentationOption{
		apptaxonomy.WithIndentUnit(a.cfg.Taxonomy.IndentUnit),
		apptaxonomy.WithPathSeparator(a.cfg.Taxonomy.PathSeparator),
		apptaxonomy.WithPresentationLogger(a.log),
	}
	if a.treeCache != nil {
		presentationOpts = append(presentationOpts, apptaxonomy.WithTreeCache(a.treeCache, a.cfg.Taxonomy.CacheTTL))
		a.bus.Subscribe(apptaxonomy.NewTreeCacheInvalidationHandler(a.treeCache, a.log))
	}

	a.associations = apptaxonomy.NewAssociationService(assignmentRepo, scope,
		apptaxonomy.WithAssociationEventPublisher(a.bus),
		apptaxonomy.WithAssociationMetrics(metrics),
		apptaxonomy.WithAssociationLogger(a.log),
	)
	a.categories = apptaxonomy.NewCategoryService(categoryRepo, scope, a.graph,
		apptaxonomy.WithCategoryEventPublisher(a.bus),
		apptaxonomy.WithCategoryMetrics(metrics),
		apptaxonomy.WithCategoryLogger(a.log),
	)
	a.news = apptaxonomy.NewNewsService(newsRepo, a.associations, scope,
		apptaxonomy.WithNewsEventPublisher(a.bus),
		apptaxonomy.WithNewsLogger(a.log),
	)
	a.presentation = apptaxonomy.NewPresentationService(categoryRepo, a.graph, assignmentRepo, presentationOpts...)
	return nil
}

// startInvalidationSubscription clears the local tier when another process
// invalidates the shared tree. It runs until the cache is closed.
func (a *app) startInvalidationSubscription(ctx context.Context, tiered *cache.TieredTreeCache) {
	ready := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := tiered.StartInvalidationSubscription(ctx, ready)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("tree cache invalidation subscription stopped", zap.Error(err))
		}
	}()

	select {
	case <-ready:
	case <-done:
	case <-time.After(subscribeTimeout):
		a.log.Warn("tree cache invalidation subscription not confirmed", zap.Duration("timeout", subscribeTimeout))
	}
}

// close releases everything newApp opened, in reverse order
func (a *app) close(ctx context.Context) {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Stop(ctx))
	}
	if a.treeCache != nil {
		errs = append(errs, a.treeCache.Close())
	}
	if a.eventLog != nil {
		errs = append(errs, a.eventLog.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.providers != nil {
		errs = append(errs, a.providers.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("error during shutdown", zap.Error(err))
	}
	_ = a.log.Sync()
}
