// Package app wires configuration, infrastructure and services into the
// running Clover process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/recordstore"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/locking"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/duplicates"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/store/memory"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

// App holds the process-wide dependencies
type App struct {
	Config *config.Config
	Logger ectologger.Logger

	Store       store.Store
	Scanner     *matching.Scanner
	Engine      *merging.Engine
	QuickMerger *merging.QuickMerger
	Health      *health.Checker

	db             database.DB
	records        *recordstore.Store
	redis          *locking.Client
	producer       *kafka.Producer
	tracerProvider *sdktrace.TracerProvider
	startup        *startup.Startup
	server         *echo.Echo
}

// New creates an App. Nothing connects until Start.
func New(cfg *config.Config, logger ectologger.Logger) *App {
	a := &App{
		Config: cfg,
		Logger: logger,
		Health: health.NewChecker(cfg.Version),
	}
	a.startup = startup.NewStartup(logger, cfg.StartupMaxAttempts)
	a.registerDependencies()
	return a
}

func (a *App) registerDependencies() {
	cfg := a.Config
	services := &startup.Dependency{Name: "services", Requires: []string{"tracing"}, OnStart: a.startServices}

	a.startup.AddDependency(&startup.Dependency{Name: "tracing", OnStart: a.startTracing, OnStop: a.stopTracing})

	if cfg.StoreDriver == config.StoreDriverPostgres {
		a.startup.AddDependency(&startup.Dependency{Name: "database", OnStart: a.startDatabase, OnStop: a.stopDatabase})
		services.Requires = append(services.Requires, "database")
		if cfg.DatabaseMigrateOnStart {
			a.startup.AddDependency(&startup.Dependency{Name: "migrations", Requires: []string{"database"}, OnStart: a.runMigrations})
			services.Requires = append(services.Requires, "migrations")
		}
	}
	if cfg.MergeLockEnabled {
		a.startup.AddDependency(&startup.Dependency{Name: "redis", OnStart: a.startRedis, OnStop: a.stopRedis})
		services.Requires = append(services.Requires, "redis")
	}
	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{Name: "kafka", OnStart: a.startKafka, OnStop: a.stopKafka})
		services.Requires = append(services.Requires, "kafka")
	}

	a.startup.AddDependency(services)
}

// Start connects infrastructure and builds the services
func (a *App) Start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

// Stop releases everything Start acquired
func (a *App) Stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

func (a *App) startTracing(ctx context.Context) error {
	var exporter sdktrace.SpanExporter = &exporters.DiscardExporter{}
	if a.Config.TracingEnabled {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: a.Config.TracingEndpoint,
			Protocol: a.Config.TracingProtocol,
			Insecure: a.Config.TracingInsecure,
			Timeout:  a.Config.TracingTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = otlp
	}

	a.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", a.Config.AppName),
			attribute.String("service.version", a.Config.Version),
		)),
	)
	otel.SetTracerProvider(a.tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracing.SetTracer(a.tracerProvider.Tracer(a.Config.AppName))
	return nil
}

func (a *App) stopTracing(ctx context.Context) error {
	if a.tracerProvider == nil {
		return nil
	}
	return a.tracerProvider.Shutdown(ctx)
}

func (a *App) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, database.Config{
		Host:            a.Config.DatabaseHost,
		Port:            a.Config.DatabasePort,
		User:            a.Config.DatabaseUserName,
		Password:        a.Config.DatabasePassword,
		Name:            a.Config.DatabaseName,
		SSLMode:         a.Config.DatabaseSSLMode,
		MaxOpenConns:    a.Config.DatabaseMaxOpenConns,
		MaxIdleConns:    a.Config.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.Config.DatabaseConnMaxLifetime,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.db = db
	a.records = recordstore.New(db, a.Logger)
	a.Health.AddCheck("database", a.records)
	return nil
}

func (a *App) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) runMigrations(context.Context) error {
	return a.Migrate()
}

// Migrate applies the Postgres migrations with the configured version and force settings
func (a *App) Migrate() error {
	if a.db == nil {
		return errors.New("migrations need the postgres store driver")
	}
	migrator := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: a.Config.DatabaseMigrationFolderPath,
		Version:             uint(a.Config.DatabaseMigrationVersion),
		Force:               a.Config.DatabaseMigrationForce,
		AutoRollback:        a.Config.DatabaseMigrationAutoRollback,
	})
	return migrator.Migrate(a.db.Unwrap())
}

func (a *App) startRedis(ctx context.Context) error {
	client, err := locking.NewClient(ctx, locking.Config{
		Host:     a.Config.RedisHost,
		Port:     a.Config.RedisPort,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.redis = client
	a.Health.AddCheck("redis", client)
	return nil
}

func (a *App) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *App) startKafka(context.Context) error {
	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.Config.KafkaBrokers,
		Topic:        a.Config.KafkaOutputTopic,
		BatchSize:    a.Config.KafkaBatchSize,
		BatchTimeout: time.Duration(a.Config.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.Config.KafkaRequiredAcks,
		Compression:  a.Config.KafkaCompression,
	}, a.Logger)
	a.Logger.Infof("Publishing provider events to %s", a.Config.KafkaOutputTopic)
	return nil
}

func (a *App) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *App) startServices(context.Context) error {
	algorithm, err := matching.ParseAlgorithm(a.Config.NameSimilarityAlgorithm)
	if err != nil {
		return err
	}

	if a.records != nil {
		a.Store = a.records
	} else {
		a.Logger.Warn("Using the in-memory record store; data is lost on exit")
		a.Store = memory.New()
	}

	var (
		locker    merging.Locker
		mergePub  merging.MergePublisher
		scanPub   matching.ScanPublisher
		lockTTL   = a.Config.MergeLockTTL
		threshold = a.Config.NameSimilarityThreshold
	)
	if a.redis != nil {
		locker = locking.NewLocker(a.redis, "")
	}
	if a.producer != nil {
		emitter := events.NewEmitter(a.producer, a.Logger)
		mergePub = emitter
		scanPub = emitter
	}

	a.Scanner = matching.NewScanner(a.Logger, a.Store, matching.Config{
		NameThreshold: threshold,
		Algorithm:     algorithm,
	}, scanPub)
	a.Engine = merging.NewEngine(a.Logger, a.Store, locker, mergePub, merging.EngineConfig{LockTTL: lockTTL})
	a.QuickMerger = merging.NewQuickMerger(a.Logger, a.Scanner, a.Engine)
	return nil
}

// Router builds the HTTP router. Start must have completed.
func (a *App) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.Logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(a.Config.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.Logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.Config.AllowOrigins,
		AllowMethods: a.Config.AllowMethods,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID, middleware.HeaderUserID},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	a.Health.RegisterRoutes(e)
	duplicates.NewHandler(a.Scanner, a.QuickMerger, a.Engine, a.Store, a.Logger).Register(e.Group("/api/v1"))

	return e
}

// Serve runs the HTTP server until ctx is cancelled, then drains it
func (a *App) Serve(ctx context.Context) error {
	a.server = a.Router()
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		ReadTimeout:       time.Duration(a.Config.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.Config.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.Config.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.Config.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.Config.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Infof("Listening on %s", srv.Addr)
		if err := a.server.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.Health.SetReady(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down HTTP server")
	return a.server.Shutdown(shutdownCtx)
}
