package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/errormetadata"
	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/internal/repositories/published"
	"github.com/Ramsey-B/fern/internal/repositories/reference"
	rulerepo "github.com/Ramsey-B/fern/internal/repositories/rule"
	"github.com/Ramsey-B/fern/internal/repositories/staging"
	submissionrepo "github.com/Ramsey-B/fern/internal/repositories/submission"
	"github.com/Ramsey-B/fern/pkg/artifacts"
	"github.com/Ramsey-B/fern/pkg/catalog"
	"github.com/Ramsey-B/fern/pkg/coordinator"
	"github.com/Ramsey-B/fern/pkg/crossfile"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/evaluator"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/jobgraph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/materializer"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/parser"
	"github.com/Ramsey-B/fern/pkg/pubdiff"
	fernredis "github.com/Ramsey-B/fern/pkg/redis"
	generationroutes "github.com/Ramsey-B/fern/pkg/routes/generation"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	jobroutes "github.com/Ramsey-B/fern/pkg/routes/job"
	reportroutes "github.com/Ramsey-B/fern/pkg/routes/report"
	submissionroutes "github.com/Ramsey-B/fern/pkg/routes/submission"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/worker"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger := newLogger(cfg)
	logger.WithFields(map[string]any{"app": cfg.AppName, "version": version}).Info("Starting")

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	db, err := connectDatabase(cfg, logger)
	if err != nil {
		fatal(logger, err, "Failed to connect to database")
	}
	defer db.Close()

	if err := runMigrations(cfg, logger, db); err != nil {
		fatal(logger, err, "Failed to run migrations")
	}

	dbInstance := database.NewDatabaseInstance(db, logger)

	// Repositories
	submissionRepo := submissionrepo.NewRepository(dbInstance, logger)
	jobRepo := jobrepo.NewRepository(dbInstance, logger)
	stagingRepo := staging.NewRepository(dbInstance, logger)
	publishedRepo := published.NewRepository(dbInstance, logger)
	ruleRepo := rulerepo.NewRepository(dbInstance, logger)
	errorMetaRepo := errormetadata.NewRepository(dbInstance, logger)
	referenceRepo := reference.NewRepository(dbInstance, logger)

	// Rule catalog loads once; a catalog that cannot load must not serve
	cat := catalog.NewCatalog(ruleRepo, logger)
	if err := cat.Load(context.Background()); err != nil {
		fatal(logger, err, "Failed to load rule catalog")
	}

	store, err := artifacts.NewStore(&cfg, logger)
	if err != nil {
		fatal(logger, err, "Failed to create artifact store")
	}

	redisClient, err := fernredis.NewClient(cfg, logger)
	if err != nil {
		fatal(logger, err, "Failed to connect to Redis")
	}
	defer redisClient.Close()
	locker := fernredis.NewLocker(redisClient, "fern:")

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()
	emitter := events.NewEmitter(producer, logger)

	// Engines
	builder := jobgraph.NewBuilder(logger, jobRepo)
	differ := pubdiff.NewDiffer(logger, publishedRepo)
	deriver := crossfile.NewDeriver(logger, referenceRepo, stagingRepo)
	csvParser := parser.NewParser(logger, stagingRepo, jobRepo, parser.Config{BatchSize: cfg.ParseBatchSize})
	eval := evaluator.NewEvaluator(logger, ruleRepo, cat, evaluator.Config{})
	mat := materializer.NewMaterializer(logger, errorMetaRepo, store, materializer.Config{
		SampleSize:      cfg.ErrorRowSampleSize,
		TimestampHeader: cfg.ReportTimestampHeader,
	})
	coord := coordinator.NewCoordinator(logger, dbInstance, submissionRepo, jobRepo, stagingRepo, publishedRepo, builder, differ, deriver, store, emitter)

	// Workers
	generationClient := worker.NewHTTPGenerationClient(&cfg, logger)
	runner := worker.NewRunner(logger, &cfg, submissionRepo, jobRepo, builder, csvParser, eval, mat, store, emitter, generationClient)
	dispatcher := worker.NewDispatcher(logger, &cfg, jobRepo, locker, runner)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	// Upload completions arrive over Kafka from the object-store gateway
	consumer := kafka.NewConsumer(cfg, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
		upload := msg.UploadCompleted
		if upload == nil {
			if err := msg.ParseUploadCompleted(); err != nil {
				return err
			}
			upload = msg.UploadCompleted
		}
		return coord.FinalizeUpload(ctx, upload.SubmissionID, upload.FileType, upload.ObjectKey, upload.Filename, upload.SizeBytes)
	})
	if cfg.KafkaConsumerEnabled {
		if err := consumer.Start(context.Background()); err != nil {
			fatal(logger, err, "Failed to start Kafka consumer")
		}
		defer consumer.Stop()
	}

	container, err := buildContainer(submissionRepo, jobRepo, errorMetaRepo, store, coord)
	if err != nil {
		fatal(logger, err, "Failed to build DI container")
	}

	e := buildServer(cfg, logger, container)

	checker := health.NewChecker(db, redisClient, consumer.Health, version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			fatal(logger, err, "Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server cleanly")
	}
}

// fatal logs a startup error and exits. Startup failures have nothing to
// recover into.
func fatal(logger ectologger.Logger, err error, msg string) {
	logger.WithError(err).Error(msg)
	os.Exit(1)
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func connectDatabase(cfg config.Config, logger ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= cfg.StartupMaxAttempts; attempt++ {
		db, err = sqlx.Connect(cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
		logger.WithError(err).Warnf("Database connection attempt %d/%d failed", attempt, cfg.StartupMaxAttempts)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func buildContainer(
	submissionRepo *submissionrepo.Repository,
	jobRepo *jobrepo.Repository,
	errorMetaRepo *errormetadata.Repository,
	store *artifacts.Store,
	coord *coordinator.Coordinator,
) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, err
	}

	if err := ectoinject.RegisterInstance[*submissionrepo.Repository](container, submissionRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*jobrepo.Repository](container, jobRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*errormetadata.Repository](container, errorMetaRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*artifacts.Store](container, store); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*coordinator.Coordinator](container, coord); err != nil {
		return nil, err
	}
	return container, nil
}

func buildServer(cfg config.Config, logger ectologger.Logger, container ectocontainer.DIContainer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(injectContainer(container))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	submissionroutes.Register(api.Group("/submissions"))
	jobroutes.Register(api.Group("/jobs"))
	generationroutes.Register(api.Group("/generate"))
	reportroutes.Register(api.Group("/reports"))

	return e
}

// injectContainer makes the DI container reachable from request contexts
func injectContainer(container ectocontainer.DIContainer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), container.GetContainerID())
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
