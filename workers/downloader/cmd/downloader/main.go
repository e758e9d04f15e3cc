package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/islamibragimov/url-downloader-bot/shared/config"
	"github.com/islamibragimov/url-downloader-bot/shared/handler"
	"github.com/islamibragimov/url-downloader-bot/shared/handler/platforms"
	"github.com/islamibragimov/url-downloader-bot/shared/observability"
	"github.com/islamibragimov/url-downloader-bot/shared/queue"
	"github.com/islamibragimov/url-downloader-bot/shared/storage"
	"github.com/islamibragimov/url-downloader-bot/shared/storage/types"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/acquisition"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/delivery"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/extractor"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/fetcher"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/session"
	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("downloader: %v", err)
	}
}

// run owns every resource it opens, so deferred closes happen before main
// exits on error.
func run() error {
	cfg := loadConfiguration()

	deps, err := initializeDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	app := buildApplication(cfg, deps)

	return startApplication(cfg, app)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	provider  observability.Provider
	registry  *prometheus.Registry
	storage   types.ObjectStorage
	publisher queue.Publisher
	logger    observability.Logger
}

// Application holds the complete application stack
type Application struct {
	handler  *handler.Handler
	registry *prometheus.Registry
	logger   observability.Logger
	metrics  observability.Metrics
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoad()
	return cfgProvider.MustGet()
}

// initializeDependencies sets up all infrastructure dependencies
func initializeDependencies(cfg *config.Config) (*Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := observability.NewProvider(&observability.Config{
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
		LogLevel:         cfg.LogLevel,
		AdditionalFields: observability.Fields{"version": cfg.Version},
		Registerer:       registry,
	})

	logger := provider.Logger("main")
	logStartup(cfg, logger, provider.Metrics("main"))

	deps := &Dependencies{
		provider: provider,
		registry: registry,
		logger:   logger,
	}

	store, err := initializeStorage(cfg, provider)
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.storage = store

	publisher, err := initializePublisher(cfg, provider)
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.publisher = publisher

	return deps, nil
}

// close releases the publisher and then the log output. Components that
// were never initialized are skipped.
func (d *Dependencies) close() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			d.logger.Warn(context.Background(), "Failed to close publisher", observability.Fields{
				"error": err.Error(),
			})
		}
	}
	if err := d.provider.Close(); err != nil {
		// The log output itself failed to close, so stderr is all that is left.
		log.Printf("Failed to close observability provider: %v", err)
	}
}

// logStartup logs application startup information
func logStartup(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) {
	logger.Info(context.Background(), "Starting application", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"storage":     cfg.Storage.Provider,
		"queue":       cfg.Queue.Provider,
	})

	metrics.RecordSuccess("startup")
}

// initializeStorage sets up the storage provider with observability
func initializeStorage(cfg *config.Config, provider observability.Provider) (types.ObjectStorage, error) {
	logger := provider.Logger("storage")
	metrics := provider.Metrics("storage")

	storageProvider := storage.GetProvider()
	if err := storageProvider.Initialize(cfg, logger, metrics); err != nil {
		logger.Error(context.Background(), "Failed to initialize storage", err, nil)
		metrics.RecordError("init", "storage")
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return storageProvider.GetStorage()
}

// initializePublisher connects the event publisher
func initializePublisher(cfg *config.Config, provider observability.Provider) (queue.Publisher, error) {
	publisher, err := queue.NewPublisher(&cfg.Queue, provider)
	if err != nil {
		provider.Logger("queue").Error(context.Background(), "Failed to initialize publisher", err, nil)
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}
	return publisher, nil
}

// buildApplication assembles the acquisition pipeline behind the handler
func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	provider := deps.provider

	ytdlp := extractor.New(cfg.Extractor, provider.Logger("extractor"), provider.Metrics("extractor"))
	stream := fetcher.New(cfg.HTTP, cfg.Acquisition.ChunkSize, provider.Logger("fetcher"), provider.Metrics("fetcher"))
	events := worker.NewEvents(deps.publisher, cfg.Queue.EventsTarget, provider.Logger("events"))

	orchestrator := acquisition.New(
		cfg.Acquisition,
		ytdlp,
		stream,
		provider.Logger("acquisition"),
		provider.Metrics("acquisition"),
		acquisition.WithProgress(events.Progress),
	)

	deliverer := delivery.New(cfg.Delivery, deps.storage, provider.Logger("delivery"), provider.Metrics("delivery"))

	w := worker.NewAcquisitionWorker(worker.Dependencies{
		Acquirer:  orchestrator,
		Deliverer: deliverer,
		Sessions:  session.NewStore(),
		Events:    events,
		Extractor: ytdlp,
		Storage:   deps.storage,
		Logger:    provider.Logger("worker"),
		Metrics:   provider.Metrics("worker"),
	})

	if !ytdlp.Available() {
		deps.logger.Warn(context.Background(), "Extraction tool not found, only direct transfers will work", observability.Fields{
			"binary": cfg.Extractor.Binary,
		})
	}

	h := handler.NewFactory(w, provider).
		WithHandlerConfig(cfg.Handler).
		Create()

	return &Application{
		handler:  h,
		registry: deps.registry,
		logger:   deps.logger,
		metrics:  provider.Metrics("main"),
	}
}

// startApplication runs the handler on the detected platform
func startApplication(cfg *config.Config, app *Application) error {
	platform := app.handler.Config().Platform

	app.logger.Info(context.Background(), "Starting handler", observability.Fields{
		"platform": platform,
	})
	app.metrics.RecordSuccess("handler_start")

	switch platform {
	case handler.PlatformLambda:
		platforms.NewLambdaAdapter(app.handler, &cfg.Lambda).Start()
		return nil
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		adapter := platforms.NewHTTPAdapter(app.handler, platforms.WithMetrics(app.registry))
		if err := adapter.Serve(ctx, cfg.HTTP.Addr); err != nil {
			app.logger.Error(context.Background(), "HTTP server stopped", err, nil)
			app.metrics.RecordError("handler_start", "serve_failed")
			return fmt.Errorf("failed to serve: %w", err)
		}
		app.logger.Info(context.Background(), "Shutdown complete", nil)
		return nil
	}
}
