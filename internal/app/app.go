package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"co2dash/internal/config"
	"co2dash/internal/dataprocessing"
	"co2dash/internal/errors"
	"co2dash/internal/infrastructure"
	customMiddleware "co2dash/internal/middleware"
	"co2dash/internal/services"
	handlers "co2dash/internal/transport/http"
	ws "co2dash/internal/websocket"
	"co2dash/pkg/contracts/domain"
)

var (
	// Version is set at compile time
	Version = config.AppVersion
	// BuildTime is set at compile time
	BuildTime = "unknown"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	ErrorHandler  *errors.ErrorHandler
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dataset   *services.DatasetStore
	Dashboard *services.DashboardService
	Health    *services.HealthService
	WebSocket *ws.Manager
}

// NewApplication creates a new application instance with dependency injection.
// A nil cfg loads the configuration from the environment and config file.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return newApplication(cfg, logger)
}

func newApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.String("emissions_file", cfg.Data.EmissionsFile),
		slog.String("geometry_file", cfg.Data.GeometryFile))

	otelConfig := infrastructure.NewOTelConfig(cfg.Telemetry)
	otelConfig.ServiceVersion = Version
	providers, err := infrastructure.InitializeOTel(otelConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDashboardMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// NewDashboard builds the dataset store and the dashboard service from the
// data section of the configuration. tracer and metrics may be nil.
func NewDashboard(cfg config.DataConfig, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.DashboardMetrics) (*services.DatasetStore, *services.DashboardService, error) {
	policy, err := dataprocessing.ParseAggregationPolicy(cfg.Aggregation)
	if err != nil {
		return nil, nil, err
	}
	metric, err := domain.ParseMetric(cfg.DefaultMetric)
	if err != nil {
		return nil, nil, err
	}

	store := services.NewDatasetStore(services.StoreConfig{
		EmissionsFile: cfg.EmissionsFile,
		GeometryFile:  cfg.GeometryFile,
		Geometry: dataprocessing.GeometryOptions{
			CodeProperty: cfg.CodeProperty,
			NameProperty: cfg.NameProperty,
		},
	}, logger, metrics)

	dashboard := services.NewDashboardService(store, services.DashboardOptions{
		Policy:        policy,
		DefaultMetric: metric,
		DefaultTopN:   cfg.DefaultTopN,
	}, logger, tracer, metrics)

	return store, dashboard, nil
}

// initializeServices builds the dataset store and everything reading from it
func (a *Application) initializeServices() error {
	store, dashboard, err := NewDashboard(a.Config.Data, a.Logger, a.OTelProviders.Tracer, a.Metrics)
	if err != nil {
		return err
	}

	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}

	manager := ws.NewManager(dashboard, customMiddleware.NewValidator(a.Logger), ws.Options{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		PingPeriod:      a.Config.WebSocket.PingPeriod,
		PongWait:        a.Config.WebSocket.PongWait,
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		AllowAllOrigins: !a.Config.Security.EnableCORS && a.Config.Logging.Development,
	}, wsMetrics, a.Metrics, a.Logger)

	a.Services = &ServiceContainer{
		Dataset:   store,
		Dashboard: dashboard,
		Health:    services.NewHealthService(Version, BuildTime, store, manager, a.Logger),
		WebSocket: manager,
	}

	a.Logger.Info("Services initialized",
		slog.String("aggregation", a.Config.Data.Aggregation),
		slog.String("default_metric", a.Config.Data.DefaultMetric),
		slog.Int("default_top_n", a.Config.Data.DefaultTopN))
	return nil
}

// setupRouter configures the HTTP router
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// The websocket endpoint skips the timeout and compression middleware
	r.Handle("/ws", a.Services.WebSocket)

	// Prometheus scrapes outside the rate limiter
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}
		r.Use(customMiddleware.Compress(5))

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes mounts the API handlers
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	dashboardHandler := handlers.NewDashboardHandler(
		a.Services.Dashboard,
		a.Config.Data.CSVBOM,
		a.Metrics,
		a.Logger,
		a.ErrorHandler,
	)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Mount("/dashboard", dashboardHandler.Routes())
	})

	a.Logger.Info("API routes configured",
		slog.String("dashboard", "/api/dashboard"),
		slog.String("health", "/api/health"),
		slog.String("websocket", "/ws"))
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the dataset and starts serving. A failed load is logged and
// leaves the server up in the not ready state, answering 503 for views.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if err := a.Services.Dataset.Load(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Dataset load failed, serving in not ready state",
			slog.String("error", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Hijacked websocket connections are not closed by Server.Shutdown
	if err := a.Services.WebSocket.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing websocket sessions", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets its own deadline
	return a.Stop(context.WithoutCancel(ctx))
}
