package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"propdash/internal/auth"
	"propdash/internal/listings/handler"
	"propdash/internal/listings/repository"
	"propdash/internal/listings/service"
	"propdash/internal/listings/validator"
	"propdash/internal/metrics"
	"propdash/internal/mirror"
	"propdash/pkg/config"
	"propdash/pkg/contracts"
	"propdash/pkg/kafka"
	"propdash/pkg/middleware"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	registry         *prometheus.Registry
	metrics          *metrics.Collector
	mirror           mirror.Mirror
	dispatcher       *mirror.Dispatcher
	deadLetter       *kafka.Producer
	idempotencyStore *middleware.InMemoryIdempotencyStore
	apiLimiter       *middleware.KeyedRateLimiter
	loginLimiter     *middleware.KeyedRateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
}

// NewApplication expects cfg.Mongo to be connected.
func NewApplication(cfg *config.Config) *Application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Application{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics.NewCollector(registry),
	}
}

func (a *Application) SetApp() error {
	if err := a.setMirror(); err != nil {
		return err
	}
	handlers, err := a.buildHandlers()
	if err != nil {
		return err
	}
	a.setHealthHandler()
	a.setAppHandler(handlers...)
	a.setAppServer()
	return nil
}

func (a *Application) setMirror() error {
	log := a.cfg.Log.Component("mirror")
	if !a.cfg.MirrorEnabled() {
		a.mirror = mirror.Noop{}
		log.Info("Webhook mirror disabled")
		return nil
	}

	webhook := mirror.NewWebhook(mirror.WebhookConfig{
		BaseURL:              a.cfg.MirrorBaseURL,
		SigningSecret:        a.cfg.MirrorSigningSecret,
		Timeout:              a.cfg.MirrorTimeout,
		AllowPrivateNetworks: a.cfg.MirrorAllowPrivateNetwork,
	})

	var sink mirror.DeadLetterSink = mirror.NewLogDeadLetter(log)
	if a.cfg.MirrorDLQTopic != "" {
		producer, err := kafka.NewProducer(a.cfg.Kafka, a.cfg.MirrorDLQTopic, log)
		if err != nil {
			return fmt.Errorf("failed to create mirror dead-letter producer: %w", err)
		}
		a.deadLetter = producer
		sink = mirror.NewKafkaDeadLetter(producer, log)
		log.Info("Mirror dead letters go to Kafka", "topic", a.cfg.MirrorDLQTopic)
	}

	a.dispatcher = mirror.NewDispatcher(webhook, sink, a.metrics, mirror.DispatcherConfig{
		QueueSize: a.cfg.MirrorQueueSize,
		Workers:   a.cfg.MirrorWorkers,
		Timeout:   a.cfg.MirrorTimeout,
	}, log)
	a.dispatcher.Start()
	a.mirror = a.dispatcher
	log.Info("Webhook mirror enabled",
		"workers", a.cfg.MirrorWorkers,
		"queue_size", a.cfg.MirrorQueueSize,
	)
	return nil
}

func (a *Application) credentialStore() (auth.CredentialStore, error) {
	if a.cfg.AuthSource == config.AuthSourceMongo {
		a.cfg.Log.Info("Credentials read from MongoDB", "collection", auth.UsersCollection)
		return auth.NewMongoCredentialStore(a.cfg.Mongo.Database(a.cfg.MongoDatabaseName), a.cfg.ReadTimeout), nil
	}
	store, err := auth.ParseStaticUsers(a.cfg.AuthUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", config.EnvAuthUsers, err)
	}
	a.cfg.Log.Info("Credentials read from static user list", "users", store.Len())
	return store, nil
}

func (a *Application) buildHandlers() ([]contracts.Handler, error) {
	store, err := a.credentialStore()
	if err != nil {
		return nil, err
	}

	a.apiLimiter = middleware.NewKeyedRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, a.cfg.Log)
	a.loginLimiter = middleware.NewKeyedRateLimiter(a.cfg.LoginRateLimitRequests, a.cfg.LoginRateLimitWindow, a.cfg.Log)

	sessions := auth.NewSessionManager(a.cfg.SessionSecret, a.cfg.SessionTTL)
	authLog := a.cfg.Log.Component("auth")
	gate := auth.NewGate(sessions, a.apiLimiter, authLog)
	authService := auth.NewAuthService(store, sessions, a.metrics, authLog)

	listingsLog := a.cfg.Log.Component("listings")
	listingService := service.NewListingService(
		repository.NewMongoListingRepository(a.cfg),
		validator.NewListingValidator(listingsLog),
		a.mirror,
		a.metrics,
		a.cfg,
	)
	a.cfg.Log.Info("Listing service initialized")

	return []contracts.Handler{
		auth.NewAuthHandler(authService, gate, a.loginLimiter, authLog),
		handler.NewListingHandler(listingService, gate, listingsLog),
	}, nil
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	healthHandler := handler.NewHealthHandler(a.cfg.Mongo, a.cfg.Log)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handlers ...contracts.Handler) {
	appRouter := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(appRouter)
	}

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)

	// Middleware order: Recovery → Logging → MaxSize → ContentType → Timeout → Idempotency → Router
	var appHTTPHandler http.Handler = appRouter
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore)(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.appHTTPHandler = appHTTPHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/metrics", middleware.Recovery(a.cfg.Log)(metrics.Handler(a.registry)))
	mux.Handle("/", a.appHTTPHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.stopWorkers(context.Background())
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	// The server is drained first so in-flight mutations can still enqueue
	// mirror events.
	a.stopWorkers(ctx)
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) stopWorkers(ctx context.Context) {
	a.cfg.Log.Info("Stopping background workers...")
	if a.dispatcher != nil {
		if err := a.dispatcher.Stop(ctx); err != nil {
			a.cfg.Log.Warn("Mirror dispatcher did not drain before shutdown deadline", "error", err)
		}
	}
	if a.deadLetter != nil {
		if err := a.deadLetter.Close(); err != nil {
			a.cfg.Log.Error("Failed to close mirror dead-letter producer", "error", err)
		}
	}
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.apiLimiter != nil {
		a.apiLimiter.Stop()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	a.cfg.Log.Info("Background workers stopped")
}
