package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"propdash/internal/metrics"
	"propdash/internal/mirror"
	"propdash/pkg/config"
	"propdash/pkg/kafka"
	"propdash/pkg/middleware"
)

const ServiceName = "mirror-replay"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.MirrorDLQTopic == "" || !cfg.MirrorEnabled() {
		cfg.Log.Fatal("Mirror replay needs MIRROR_DLQ_TOPIC and MIRROR_BASE_URL",
			"dlq_topic", cfg.MirrorDLQTopic,
			"mirror_enabled", cfg.MirrorEnabled(),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		cfg.Log.Fatal("Mirror replay stopped", "error", err)
	}
	cfg.Log.Info("Mirror replay stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := cfg.Log.Component("mirror-replay")
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var parking *kafka.Producer
	if cfg.MirrorParkingTopic != "" {
		p, err := kafka.NewProducer(cfg.Kafka, cfg.MirrorParkingTopic, log)
		if err != nil {
			return err
		}
		parking = p
	}

	webhook := mirror.NewWebhook(mirror.WebhookConfig{
		BaseURL:              cfg.MirrorBaseURL,
		SigningSecret:        cfg.MirrorSigningSecret,
		Timeout:              cfg.MirrorTimeout,
		AllowPrivateNetworks: cfg.MirrorAllowPrivateNetwork,
	})
	replayer := mirror.NewReplayer(webhook, collector, log)

	// The consumer owns parking from here on and closes it.
	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.MirrorDLQTopic, cfg.MirrorReplayGroupID, parking, replayer.Handle, log)
	if err != nil {
		if parking != nil {
			parking.Close()
		}
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Recovery(cfg.Log)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Consuming dead-lettered mirror events",
			"topic", cfg.MirrorDLQTopic,
			"group_id", cfg.MirrorReplayGroupID,
			"parking_topic", cfg.MirrorParkingTopic,
		)
		err := consumer.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		log.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server shutdown failed", "error", err)
		}
		return consumer.Close()
	})

	return g.Wait()
}
