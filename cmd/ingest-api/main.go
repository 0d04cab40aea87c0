package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-events/internal/auth"
	"game-events/internal/config"
	"game-events/internal/dedup"
	"game-events/internal/forward"
	"game-events/internal/httpserver"
	"game-events/internal/pipeline"
	"game-events/internal/sink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg.LogLevel)

	verifier := auth.NewVerifier(cfg.BearerSecret)
	if !verifier.Enabled() {
		log.Warn().Msg("EVENT_API_KEY not set, authentication disabled")
	}

	deduper, err := newDeduper(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init dedup store")
	}
	defer deduper.Close()

	eventSink := newSink(cfg)
	defer eventSink.Close()

	forwarder := forward.New(eventSink, cfg.DeliveryMaxAttempts, cfg.DeliveryAttemptTimeout, cfg.DeliveryBackoff)
	p := pipeline.New(verifier, deduper, forwarder)

	server := &http.Server{
		Addr:    cfg.IngestAddr,
		Handler: httpserver.NewRouter(p),
	}

	log.Info().
		Str("addr", cfg.IngestAddr).
		Bool("mock_sink", cfg.MockSink).
		Str("dedup_backend", cfg.DedupBackend).
		Msg("starting ingest API")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ingest server failed")
		}
	}()

	graceful(server)
}

func newDeduper(cfg config.Config) (dedup.Deduper, error) {
	if cfg.DedupBackend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return dedup.NewRedisStore(ctx, cfg.RedisAddr, cfg.DedupTTL)
	}
	return dedup.NewMemoryStore(cfg.DedupTTL), nil
}

func newSink(cfg config.Config) sink.Sink {
	if cfg.MockSink {
		return sink.NewMockSink()
	}
	return sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func setupLogger(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.With().Str("service", "ingest-api").Logger()
}

func graceful(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down ingest API")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
