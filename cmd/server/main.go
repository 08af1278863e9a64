package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/variantd/variantd/internal/api"
	"github.com/variantd/variantd/internal/bucket"
	"github.com/variantd/variantd/internal/config"
	"github.com/variantd/variantd/internal/engine"
	"github.com/variantd/variantd/internal/logging"
	"github.com/variantd/variantd/internal/source"
	"github.com/variantd/variantd/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := source.New(ctx, cfg.SourceType, cfg.DatabaseDSN, cfg.FlagsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("flag source")
	}
	defer src.Close()

	evaluator := engine.New(bucket.New(cfg.HashSeed), log)
	srvAPI := api.NewServer(src, evaluator, cfg.AdminAPIKey, cfg.RateLimitPerIP, log)

	// initial snapshot
	if err := srvAPI.RebuildSnapshot(ctx); err != nil {
		log.Fatal().Err(err).Msg("load flags")
	}
	log.Info().Str("source", cfg.SourceType).Msg("initial snapshot published")

	// file sources republish on change
	if fs, ok := src.(*source.FileSource); ok {
		go func() {
			err := fs.Watch(ctx, log, func() {
				if err := srvAPI.RebuildSnapshot(ctx); err != nil {
					log.Error().Err(err).Msg("snapshot rebuild failed")
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("flag file watch stopped")
			}
		}()
	}

	// metrics listener
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}
