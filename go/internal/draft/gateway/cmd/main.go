package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/auctiondraft/go/internal/draft/gateway"
	"github.com/mcdev12/auctiondraft/go/internal/draft/snapshot"
)

// Standalone gateway: events from JetStream, snapshots from the Redis cache the API server
// keeps. Run as many as needed; each gets its own consumer.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	port := getEnv("GATEWAY_PORT", "8081")

	cacheCfg := snapshot.DefaultConfig()
	cacheCfg.Addr = getEnv("REDIS_ADDR", cacheCfg.Addr)
	cacheCfg.Password = os.Getenv("REDIS_PASSWORD")
	if db, err := strconv.Atoi(getEnv("REDIS_DB", "0")); err == nil {
		cacheCfg.DB = db
	}
	cache, err := snapshot.NewCache(cacheCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to snapshot cache")
	}
	defer cache.Close()

	cfg := gateway.DefaultConfig()
	cfg.JetStreamConfig.URL = getEnv("NATS_URL", cfg.JetStreamConfig.URL)
	cfg.JetStreamConfig.ConsumerName = gateway.InstanceConsumerName("draft-gateway")

	svc := gateway.NewService(cfg)
	svc.UseStateProvider(gateway.NewCacheStateProvider(cache))
	if err := svc.ConsumeJetStream(cfg.JetStreamConfig); err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	log.Info().
		Str("redis", cacheCfg.Addr).
		Str("nats_url", cfg.JetStreamConfig.URL).
		Str("consumer", cfg.JetStreamConfig.ConsumerName).
		Str("port", port).
		Msg("starting draft gateway")

	r := mux.NewRouter()
	svc.RegisterRoutes(r)
	svc.RegisterStateRoutes(r)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]any{"service": "draft-gateway", "connections": svc.Stats().TotalConnections}
		code := http.StatusOK
		if err := cache.Ping(ctx); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if nc := svc.NATSConn(); nc == nil || !nc.IsConnected() {
			status["nats"] = "disconnected"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           cors.AllowAll().Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("draft gateway exited with error")
		os.Exit(1)
	}
	log.Info().Msg("draft gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
