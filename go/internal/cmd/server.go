package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	r := mux.NewRouter()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(r, services)
	setupHealthCheck(r, services)

	handler := c.Handler(r)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerServices(r *mux.Router, services *Services) {
	services.Draft.RegisterRoutes(r)
	services.Gateway.RegisterRoutes(r)
}

func setupHealthCheck(r *mux.Router, services *Services) {
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]any{
			"status":      "ok",
			"connections": services.Gateway.Stats().TotalConnections,
		}
		code := http.StatusOK
		if services.Database != nil {
			if err := services.Database.PingContext(ctx); err != nil {
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if services.Cache != nil {
			if err := services.Cache.Ping(ctx); err != nil {
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if nc := services.Gateway.NATSConn(); nc != nil && !nc.IsConnected() {
			status["nats"] = "disconnected"
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	}).Methods(http.MethodGet)
}
