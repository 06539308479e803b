package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/mcdev12/timekeeper/go/internal/api"
	"github.com/mcdev12/timekeeper/go/internal/config"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	router := api.NewRouter(api.Config{
		Users:         services.Users,
		Sessions:      services.Sessions,
		Timers:        services.Timers,
		Gateway:       services.Gateway,
		Health:        healthChecks(services),
		Metrics:       promhttp.HandlerFor(services.Metrics, promhttp.HandlerOpts{}),
		AuthLimiter:   api.NewIPRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst),
		APILimiter:    api.NewIPRateLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst),
		SecureCookies: cfg.SecureCookies,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(c.Handler(router), &http2.Server{}),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

func healthChecks(services *Services) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{
		"postgres": services.Pool,
	}
	if services.Redis != nil {
		checks["redis"] = api.HealthCheckFunc(func(ctx context.Context) error {
			return services.Redis.Ping(ctx).Err()
		})
	}
	if services.NATS != nil {
		checks["nats"] = api.HealthCheckFunc(func(context.Context) error {
			if services.NATS.Status() != nats.CONNECTED {
				return errors.New(services.NATS.Status().String())
			}
			return nil
		})
	}
	return checks
}
