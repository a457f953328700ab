package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	gateway "github.com/awakeconnect/awake/apigateway"
	"github.com/awakeconnect/awake/cache"
	"github.com/awakeconnect/awake/dashboard"
	"github.com/awakeconnect/awake/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on http_addr (default :8080).

Migrations are applied before the listener starts. The server refuses to
start without a valid JWT_SECRET.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// engineDeps is everything GetMainEngine wires into routes.
type engineDeps struct {
	Store    *store.Store
	Cache    *cache.Cache
	Auth     *gateway.JWTAuth
	Registry *prometheus.Registry
}

// GetMainEngine builds the fiber app with every route awake serves.
func GetMainEngine(deps engineDeps) (*fiber.App, error) {
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	instrument, err := gateway.Instrumentation(registry)
	if err != nil {
		return nil, err
	}

	dashService := &dashboard.Service{
		Store:     deps.Store,
		Cache:     deps.Cache,
		Logger:    logrusLogger,
		StatsTTL:  awakeConfig.CacheTTL(),
		StartedAt: time.Now(),
	}

	route := fiber.New(fiber.Config{DisableStartupMessage: true})
	route.Use(gateway.OptionsMiddleware)
	route.Use(gateway.RequestID())
	route.Use(gateway.RequestLogger(logrusLogger, logSampling))
	route.Use(instrument)

	route.Get("/health", dashService.Health)
	route.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := route.Group("/api")
	{
		api.Get("/statistics", dashService.Statistics)

		admin := api.Group("/admin", deps.Auth.RequireAuth(deps.Store), gateway.RequireAdminOrSuperAdmin())
		admin.Get("/counts", dashService.AdminCounts)
	}
	return route, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	auth, err := gateway.New(awakeConfig.JWTSecret)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancelMigrate()
	if err := store.Migrate(migrateCtx, s.DB); err != nil {
		return err
	}

	c := cache.New(cache.Options{Enabled: awakeConfig.EnableRedis, URL: awakeConfig.RedisURL}, logrusLogger)
	defer c.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := GetMainEngine(engineDeps{Store: s, Cache: c, Auth: auth, Registry: registry})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrusLogger.WithField("addr", awakeConfig.HTTPAddr).Info("awake api listening")
		errCh <- app.Listen(awakeConfig.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logrusLogger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	}
}
