package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/merchforge/merchauth"
	"github.com/merchforge/merchauth/api"
	"github.com/merchforge/merchauth/config"
	"github.com/merchforge/merchauth/logger"
	"github.com/merchforge/merchauth/persistence"
	"github.com/merchforge/merchauth/provider"
	"github.com/merchforge/merchauth/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting MerchAuth",
		zap.Int("port", cfg.Port),
		zap.String("db_type", cfg.DBType),
	)

	repo, err := persistence.NewStorage(cfg.DBType, cfg.DSN, !cfg.SkipAutoMigrate)
	if err != nil {
		logger.Log.Fatal("failed to initialize storage", zap.Error(err))
	}

	// A partially configured provider is fatal; only the fully-unset case
	// falls back to local sessions.
	client, err := provider.FromConfig(cfg.ProviderURL, cfg.ProviderKey)
	if err != nil {
		logger.Log.Fatal("identity provider misconfigured", zap.Error(err))
	}
	if client == nil {
		logger.Log.Info("no identity provider configured, using local sessions")
	}

	flows := merchauth.NewDefaultManager(repo.DB(), client)
	issuer := session.NewIssuer(cfg.CookieSecure)

	h := api.NewHandler(flows, issuer, repo)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Log.Info("request",
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(api.NewGuard().Middleware())

	g := e.Group("/api/v1")
	h.RegisterRoutes(g)
	e.GET("/healthz", api.Health(repo.DB()))

	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}
