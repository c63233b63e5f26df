package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shrtnr/shrtnr/internal/auth"
	"github.com/shrtnr/shrtnr/internal/db"
	"github.com/shrtnr/shrtnr/internal/handler"
	"github.com/shrtnr/shrtnr/internal/redirect"
	"github.com/shrtnr/shrtnr/internal/repo"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type Config struct {
	Host               string
	Port               string
	DBPath             string
	Hostname           string
	PSK                string
	BypassAuth         bool
	TrustedProxyHops   int
	SlackSigningSecret string
	LogLevel           string
	Debug              bool
}

func newConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Host:               cmp.Or(os.Getenv("HOST"), "localhost"),
		Port:               cmp.Or(os.Getenv("PORT"), "8080"),
		DBPath:             cmp.Or(os.Getenv("DB_PATH"), "shrtnr.db"),
		Hostname:           cmp.Or(os.Getenv("HOSTNAME"), "localhost:8080"),
		PSK:                os.Getenv("PRIVATE_SHARED_KEY"),
		BypassAuth:         os.Getenv("BYPASS_AUTH") == "1",
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		LogLevel:           cmp.Or(os.Getenv("LOG_LEVEL"), "info"),
		Debug:              os.Getenv("DEBUG") == "1",
	}

	if raw := os.Getenv("TRUSTED_PROXY_HOPS"); raw != "" {
		hops, err := strconv.Atoi(raw)
		if err != nil || hops < 0 {
			return Config{}, fmt.Errorf("invalid TRUSTED_PROXY_HOPS %q", raw)
		}
		cfg.TrustedProxyHops = hops
	}

	if cfg.PSK == "" && !cfg.BypassAuth {
		log.Warn().Msg("no PRIVATE_SHARED_KEY set - all writes will be rejected")
	}

	return cfg, nil
}

func main() {
	cfg, err := newConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("failed to parse log level")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	dbInstance, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbInstance.Close()

	e := echo.New()
	defer e.Close()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	linksRepo := repo.NewLinksRepo(dbInstance)
	clicksRepo := repo.NewClicksRepo(dbInstance)
	recorder := redirect.NewRecorder(clicksRepo, cfg.TrustedProxyHops)
	resolver := redirect.NewResolver(linksRepo, recorder)

	linkHandler := handler.NewLinkHandler(linksRepo, clicksRepo, resolver, cfg.Hostname)
	slackHandler := handler.NewSlackHandler(linksRepo, cfg.SlackSigningSecret)

	writeGuard := auth.NewPSKMiddleware(cfg.PSK, cfg.BypassAuth)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api", auth.RequirePSK(cfg.PSK, cfg.BypassAuth))
	api.GET("/links", linkHandler.ListLinks)

	// Slack requests carry their own signature; the PSK guard does not
	// apply here.
	e.POST("/_slack/command", slackHandler.Command)

	e.POST("/", linkHandler.CreateLink, writeGuard)

	// Parameterized routes (must be last)
	e.GET("/:code", linkHandler.Redirect)
	e.PUT("/:code", linkHandler.UpdateLink, writeGuard)
	e.DELETE("/:code", linkHandler.DeleteLink, writeGuard)
	e.GET("/:code/:parameter", linkHandler.Redirect)

	log.Info().Str("port", cfg.Port).Msg("server starting")

	runServer(ctx, e, cfg.Port)

	return nil
}

func runServer(ctx context.Context, e *echo.Echo, port string) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + port)
	}()

	<-ctx.Done()

	log.Info().Msg("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}

func customErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	log.Error().
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Response().Committed {
		return
	}

	c.JSON(code, map[string]any{
		"error": message,
	})
}
