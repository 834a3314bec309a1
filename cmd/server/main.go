package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/bizreg-assistant/internal/adapter/store"
	"github.com/arturoeanton/bizreg-assistant/internal/bootstrap"
	"github.com/arturoeanton/bizreg-assistant/internal/handler"
	"github.com/arturoeanton/bizreg-assistant/internal/mcp"
	"github.com/arturoeanton/bizreg-assistant/internal/middleware"
	"github.com/arturoeanton/bizreg-assistant/pkg/config"
	"github.com/arturoeanton/bizreg-assistant/pkg/logging"

	_ "github.com/lib/pq"
)

// auditBackend is satisfied by both audit stores.
type auditBackend interface {
	middleware.AuditWriter
	handler.AuditReader
}

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// run serves until the listener stops. Resources opened here are released
// before it returns.
func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("starting assistant",
		"port", cfg.Port,
		"provider", cfg.AIProvider,
		"knowledge_dir", cfg.KnowledgeDir,
		"database", cfg.DSN(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	core, err := bootstrap.NewCore(cfg)
	if err != nil {
		return fmt.Errorf("initialise assistant: %w", err)
	}

	// ── Audit store ──────────────────────────────────────────────────────
	var audit auditBackend = store.NewLogAuditWriter(logger)
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer func() {
			if err := pgStore.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
		audit = pgStore
	}

	// ── Knowledge index ──────────────────────────────────────────────────
	// Queries are served from the first moment; they get guidance until
	// the build completes.
	if err := core.Indexes.Start(context.Background()); err != nil {
		slog.Error("failed to start index build", "error", err)
	}

	app := newApp(cfg, core, audit)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(core.Assistant, core.Indexes, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Shutdown ─────────────────────────────────────────────────────────
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sig:
			slog.Info("shutting down")
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
		case <-done:
		}
	}()

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("fiber listening", "port", cfg.Port)
	return app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
}

// newApp builds the fiber application with middleware and routes.
func newApp(cfg *config.Config, core *bootstrap.Core, audit auditBackend) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	jwtCfg := middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
	}
	// Optional auth runs first so the audit record carries the user id.
	app.Use(middleware.OptionalAuth(jwtCfg))
	app.Use(middleware.AuditMiddleware(audit))

	api := app.Group("/api/v1")

	api.Get("/health", func(c fiber.Ctx) error {
		st := core.Indexes.Status()
		return c.JSON(fiber.Map{
			"status":      "healthy",
			"app":         cfg.AppName,
			"version":     "1.0.0",
			"model":       core.Provider.ModelName(),
			"index_state": st.State,
		})
	})

	adminOnly := middleware.RequireAdmin(cfg.AdminToken)

	handler.NewAssistantHandler(core.Assistant).Register(api)
	handler.NewIndexHandler(core.Indexes, adminOnly).Register(api)
	handler.NewAuditHandler(audit).Register(api, adminOnly)

	return app
}
