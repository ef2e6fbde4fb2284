package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"lifequest-api/config"
	"lifequest-api/database"
	"lifequest-api/handlers"
	"lifequest-api/logger"
	"lifequest-api/middleware"
	"lifequest-api/services"
	"lifequest-api/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		logg.Fatal("failed to migrate database", "error", err)
	}

	opts := services.Options{
		LevelStep:   cfg.XP.LevelStep,
		StatCurve:   services.CurveName(cfg.XP.StatCurve),
		FamilyCurve: services.CurveName(cfg.XP.FamilyCurve),
		AuditRepair: cfg.XP.AuditRepair,
	}
	if cfg.ObjectStore.Enabled() {
		store, err := utils.NewR2Store(ctx, cfg.ObjectStore)
		if err != nil {
			logg.Fatal("failed to initialize R2 client", "error", err)
		}
		opts.ObjectStore = store
	} else {
		logg.Warn("object store not configured, ledger export disabled")
	}

	svc, err := services.New(db, logg, opts)
	if err != nil {
		logg.Fatal("failed to build services", "error", err)
	}

	sched, err := svc.Auditor.StartAuditScheduler(cfg.XP.AuditInterval)
	if err != nil {
		logg.Fatal("failed to start audit scheduler", "error", err)
	}
	defer func() { _ = sched.Shutdown() }()

	app := fiber.New(fiber.Config{
		AppName:      "lifequest-api",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())

	// All requests must come from the Gateway.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, logg))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupRoutes(app, handlers.New(svc, logg))

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Error("server error", "error", err)
			stop()
		}
	}()

	logg.Info("server running",
		"port", cfg.Port,
		"env", cfg.Env,
		"stat_curve", cfg.XP.StatCurve,
		"family_curve", cfg.XP.FamilyCurve,
		"audit_interval", cfg.XP.AuditInterval.String(),
		"origins", cfg.AllowedOrigins)

	<-ctx.Done()
	logg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error("shutdown error", "error", err)
	}
}
