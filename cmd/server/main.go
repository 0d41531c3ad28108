package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "clinic/docs" // swagger docs

	"clinic/internal/auth"
	"clinic/internal/cache"
	"clinic/internal/config"
	"clinic/internal/db"
	"clinic/internal/handler"
	"clinic/internal/logging"
	"clinic/internal/repository"
	"clinic/internal/router"
	"clinic/internal/service"
)

// @title Clinic API
// @version 1.0
// @description Clinic backend: authentication, role-gated identities, branches, schedules and appointments.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Local development convenience; the environment wins.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			routines, _ := cmd.Flags().GetBool("routines")

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return migrate(cfg, logger, routines)
		},
	}
	cmd.Flags().Bool("routines", false, "Also install stored procedures and functions")
	return cmd
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.UsesInsecureSecret() {
		logger.Warn().Msg("JWT_SECRET is the development default; set it before deploying")
	}
	return cfg, logger, nil
}

func migrate(cfg *config.Config, logger zerolog.Logger, routines bool) error {
	gormDB, err := db.NewMySQL(cfg.DSN(), cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	logger.Info().Int("tables", len(db.Models())).Msg("tables migrated")

	if !routines {
		return nil
	}
	version, err := db.ApplyRoutines(cfg.MigrationDSN())
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Msg("routines installed")
	return nil
}

func newCacheStore(cfg *config.Config, logger zerolog.Logger) (cache.Store, func()) {
	if cfg.CacheBackend == "redis" {
		r := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, logger)
		return r, func() { _ = r.Close() }
	}
	return cache.NewMemory(cfg.CacheTTL), func() {}
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Migrations {
		if err := migrate(cfg, logger, true); err != nil {
			logger.Error().Err(err).Msg("migrations failed")
			return err
		}
	}

	gormDB, err := db.NewMySQL(cfg.DSN(), cfg.LogLevel == "debug")
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	pool := db.NewPool(sqlDB, db.PoolConfig{
		Size:            cfg.DBPoolSize,
		AcquireTimeout:  cfg.DBAcquireTimeout,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	defer pool.Close()
	logger.Info().Int("pool_size", pool.Size()).Msg("connected to database")

	store, closeStore := newCacheStore(cfg, logger)
	defer closeStore()

	exec := db.NewExecutor(pool, logger)

	// Repositories
	userRepo := repository.NewUserRepository(exec)
	branchRepo := repository.NewBranchRepository(exec)
	doctorRepo := repository.NewDoctorRepository(exec)
	appointmentRepo := repository.NewAppointmentRepository(exec)

	// Auth
	gate := auth.NewGate(userRepo, auth.NewSessionStore(exec), auth.NewJWTService(cfg.JWTSecret), cfg.TokenTTL, logger)

	// Services
	authService := service.NewAuthService(userRepo, gate)
	branchService := service.NewBranchService(branchRepo, store)
	doctorService := service.NewDoctorService(userRepo, doctorRepo)
	appointmentService := service.NewAppointmentService(appointmentRepo, logger)

	e := echo.New()
	router.Register(e, cfg, logger, gate, pool, router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Identity:    handler.NewIdentityHandler(),
		Branch:      handler.NewBranchHandler(branchService),
		Doctor:      handler.NewDoctorHandler(doctorService),
		Appointment: handler.NewAppointmentHandler(appointmentService),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server start failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
