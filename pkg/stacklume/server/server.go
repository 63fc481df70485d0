// Package server wires the storage, services and HTTP routes together and
// runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/stacklume/pkg/stacklume/auth"
	"github.com/mikepea/stacklume/pkg/stacklume/backup"
	"github.com/mikepea/stacklume/pkg/stacklume/config"
	"github.com/mikepea/stacklume/pkg/stacklume/database"
	"github.com/mikepea/stacklume/pkg/stacklume/importexport"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/retry"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// App holds the services built from a configuration.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Backups  *backup.Service
	Importer *importexport.Importer
}

// NewLogger builds the JSON logger used by the server and installs it as the
// default.
func NewLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// Open connects to the configured database, migrates it and builds the
// services.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := database.Connect(cfg.Database.DSN); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db := database.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return New(cfg, db, logger), nil
}

// New builds the services over an open database.
func New(cfg *config.Config, db *gorm.DB, logger *slog.Logger) *App {
	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	policy := retry.Policy{
		Attempts:     cfg.Retry.Attempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Logger:       logger,
	}
	st := store.New(db, policy)

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Backups: backup.NewService(st,
			backup.WithRetentionLimit(cfg.Backup.RetentionLimit),
			backup.WithLogger(logger)),
		Importer: importexport.NewImporter(st, logger),
	}
}

// Router builds the gin engine with every route mounted.
func (a *App) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "stacklume",
			})
		})

		authHandler := auth.NewHandler(a.DB)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware())

		backupHandler := backup.NewHandler(a.Backups)
		backupHandler.RegisterRoutes(protected)

		ioHandler := importexport.NewHandler(a.Importer, a.Backups, a.Config.Backup.MaxImportBytes)
		ioHandler.RegisterRoutes(protected)
	}

	return r
}

// Run serves HTTP and the automatic snapshot scheduler until a shutdown
// signal arrives or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	logger := a.Logger
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := &http.Server{
		Addr:    a.Config.App.HTTP.Address(),
		Handler: a.Router(),
	}
	scheduler := backup.NewScheduler(a.Backups, a.Config.Backup.AutoInterval, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
