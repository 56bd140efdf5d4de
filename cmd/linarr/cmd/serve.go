package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/linarr/linarr/internal/config"
	"github.com/linarr/linarr/internal/database"
	"github.com/linarr/linarr/internal/engine"
	internalhttp "github.com/linarr/linarr/internal/http"
	"github.com/linarr/linarr/internal/http/handlers"
	"github.com/linarr/linarr/internal/repository"
	"github.com/linarr/linarr/internal/scheduler"
	"github.com/linarr/linarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the linarr server",
	Long: `Start the linarr HTTP server and API.

The server provides:
- REST API for managing tenants, rules, friends, and tags
- Message evaluation endpoint for inbound LINE webhook dispatch
- Response log queries and statistics
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database-dsn", "linarr.db", "Database DSN (file path for sqlite)")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database-dsn"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Initialize database and apply migrations
	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db.DB)
	ruleRepo := repository.NewRuleRepository(db.DB)
	friendRepo := repository.NewFriendRepository(db.DB)
	tagRepo := repository.NewTagRepository(db.DB)
	counterRepo := repository.NewTriggerCounterRepository(db.DB)
	logRepo := repository.NewResponseLogRepository(db.DB)

	// Initialize rule engine
	eng := engine.New(ruleRepo, friendRepo, counterRepo, logRepo, engine.Config{
		MaxPatternLength: cfg.Engine.MaxPatternLength,
		MaxMessageLength: cfg.Engine.MaxMessageLength,
	}).WithLogger(logger)

	// Initialize HTTP server
	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,

		CORSOrigins:          cfg.Server.CORSOrigins,
		CORSAllowCredentials: cfg.Server.CORSAllowCredentials,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	// Register handlers
	handlers.NewHealthHandler(db, logger).Register(server.API())
	handlers.NewSystemHandler(db).Register(server.API())
	handlers.NewTenantHandler(tenantRepo).Register(server.API())
	handlers.NewRuleHandler(ruleRepo, eng).Register(server.API())
	handlers.NewFriendHandler(friendRepo, tagRepo).Register(server.API())
	handlers.NewTagHandler(tagRepo).Register(server.API())
	handlers.NewMessageHandler(eng, friendRepo).Register(server.API())
	handlers.NewResponseLogHandler(logRepo).Register(server.API())

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	// Start retention scheduler
	if cfg.Retention.Enabled {
		sweeper, err := scheduler.New(logRepo, counterRepo, scheduler.Config{
			Cron:            cfg.Retention.Cron,
			ResponseLogDays: cfg.Retention.ResponseLogDays,
		})
		if err != nil {
			return fmt.Errorf("initializing retention scheduler: %w", err)
		}
		sweeper = sweeper.WithLogger(logger)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("starting retention scheduler: %w", err)
		}
		defer sweeper.Stop()
	}

	logger.Info("starting linarr server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
