package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"taskchat/internal/auth"
	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/internal/handlers"
	"taskchat/internal/metrics"
	"taskchat/internal/retention"
	"taskchat/internal/services"
	"taskchat/internal/websocket"
	"taskchat/pkg/logger"

	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if runMigrations && !cfg.Database.InMemory() {
				if err := database.MigrateUp(cfg.Database.URL); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	// Initialize database
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize realtime core
	registry := websocket.NewRegistry()
	router := websocket.NewRouter(registry, db)
	monitor := websocket.NewMonitor(registry, cfg.Realtime.PingInterval)

	// Initialize services
	authService := auth.NewService(db, cfg.JWT)
	notificationService := services.NewNotificationService(db, registry)
	taskService := services.NewTaskService(db, notificationService)
	messageService := services.NewMessageService(db)

	sweeper := retention.NewSweeper(notificationService, cfg.Retention)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	routes := &handlers.Routes{
		Auth:          handlers.NewAuthHandlers(authService),
		Notifications: handlers.NewNotificationHandlers(notificationService),
		Messages:      handlers.NewMessageHandlers(messageService),
		Tasks:         handlers.NewTaskHandlers(taskService),
		WebSocket:     handlers.NewWebSocketHandlers(authService, registry, router, authService.CookieName(), cfg.Server.CORSOrigin, cfg.Realtime),
		Authenticator: authService,
		Registry:      registry,
		Store:         db,
		Metrics:       metrics.Handler(),
		CORSOrigin:    cfg.Server.CORSOrigin,
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      routes.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	go monitor.Run(monitorCtx)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	for _, endpoint := range handlers.Endpoints() {
		logger.Debug("   %s", endpoint)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	cancelMonitor()
	registry.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
		return err
	}
	return nil
}
