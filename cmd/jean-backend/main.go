package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/agent/discovery"
	"github.com/ninedotdev/jean/internal/chat/api"
	"github.com/ninedotdev/jean/internal/chat/service"
	"github.com/ninedotdev/jean/internal/common/config"
	"github.com/ninedotdev/jean/internal/common/logger"
	"github.com/ninedotdev/jean/internal/events/bus"
	"github.com/ninedotdev/jean/internal/gateway/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting Jean backend...")

	// 3. Connect the event bus. NATS when configured, in-memory otherwise
	// (the desktop app runs everything in one process).
	var eventBus bus.EventBus
	if cfg.NATS.URL != "" {
		natsBus, err := bus.NewNATSEventBus(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		eventBus = natsBus
		log.Info("Connected to NATS event bus", zap.String("url", cfg.NATS.URL))
	} else {
		eventBus = bus.NewMemoryEventBus(log)
		log.Info("Using in-memory event bus")
	}
	defer eventBus.Close()

	// 4. Initialize CLI discovery
	resolver := discovery.NewResolver(cfg.Chat.Binaries, log)

	// 5. Initialize chat service
	svc := service.New(cfg.Chat, resolver, eventBus, log)

	// 6. Start the WebSocket gateway
	gateway := websocket.New(eventBus, log)
	if err := gateway.Start(); err != nil {
		log.Fatal("Failed to start WebSocket gateway", zap.Error(err))
	}

	// 7. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 8. Register API routes
	v1 := router.Group("/api/v1")
	api.SetupRoutes(v1, svc, resolver, log)
	router.GET("/ws", gateway.Handle)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 9. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// 10. Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Jean backend...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	gateway.Stop()

	// Detached processes survive a backend restart; Stop only waits for
	// the in-flight run loops to reach a terminal state.
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error("Chat service stop error", zap.Error(err))
	}

	log.Info("Jean backend stopped")
}
