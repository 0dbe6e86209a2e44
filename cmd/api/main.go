package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anime-shed/misinfo-inspector-go/internal/config"
	"github.com/anime-shed/misinfo-inspector-go/internal/container"
	"github.com/anime-shed/misinfo-inspector-go/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup structured logging
	logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	gin.SetMode(cfg.Server.Mode)

	// Initialize dependency injection container
	c, err := container.NewContainer(context.Background(), cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	// Create HTTP server. A zero REQUEST_TIMEOUT leaves reads and writes
	// unbounded; otherwise the write timeout leaves room for the error reply.
	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.RequestTimeout > 0 {
		server.ReadTimeout = cfg.Server.RequestTimeout
		server.WriteTimeout = cfg.Server.RequestTimeout + 5*time.Second
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.ServerAddress(),
			"timeout": cfg.Server.RequestTimeout,
			"backend": cfg.Upload.Backend,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
