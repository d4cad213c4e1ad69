package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/streamd/internal/logger"
	"github.com/marmos91/streamd/pkg/config"
	"github.com/marmos91/streamd/pkg/dispatch"
	"github.com/marmos91/streamd/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	port := flag.Int("port", 0, "Override the listening port")
	logLevel := flag.String("log-level", "", "Override the log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.WriteDefault(path); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags take precedence over file and environment values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	fmt.Println("streamd - TCP connection dispatcher")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var dispatchMetrics metrics.DispatchMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		dispatchMetrics = metrics.NewDispatchMetrics()

		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	handler, err := config.CreateHandler(&cfg.Handler)
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}

	// Log server configuration
	logger.Info("Server configuration:")
	logger.Info("  Port: %d", cfg.Server.Port)
	logger.Info("  Backlog: %d", cfg.Server.Backlog)
	logger.Info("  Pool size: %d", cfg.Server.PoolSize)
	if cfg.Server.AcceptRate > 0 {
		logger.Info("  Accept rate: %d/s (burst %d)", cfg.Server.AcceptRate, cfg.Server.AcceptBurst)
	} else {
		logger.Info("  Accept rate: unlimited")
	}
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	logger.Info("  Handler: %s", cfg.Handler.Type)

	srv, err := dispatch.New(cfg.Server, handler, nil, dispatchMetrics)
	if err != nil {
		log.Fatalf("Failed to start dispatch server: %v", err)
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", srv.Addr())

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
		<-serverDone

		if err := srv.Close(context.Background()); err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil && err != dispatch.ErrServerClosed {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
