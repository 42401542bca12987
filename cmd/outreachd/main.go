package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chbs/lead-outreach/internal/api"
	"github.com/chbs/lead-outreach/internal/config"
	"github.com/chbs/lead-outreach/internal/core"
	"github.com/chbs/lead-outreach/internal/di"
	"github.com/chbs/lead-outreach/internal/factory"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	svc *core.OutreachService,
	backend factory.Backend,
) error {
	defer logger.Sync()

	server := api.NewServer(svc, backend, cfg.GetString("server.listen_address"), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
	case <-sigCh:
		logger.Info("Shutting down...")
		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop server", zap.Error(err))
		}
	}

	// Close the store if it holds a connection
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
