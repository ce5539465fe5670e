package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/config"
	"github.com/netseek/netseek/internal/event"
	"github.com/netseek/netseek/internal/instances"
	"github.com/netseek/netseek/internal/metrics"
	"github.com/netseek/netseek/internal/registry"
	"github.com/netseek/netseek/internal/server"
	"github.com/netseek/netseek/internal/store"
	"github.com/netseek/netseek/internal/sweep"
	"github.com/netseek/netseek/internal/watch"
	"github.com/netseek/netseek/internal/ws"
	"github.com/netseek/netseek/pkg/plugin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NetSeek server",
	Long:  `Run the NetSeek HTTP server with all modules: subnet sweep, instance watch, saved-instance store, and the WebSocket event feed.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("NetSeek server starting")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return err
	}

	db, err := store.Open(cfg.GetString("store.path"))
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return err
	}
	defer db.Close()

	bus := event.NewBus(logger.Named("bus"))
	m := metrics.New()

	instancesModule := instances.New(db, bus)
	watchModule := watch.New(bus, func() watch.Source {
		return instancesModule.Repository()
	})

	reg := registry.New(logger)
	for _, mod := range []plugin.Module{
		sweep.New(bus, m),
		instancesModule,
		watchModule,
		ws.New(bus),
	} {
		if err := reg.Register(mod); err != nil {
			logger.Error("failed to register module", zap.Error(err))
			return err
		}
	}

	if err := reg.InitAll(cfg); err != nil {
		logger.Error("failed to initialize modules", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.StartAll(ctx); err != nil {
		logger.Error("failed to start modules", zap.Error(err))
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.GetString("server.host"), cfg.GetInt("server.port"))
	srv := server.New(addr, reg, m.Handler(), logger.Named("server"))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("NetSeek server ready", zap.String("addr", addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	reg.StopAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("NetSeek server stopped")
	return nil
}
