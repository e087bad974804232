package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zackees/vids-db/app/api"
	"github.com/zackees/vids-db/app/cfg"
	"github.com/zackees/vids-db/app/config"
	"github.com/zackees/vids-db/app/videodb"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Vids DB server", "version", appCfg.Version)

	db, err := videodb.New(appCfg.DataDir)
	if err != nil {
		slog.Error("Failed to open video database", "data_dir", appCfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Video database opened", "data_dir", appCfg.DataDir)

	policy, err := config.LoadChannelPolicy(appCfg.ChannelsFile)
	if err != nil {
		slog.Error("Failed to load channel policy", "file", appCfg.ChannelsFile, "error", err)
		os.Exit(1)
	}
	if appCfg.ChannelsFile != "" {
		slog.Info("Channel policy loaded", "file", appCfg.ChannelsFile,
			"allow", len(policy.Allow), "block", len(policy.Block))
	}

	apiHandler := api.NewHandler(db, policy)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Vids DB server shutdown complete")
}
