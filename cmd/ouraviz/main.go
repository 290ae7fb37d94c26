package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/oura"
	"github.com/zasa-35/oura-visualizer/internal/server"
	"github.com/zasa-35/oura-visualizer/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run postgres migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("ouraviz starting", "version", Version)

	if *migrateOnly {
		if cfg.Store.Backend != config.BackendPostgres {
			log.Error("migrate-only needs store.backend postgres", "backend", cfg.Store.Backend)
			os.Exit(1)
		}
		if err := storage.RunMigrations(cfg.Store.Postgres.DSN()); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	loc, err := cfg.Oura.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	ouraClient := oura.NewClient(cfg.Oura.BaseURL, cfg.Oura.AccessToken, log)
	if !ouraClient.Configured() {
		log.Warn("no access token configured; proxy requests will fail until OURA_PERSONAL_ACCESS_TOKEN is set")
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Error("failed to open snapshot store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	var saver dashboard.SnapshotSaver
	if store != nil {
		defer store.Close()
		saver = store
		log.Info("snapshot store ready", "backend", cfg.Store.Backend)
	}

	srv := server.New(ouraClient, saver, loc, log)

	// Listen on the tailnet or plain TCP.
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "timezone", loc.String())
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
