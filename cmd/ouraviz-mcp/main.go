package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/mark3labs/mcp-go/server"

	"github.com/zasa-35/oura-visualizer/internal/client"
	"github.com/zasa-35/oura-visualizer/internal/config"
	ouramcp "github.com/zasa-35/oura-visualizer/internal/mcp"
	"github.com/zasa-35/oura-visualizer/internal/oura"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "ouraviz server URL; when set, data is read through the server")
	configPath := flag.String("config", "config.yaml", "path to config file (direct provider access)")
	tz := flag.String("tz", "Local", "timezone for day boundaries when using -server")
	flag.Parse()

	// stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var (
		ds  ouramcp.DataSource
		loc *time.Location
		err error
	)
	if *serverURL != "" {
		ds = client.New(*serverURL)
		loc, err = config.OuraConfig{Timezone: *tz}.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Info("mcp using remote server", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		loc, _ = cfg.Oura.Location()
		ds = oura.NewClient(cfg.Oura.BaseURL, cfg.Oura.AccessToken, log)
	}

	s := ouramcp.New(ds, loc, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
