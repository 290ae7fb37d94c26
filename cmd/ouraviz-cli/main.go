package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/zasa-35/oura-visualizer/internal/client"
	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/oura"
	"github.com/zasa-35/oura-visualizer/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "ouraviz server URL (e.g. https://sleep.tail1234.ts.net)")
	configPath := flag.String("config", "", "path to config file; talks to the provider directly instead of a server")
	date := flag.String("date", "", "day to show (YYYY-MM-DD, default today)")
	tz := flag.String("tz", "Local", "timezone for day boundaries when using -server")
	save := flag.Bool("save", false, "store the fetched range as a snapshot")
	asJSON := flag.Bool("json", false, "print derived metrics as JSON")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("ouraviz-cli", Version)
		return
	}

	if (*serverURL == "") == (*configPath == "") {
		fmt.Fprintf(os.Stderr, "Usage: ouraviz-cli (-server <URL> | -config <file>) [-date YYYY-MM-DD] [-save] [-json]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	var (
		fetcher dashboard.Fetcher
		saver   dashboard.SnapshotSaver
		loc     *time.Location
	)
	if *serverURL != "" {
		cli := client.New(*serverURL)
		fetcher, saver = cli, cli
		l, err := config.OuraConfig{Timezone: *tz}.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		loc = l
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
		loc, _ = cfg.Oura.Location()
		fetcher = oura.NewClient(cfg.Oura.BaseURL, cfg.Oura.AccessToken, log)
		store, err := storage.Open(ctx, cfg.Store, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening store: %v\n", err)
			os.Exit(1)
		}
		if store != nil {
			defer store.Close()
			saver = store
		}
	}

	c := dashboard.New(fetcher, saver, loc, log)
	if *date != "" {
		if err := c.SetDate(*date); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := c.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(c.Metrics())
	} else {
		printView(os.Stdout, c.View())
	}

	if *save {
		saved, err := c.SaveSnapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "snapshot %s saved (%s..%s)\n", saved.ID, saved.Start, saved.End)
	}
}

func printView(w io.Writer, v dashboard.View) {
	fmt.Fprintf(w, "%s  (updated %s)\n", v.DateLabel, v.UpdatedAt)
	if !v.HasData {
		fmt.Fprintln(w, "no sleep data for this day")
	}
	fmt.Fprintf(w, "score       %s\n", v.Score)
	fmt.Fprintf(w, "bedtime     %s\n", v.Bedtime)
	fmt.Fprintf(w, "waketime    %s\n", v.Waketime)
	fmt.Fprintf(w, "total       %s\n", v.Total)
	fmt.Fprintf(w, "efficiency  %s\n", v.Efficiency)
	fmt.Fprintf(w, "latency     %s\n", v.Latency)
	for _, s := range v.Stages {
		fmt.Fprintf(w, "%-11s %s\n", s.Name, s.Value)
	}
	if v.AwakeEstimated {
		fmt.Fprintln(w, "(awake time estimated from total minus stages)")
	}
	for _, seg := range v.Bar {
		fmt.Fprintf(w, "  %-6s %5.1f%%\n", seg.Name, seg.Width)
	}
}
