package mcp

import (
	"github.com/zasa-35/oura-visualizer/internal/client"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/oura"
)

// DataSource supplies range payloads. *oura.Client talks to the provider
// directly (local mode); *client.Client goes through a running server
// (remote mode, accessed over Tailscale).
type DataSource = dashboard.Fetcher

var (
	_ DataSource = (*oura.Client)(nil)
	_ DataSource = (*client.Client)(nil)
)
