package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
// Days are interpreted in loc.
func New(ds DataSource, loc *time.Location, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("ouraviz", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Oura sleep data. Query derived nightly metrics (score, efficiency, latency, stage hours and distribution) for a day, or the raw sleep and daily_sleep collections for a date range."),
	)

	h := newHandlers(ds, loc, log)

	s.AddTools(
		server.ServerTool{Tool: toolGetSleepMetrics, Handler: h.getSleepMetrics},
		server.ServerTool{Tool: toolGetSleepRange, Handler: h.getSleepRange},
	)
	s.AddResources(
		server.ServerResource{Resource: resToday, Handler: h.today},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	loc *time.Location
	log *slog.Logger
	now func() time.Time
}

func newHandlers(ds DataSource, loc *time.Location, log *slog.Logger) *handlers {
	if loc == nil {
		loc = time.Local
	}
	return &handlers{ds: ds, loc: loc, log: log, now: time.Now}
}

var resToday = mcp.NewResource(
	"ouraviz://today",
	"Last Night",
	mcp.WithResourceDescription("Derived sleep metrics for today's date: the night that ended this morning"),
	mcp.WithMIMEType("application/json"),
)
