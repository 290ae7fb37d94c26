package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/models"
	"github.com/zasa-35/oura-visualizer/internal/oura"
)

// --- Tool definitions ---

var toolGetSleepMetrics = mcp.NewTool("get_sleep_metrics",
	mcp.WithDescription("Derived metrics for one night: score, efficiency (%), latency (min), bedtime/waketime, total/REM/light/deep/awake hours and the stage distribution. The night is the longest sleep session starting or ending within six hours of the calendar day."),
	mcp.WithString("date", mcp.Description("Calendar day (YYYY-MM-DD). Defaults to today.")),
)

var toolGetSleepRange = mcp.NewTool("get_sleep_range",
	mcp.WithDescription("Raw Oura sleep and daily_sleep collections for a date range, exactly as the provider returned them."),
	mcp.WithString("start", mcp.Required(), mcp.Description("Start date (YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Required(), mcp.Description("End date (YYYY-MM-DD), inclusive")),
)

// --- Tool handlers ---

func (h *handlers) getSleepMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := req.GetString("date", "")
	if day == "" {
		day = h.now().In(h.loc).Format(models.DayLayout)
	}

	report, err := h.dayReport(ctx, day)
	if err != nil {
		h.log.Error("mcp get_sleep_metrics", "date", day, "error", err)
		return mcp.NewToolResultError(toolError(err)), nil
	}

	result, err := mcp.NewToolResultJSON(report)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSleepRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError("start parameter is required"), nil
	}
	end, err := req.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError("end parameter is required"), nil
	}
	if err := oura.ValidateRange(start, end); err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}

	payload, err := h.ds.FetchRange(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_sleep_range", "start", start, "end", end, "error", err)
		return mcp.NewToolResultError(toolError(err)), nil
	}

	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// dayReport drives a fresh controller for day, the same way the dashboard
// page does, and reports what it derived.
func (h *handlers) dayReport(ctx context.Context, day string) (*models.MetricsReport, error) {
	c := dashboard.New(h.ds, nil, h.loc, h.log)
	if err := c.SetDate(day); err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	start, end := c.Range()
	return &models.MetricsReport{
		Date:      day,
		Start:     start,
		End:       end,
		Metrics:   c.Metrics(),
		UpdatedAt: c.UpdatedAt(),
	}, nil
}

func toolError(err error) string {
	e := apperr.As(err)
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}
