// Package client calls a running ouraviz server over HTTP. It backs the CLI
// and the MCP server in remote mode, where the access token lives only on
// the server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/models"
	"github.com/zasa-35/oura-visualizer/internal/oura"
)

// Client talks to the ouraviz HTTP API.
type Client struct {
	http *resty.Client
}

// New creates a client for the server at serverURL.
func New(serverURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(serverURL, "/")).
			SetTimeout(60 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// FetchRange calls the proxy endpoint. Server errors come back as
// *apperr.Error with the server's status, message and detail.
func (c *Client) FetchRange(ctx context.Context, start, end string) (*models.RangePayload, error) {
	var payload models.RangePayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"start": start, "end": end}).
		SetResult(&payload).
		Get("/api/oura/sleep")
	if err != nil {
		return nil, fmt.Errorf("fetching range %s..%s: %w", start, end, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, decodeError(resp)
	}
	return &payload, nil
}

// Metrics asks the server to refresh and derive the given day.
func (c *Client) Metrics(ctx context.Context, date string) (*models.MetricsReport, error) {
	var report models.MetricsReport
	req := c.http.R().SetContext(ctx).SetResult(&report)
	if date != "" {
		req.SetQueryParam("date", date)
	}
	resp, err := req.Get("/api/v1/metrics")
	if err != nil {
		return nil, fmt.Errorf("fetching metrics: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, decodeError(resp)
	}
	return &report, nil
}

// Save posts a snapshot to the server's store.
func (c *Client) Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error) {
	var saved models.SavedSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(snap).
		SetResult(&saved).
		Post("/api/v1/snapshots")
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, decodeError(resp)
	}
	return &saved, nil
}

func decodeError(resp *resty.Response) error {
	status := resp.StatusCode()
	var body apperr.Body
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Error == "" {
		body = apperr.Body{Error: http.StatusText(status), Detail: strings.TrimSpace(resp.String())}
	}
	return &apperr.Error{Kind: errorKind(status, body.Error), Message: body.Error, Detail: body.Detail, Status: status}
}

// errorKind recovers the server-side kind from the proxy's known messages,
// then from the status.
func errorKind(status int, msg string) apperr.Kind {
	switch msg {
	case oura.MsgMissingToken:
		return apperr.Configuration
	case oura.MsgSleepFailed, oura.MsgDailyFailed:
		return apperr.Upstream
	}
	switch status {
	case http.StatusBadRequest:
		return apperr.Validation
	case http.StatusInternalServerError:
		return apperr.Internal
	}
	return apperr.Upstream
}
