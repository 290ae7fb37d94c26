// Package oura talks to the Oura v2 usercollection API on behalf of the
// proxy endpoint. The access token never leaves this process.
package oura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// DefaultBaseURL is the production usercollection endpoint.
const DefaultBaseURL = "https://api.ouraring.com/v2/usercollection"

// Client messages returned to callers of the proxy.
const (
	MsgMissingToken = "Missing OURA token"
	MsgMissingRange = "start/end query required (YYYY-MM-DD)"
	MsgSleepFailed  = "Sleep fetch failed"
	MsgDailyFailed  = "Daily sleep fetch failed"
)

// Client fetches sleep collections with a bearer token.
type Client struct {
	http       *resty.Client
	configured bool
	log        *slog.Logger
}

// NewClient creates a client for baseURL. An empty token is accepted; every
// fetch then fails with a configuration error.
func NewClient(baseURL, token string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if token != "" {
		h.SetAuthToken(token)
	}
	return &Client{http: h, configured: token != "", log: log}
}

// Configured reports whether an access token was supplied.
func (c *Client) Configured() bool {
	return c.configured
}

// ValidateRange checks the start/end query values: both present, both
// YYYY-MM-DD, start not after end.
func ValidateRange(start, end string) error {
	if start == "" || end == "" {
		return apperr.NewValidation(MsgMissingRange)
	}
	s, err := time.Parse(models.DayLayout, start)
	if err != nil {
		return &apperr.Error{Kind: apperr.Validation, Message: MsgMissingRange, Detail: fmt.Sprintf("invalid start %q", start)}
	}
	e, err := time.Parse(models.DayLayout, end)
	if err != nil {
		return &apperr.Error{Kind: apperr.Validation, Message: MsgMissingRange, Detail: fmt.Sprintf("invalid end %q", end)}
	}
	if s.After(e) {
		return &apperr.Error{Kind: apperr.Validation, Message: "start must not be after end", Detail: start + " > " + end}
	}
	return nil
}

type fetchResult struct {
	status int
	body   []byte
}

// FetchRange fetches /sleep and /daily_sleep for [start, end] concurrently
// and returns both bodies verbatim. Both requests are awaited before either
// result is inspected; a sleep failure is reported ahead of a daily one.
func (c *Client) FetchRange(ctx context.Context, start, end string) (*models.RangePayload, error) {
	if !c.configured {
		return nil, apperr.NewConfiguration(MsgMissingToken)
	}
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	// Neither request cancels the other.
	var sleep, daily fetchResult
	var g errgroup.Group
	g.Go(func() (err error) {
		sleep, err = c.get(ctx, "/sleep", start, end)
		return err
	})
	g.Go(func() (err error) {
		daily, err = c.get(ctx, "/daily_sleep", start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		c.log.Error("oura request failed", "start", start, "end", end, "error", err)
		return nil, apperr.NewInternal(err)
	}
	if err := check(MsgSleepFailed, sleep); err != nil {
		c.log.Warn("oura sleep fetch failed", "status", sleep.status)
		return nil, err
	}
	if err := check(MsgDailyFailed, daily); err != nil {
		c.log.Warn("oura daily_sleep fetch failed", "status", daily.status)
		return nil, err
	}

	if !json.Valid(sleep.body) {
		return nil, apperr.NewInternal(errors.New("sleep response is not valid JSON"))
	}
	if !json.Valid(daily.body) {
		return nil, apperr.NewInternal(errors.New("daily_sleep response is not valid JSON"))
	}

	c.log.Debug("oura range fetched", "start", start, "end", end,
		"sleep_bytes", len(sleep.body), "daily_bytes", len(daily.body))
	return &models.RangePayload{Sleep: sleep.body, Daily: daily.body}, nil
}

func (c *Client) get(ctx context.Context, path, start, end string) (fetchResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start_date": start,
			"end_date":   end,
		}).
		Get(path)
	if err != nil {
		return fetchResult{}, fmt.Errorf("GET %s: %w", path, err)
	}
	return fetchResult{status: resp.StatusCode(), body: resp.Body()}, nil
}

func check(msg string, r fetchResult) error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	return apperr.NewUpstream(msg, r.status, string(r.body))
}
