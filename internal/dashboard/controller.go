// Package dashboard holds the transient state behind the dashboard: the
// selected day, the last range response and the derived metrics for it.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
	"github.com/zasa-35/oura-visualizer/internal/metrics"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

var (
	// ErrBusy is returned by Refresh while another refresh is in flight.
	ErrBusy = errors.New("refresh already in progress")
	// ErrNothingToSave means no range response has been fetched yet.
	ErrNothingToSave = errors.New("nothing to save: refresh first")
	// ErrNoStore means no snapshot store is configured.
	ErrNoStore = errors.New("snapshot store not configured")
)

// Fetcher returns the combined sleep/daily_sleep payload for a range.
// Implemented by oura.Client (in process) and client.Client (over HTTP).
type Fetcher interface {
	FetchRange(ctx context.Context, start, end string) (*models.RangePayload, error)
}

// SnapshotSaver appends a snapshot and returns the stored record.
type SnapshotSaver interface {
	Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error)
}

type deriveFunc func(resp *models.RangeResponse, day string, loc *time.Location) models.DayMetrics

// Controller is safe for concurrent use.
type Controller struct {
	fetcher Fetcher
	saver   SnapshotSaver
	loc     *time.Location
	log     *slog.Logger
	now     func() time.Time
	derive  deriveFunc

	mu         sync.Mutex
	date       string
	start, end string
	payload    *models.RangePayload
	resp       *models.RangeResponse
	loading    bool
	updatedAt  time.Time
	lastErr    error

	memo     *models.DayMetrics
	memoResp *models.RangeResponse
	memoDate string
}

// New creates a controller with today (in loc) selected. saver may be nil.
func New(fetcher Fetcher, saver SnapshotSaver, loc *time.Location, log *slog.Logger) *Controller {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		fetcher: fetcher,
		saver:   saver,
		loc:     loc,
		log:     log,
		now:     time.Now,
		derive:  metrics.ForDay,
	}
	c.date = c.now().In(loc).Format(models.DayLayout)
	return c
}

// Date returns the selected day.
func (c *Controller) Date() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// SetDate selects a day. The fetched data is kept; metrics are re-derived
// for the new day on next access.
func (c *Controller) SetDate(day string) error {
	if _, err := metrics.ParseDay(day, c.loc); err != nil {
		return apperr.NewValidation(err.Error())
	}
	c.mu.Lock()
	c.date = day
	c.mu.Unlock()
	return nil
}

// Loading reports whether a refresh is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Range returns the bounds of the last successful fetch.
func (c *Controller) Range() (start, end string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start, c.end
}

// UpdatedAt is when the last refresh completed. Zero before the first one.
func (c *Controller) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Refresh fetches the lookback range for the selected day. On failure the
// previous payload stays in place; the completion time is recorded either way.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	day := c.date
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	start, end, err := metrics.LookbackRange(day)
	if err != nil {
		return apperr.NewValidation(err.Error())
	}

	payload, err := c.fetcher.FetchRange(ctx, start, end)
	completed := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.updatedAt = completed
	if err != nil {
		c.lastErr = err
		c.log.Warn("refresh failed", "date", day, "start", start, "end", end, "error", err)
		return fmt.Errorf("refresh %s: %w", day, err)
	}

	resp, derr := payload.Decode()
	c.payload = payload
	c.resp = resp
	c.start, c.end = start, end
	c.lastErr = nil
	if derr != nil {
		c.lastErr = derr
		c.log.Warn("range response decode failed", "date", day, "error", derr)
		return apperr.NewInternal(fmt.Errorf("decode range response: %w", derr))
	}
	c.log.Info("refreshed", "date", day, "start", start, "end", end,
		"sessions", len(resp.Sessions()), "days", len(resp.Days()))
	return nil
}

// Metrics returns the derived metrics for the selected day. The result is
// recomputed only when the response or the selected day changed.
func (c *Controller) Metrics() models.DayMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metricsLocked()
}

func (c *Controller) metricsLocked() models.DayMetrics {
	if c.memo != nil && c.memoResp == c.resp && c.memoDate == c.date {
		return *c.memo
	}
	dm := c.derive(c.resp, c.date, c.loc)
	c.memo, c.memoResp, c.memoDate = &dm, c.resp, c.date
	return dm
}

// SaveSnapshot appends the last fetched payload and its range to the store.
// It never changes what the dashboard shows.
func (c *Controller) SaveSnapshot(ctx context.Context) (*models.SavedSnapshot, error) {
	if c.saver == nil {
		return nil, ErrNoStore
	}
	c.mu.Lock()
	payload, start, end := c.payload, c.start, c.end
	c.mu.Unlock()
	if payload == nil {
		return nil, ErrNothingToSave
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot payload: %w", err)
	}
	saved, err := c.saver.Save(ctx, models.Snapshot{Start: start, End: end, Payload: raw})
	if err != nil {
		c.log.Error("snapshot save failed", "start", start, "end", end, "error", err)
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	c.log.Info("snapshot saved", "id", saved.ID, "start", start, "end", end)
	return saved, nil
}
