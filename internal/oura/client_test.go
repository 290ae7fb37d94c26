package oura

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zasa-35/oura-visualizer/internal/apperr"
)

type upstream struct {
	sleepStatus int
	sleepBody   string
	dailyStatus int
	dailyBody   string
}

func newUpstream(t *testing.T, u upstream, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("start_date") != "2024-03-01" || r.URL.Query().Get("end_date") != "2024-03-02" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/sleep":
			w.WriteHeader(u.sleepStatus)
			_, _ = w.Write([]byte(u.sleepBody))
		case "/daily_sleep":
			w.WriteHeader(u.dailyStatus)
			_, _ = w.Write([]byte(u.dailyBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestFetchRangeSuccess verifies both bodies are returned verbatim.
func TestFetchRangeSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, upstream{
		sleepStatus: 200, sleepBody: `{"data":[{"id":"s1","total_sleep_duration":25200}],"next_token":null}`,
		dailyStatus: 200, dailyBody: `{"data":[{"day":"2024-03-02","score":85}]}`,
	}, &hits)

	c := NewClient(srv.URL, "secret-token", nil)
	p, err := c.FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if string(p.Sleep) != `{"data":[{"id":"s1","total_sleep_duration":25200}],"next_token":null}` {
		t.Errorf("sleep = %s", p.Sleep)
	}
	if string(p.Daily) != `{"data":[{"day":"2024-03-02","score":85}]}` {
		t.Errorf("daily = %s", p.Daily)
	}
	if hits.Load() != 2 {
		t.Errorf("upstream hits = %d, want 2", hits.Load())
	}
}

// TestFetchRangeSleepFailure verifies the sleep status and body are forwarded.
func TestFetchRangeSleepFailure(t *testing.T) {
	srv := newUpstream(t, upstream{
		sleepStatus: 503, sleepBody: "maintenance",
		dailyStatus: 200, dailyBody: `{"data":[]}`,
	}, nil)

	_, err := NewClient(srv.URL, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e == nil || e.Kind != apperr.Upstream {
		t.Fatalf("err = %v, want upstream", err)
	}
	if e.HTTPStatus() != 503 || e.Message != MsgSleepFailed || e.Detail != "maintenance" {
		t.Errorf("got %d %q %q", e.HTTPStatus(), e.Message, e.Detail)
	}
}

// TestFetchRangeSleepCheckedFirst verifies a sleep failure wins when both fail.
func TestFetchRangeSleepCheckedFirst(t *testing.T) {
	srv := newUpstream(t, upstream{
		sleepStatus: 401, sleepBody: `{"detail":"bad token"}`,
		dailyStatus: 500, dailyBody: "oops",
	}, nil)

	_, err := NewClient(srv.URL, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e.Message != MsgSleepFailed || e.HTTPStatus() != 401 {
		t.Errorf("got %q %d, want sleep failure 401", e.Message, e.HTTPStatus())
	}
}

// TestFetchRangeDailyFailure verifies the daily failure message and status.
func TestFetchRangeDailyFailure(t *testing.T) {
	srv := newUpstream(t, upstream{
		sleepStatus: 200, sleepBody: `{"data":[]}`,
		dailyStatus: 429, dailyBody: "rate limited",
	}, nil)

	_, err := NewClient(srv.URL, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e.Message != MsgDailyFailed || e.HTTPStatus() != 429 || e.Detail != "rate limited" {
		t.Errorf("got %q %d %q", e.Message, e.HTTPStatus(), e.Detail)
	}
}

// TestFetchRangeMalformedBody verifies a non-JSON 200 is an internal error.
func TestFetchRangeMalformedBody(t *testing.T) {
	srv := newUpstream(t, upstream{
		sleepStatus: 200, sleepBody: `{"data":[]}`,
		dailyStatus: 200, dailyBody: "<html>gateway</html>",
	}, nil)

	_, err := NewClient(srv.URL, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e.Kind != apperr.Internal || e.HTTPStatus() != 500 || e.Message != "Unexpected error" {
		t.Errorf("got %v %d %q", e.Kind, e.HTTPStatus(), e.Message)
	}
}

// TestFetchRangeMissingToken verifies no upstream call is made without a token.
func TestFetchRangeMissingToken(t *testing.T) {
	var hits atomic.Int32
	srv := newUpstream(t, upstream{sleepStatus: 200, dailyStatus: 200}, &hits)

	c := NewClient(srv.URL, "", nil)
	if c.Configured() {
		t.Error("Configured() = true with empty token")
	}
	_, err := c.FetchRange(context.Background(), "", "")
	if !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if hits.Load() != 0 {
		t.Errorf("upstream hits = %d, want 0", hits.Load())
	}
}

// TestFetchRangeNetworkFailure verifies a dead upstream maps to 500.
func TestFetchRangeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e.Kind != apperr.Internal || e.Detail == "" {
		t.Errorf("got %+v, want internal with detail", e)
	}
}

// TestFetchRangeOneTransportFailure verifies a connection dropped on one
// endpoint is an internal error and the other request still completes.
func TestFetchRangeOneTransportFailure(t *testing.T) {
	var sleepHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/daily_sleep" {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		sleepHits.Add(1)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret-token", nil).FetchRange(context.Background(), "2024-03-01", "2024-03-02")
	e := apperr.As(err)
	if e.Kind != apperr.Internal || !strings.Contains(e.Detail, "/daily_sleep") {
		t.Errorf("got %+v, want internal error naming /daily_sleep", e)
	}
	if sleepHits.Load() != 1 {
		t.Errorf("sleep requests = %d, want 1", sleepHits.Load())
	}
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		start, end string
		ok         bool
	}{
		{"2024-03-01", "2024-03-02", true},
		{"2024-03-02", "2024-03-02", true},
		{"2024-03-01", "", false},
		{"", "2024-03-02", false},
		{"2024/03/01", "2024-03-02", false},
		{"2024-03-01", "tomorrow", false},
		{"2024-03-03", "2024-03-02", false},
	}
	for _, tt := range tests {
		err := ValidateRange(tt.start, tt.end)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateRange(%q, %q) = %v, want ok=%v", tt.start, tt.end, err, tt.ok)
		}
		if err != nil && !apperr.Is(err, apperr.Validation) {
			t.Errorf("ValidateRange(%q, %q) kind = %v", tt.start, tt.end, apperr.As(err).Kind)
		}
	}
}
