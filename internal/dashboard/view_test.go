package dashboard

import (
	"math"
	"testing"
	"time"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

func TestFormatHM(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{7.5, "7h 30m"},
		{7.0, "7h 0m"},
		{0, "0h 0m"},
		{0.1, "0h 6m"},
		{1.9, "1h 54m"},
		{2.999, "3h 0m"},
		{-1, "0h 0m"},
		{math.NaN(), "0h 0m"},
	}
	for _, tt := range tests {
		if got := FormatHM(tt.hours); got != tt.want {
			t.Errorf("FormatHM(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)
	if got := FormatClock(&ts, jst); got != "23:05" {
		t.Errorf("FormatClock = %q, want 23:05", got)
	}
	if got := FormatClock(nil, jst); got != NoValue {
		t.Errorf("FormatClock(nil) = %q, want %q", got, NoValue)
	}
}

func TestFormatLatencyAndScore(t *testing.T) {
	ten := 10
	if got := FormatLatency(&ten); got != "10m" {
		t.Errorf("FormatLatency(10) = %q", got)
	}
	if got := FormatLatency(nil); got != NoValue {
		t.Errorf("FormatLatency(nil) = %q", got)
	}
	if got := FormatScore(models.Num(85)); got != "85" {
		t.Errorf("FormatScore(85) = %q", got)
	}
	if got := FormatScore(models.Number{}); got != NoScore {
		t.Errorf("FormatScore(absent) = %q", got)
	}
	if got := FormatPercent(87.46); got != "87.5%" {
		t.Errorf("FormatPercent = %q", got)
	}
}

// TestBarSegmentsRescale verifies the bar fills 100% even when the inputs
// do not sum to 100, and stays empty for an empty night.
func TestBarSegmentsRescale(t *testing.T) {
	segs := BarSegments(models.Metrics{AwakePct: 10, REMPct: 20, LightPct: 10, DeepPct: 10})
	want := []float64{20, 40, 20, 20}
	for i, s := range segs {
		if math.Abs(s.Width-want[i]) > 1e-9 {
			t.Errorf("segment %s = %v, want %v", s.Name, s.Width, want[i])
		}
	}
	if segs[0].Name != models.SleepStageAwake || segs[3].Name != models.SleepStageDeep {
		t.Errorf("order = %s..%s, want Awake..Deep", segs[0].Name, segs[3].Name)
	}

	segs = BarSegments(models.Metrics{AwakePct: -5, REMPct: 250, LightPct: math.NaN()})
	if segs[0].Width != 0 || segs[1].Width != 100 || segs[2].Width != 0 {
		t.Errorf("clamped = %+v", segs)
	}

	for _, s := range BarSegments(models.Metrics{}) {
		if s.Width != 0 {
			t.Errorf("empty night segment %s = %v", s.Name, s.Width)
		}
	}
}
