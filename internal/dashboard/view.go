package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

// Placeholders for missing values.
const (
	NoValue = "—"
	NoScore = "--"
)

// StageCard is one of the four per-stage duration cards.
type StageCard struct {
	Name    string
	Caption string
	Color   string
	Value   string
}

// Segment is one slice of the stage distribution bar. Width is a percentage.
type Segment struct {
	Name  string
	Color string
	Width float64
}

// View is everything the page renders.
type View struct {
	Date           string
	DateLabel      string
	Loading        bool
	UpdatedAt      string
	Error          string
	HasData        bool
	Score          string
	Bedtime        string
	Waketime       string
	Total          string
	Efficiency     string
	Latency        string
	AwakeEstimated bool
	Stages         []StageCard
	Bar            []Segment
	Metrics        models.DayMetrics
}

// View assembles the render model for the selected day.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	dm := c.metricsLocked()
	m := dm.Metrics
	v := View{
		Date:           c.date,
		DateLabel:      c.date,
		Loading:        c.loading,
		HasData:        c.resp != nil,
		Score:          FormatScore(m.Score),
		Bedtime:        FormatClock(m.Bedtime, c.loc),
		Waketime:       FormatClock(m.Waketime, c.loc),
		Total:          FormatHM(m.Total),
		Efficiency:     FormatPercent(m.Efficiency),
		Latency:        FormatLatency(m.LatencyMin),
		AwakeEstimated: m.AwakeEstimated,
		Bar:            BarSegments(m),
		Metrics:        dm,
	}
	if d, err := time.Parse(models.DayLayout, c.date); err == nil {
		v.DateLabel = d.Format("2006/01/02")
	}
	if !c.updatedAt.IsZero() {
		v.UpdatedAt = c.updatedAt.In(c.loc).Format("15:04:05")
	}
	if c.lastErr != nil {
		v.Error = c.lastErr.Error()
	}
	for _, s := range stageCardOrder {
		info := stageInfo(s)
		v.Stages = append(v.Stages, StageCard{
			Name:    info.Name,
			Caption: info.Caption,
			Color:   info.Color,
			Value:   FormatHM(m.StageHours(s)),
		})
	}
	return v
}

// Cards are laid out deep first; the bar follows models.SleepStages.
var stageCardOrder = []string{
	models.SleepStageDeep,
	models.SleepStageREM,
	models.SleepStageLight,
	models.SleepStageAwake,
}

func stageInfo(name string) models.StageInfo {
	for _, s := range models.SleepStages {
		if s.Name == name {
			return s
		}
	}
	return models.StageInfo{Name: name}
}

// FormatHM renders hours as "7h 30m".
func FormatHM(hours float64) string {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		hours = 0
	}
	h := math.Floor(hours)
	m := math.Round((hours - h) * 60)
	if m >= 60 {
		h++
		m -= 60
	}
	return fmt.Sprintf("%dh %dm", int(h), int(m))
}

// FormatClock renders t as HH:mm in loc, or NoValue.
func FormatClock(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return NoValue
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}

// FormatLatency renders minutes as "10m", or NoValue when unknown.
func FormatLatency(minutes *int) string {
	if minutes == nil {
		return NoValue
	}
	return strconv.Itoa(*minutes) + "m"
}

// FormatScore renders the score, or NoScore when absent.
func FormatScore(n models.Number) string {
	v, ok := n.Get()
	if !ok {
		return NoScore
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent renders one decimal and a percent sign.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// BarSegments lays out the distribution bar. Each percentage is clamped to
// [0, 100] and the set is rescaled to fill 100%; an empty set stays empty.
func BarSegments(m models.Metrics) []Segment {
	widths := make([]float64, len(models.SleepStages))
	sum := 0.0
	for i, s := range models.SleepStages {
		w := m.StagePct(s.Name)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		w = math.Min(100, math.Max(0, w))
		widths[i] = w
		sum += w
	}
	scale := 0.0
	if sum > 0 {
		scale = 100 / sum
	}
	segs := make([]Segment, len(models.SleepStages))
	for i, s := range models.SleepStages {
		segs[i] = Segment{Name: s.Name, Color: s.Color, Width: widths[i] * scale}
	}
	return segs
}
