// Package metrics turns raw Oura records into the normalized numbers the
// dashboard shows. Everything here is pure: no I/O, no clocks.
package metrics

import (
	"math"
	"time"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

// Unit heuristics. The provider sends no unit tags, so units are inferred
// from magnitude.
const (
	// FractionCeiling: efficiency values at or below this are fractions.
	FractionCeiling = 1.0
	// LatencySecondsThreshold: latency values above this are seconds.
	LatencySecondsThreshold = 120.0
	// LightNoiseFloorHours: inferred light sleep at or below this is dropped.
	LightNoiseFloorHours = 0.01
	// MaxLatencyMinutes caps latency so it always fits an int.
	MaxLatencyMinutes = math.MaxInt32
)

type (
	dailyField   = func(*models.DailySleep) models.Number
	sessionField = func(*models.SleepSession) models.Number
)

// Accessor chains, in fallback order.
var (
	dailyTotal      = []dailyField{func(d *models.DailySleep) models.Number { return d.TotalSleep }}
	dailyREM        = []dailyField{func(d *models.DailySleep) models.Number { return d.RemSleep }}
	dailyDeep       = []dailyField{func(d *models.DailySleep) models.Number { return d.DeepSleep }}
	dailyLight      = []dailyField{func(d *models.DailySleep) models.Number { return d.LightSleep }}
	dailyTIBMinutes = []dailyField{func(d *models.DailySleep) models.Number { return d.TimeInBed }}
	dailyTIBSeconds = []dailyField{func(d *models.DailySleep) models.Number { return d.TimeInBedDuration }}
	dailyAwake      = []dailyField{func(d *models.DailySleep) models.Number { return d.AwakeTime }}
	dailyEfficiency = []dailyField{func(d *models.DailySleep) models.Number { return d.Efficiency }}
	dailyLatency    = []dailyField{
		func(d *models.DailySleep) models.Number { return d.Latency },
		func(d *models.DailySleep) models.Number { return d.SleepLatency },
	}

	sessionTotal = []sessionField{func(s *models.SleepSession) models.Number { return s.TotalSleepDuration }}
	sessionREM   = []sessionField{func(s *models.SleepSession) models.Number { return s.RemSleepDuration }}
	sessionDeep  = []sessionField{func(s *models.SleepSession) models.Number { return s.DeepSleepDuration }}
	sessionLight = []sessionField{func(s *models.SleepSession) models.Number { return s.LightSleepDuration }}
	sessionTIB   = []sessionField{
		func(s *models.SleepSession) models.Number { return s.TimeInBed },
		func(s *models.SleepSession) models.Number { return s.TimeInBedDuration },
	}
	sessionAwake = []sessionField{
		func(s *models.SleepSession) models.Number { return s.AwakeDuration },
		func(s *models.SleepSession) models.Number { return s.AwakeTime },
	}
	sessionLatency = []sessionField{func(s *models.SleepSession) models.Number { return s.Latency }}
)

// first walks the chain and returns the first present, finite value.
func first[T any](rec *T, chain []func(*T) models.Number) (float64, bool) {
	if rec == nil {
		return 0, false
	}
	for _, get := range chain {
		if v, ok := get(rec).Get(); ok {
			return v, true
		}
	}
	return 0, false
}

func dailyValue(d *models.DailySleep, chain []dailyField) (float64, bool) {
	return first(d, chain)
}

func sessionValue(s *models.SleepSession, chain []sessionField) (float64, bool) {
	return first(s, chain)
}

func dailyMinutesToHours(d *models.DailySleep, chain []dailyField) float64 {
	v, _ := dailyValue(d, chain)
	return v / 60
}

func dailySecondsToHours(d *models.DailySleep, chain []dailyField) float64 {
	v, _ := dailyValue(d, chain)
	return v / 3600
}

func sessionSecondsToHours(s *models.SleepSession, chain []sessionField) float64 {
	v, _ := sessionValue(s, chain)
	return v / 3600
}

// firstNonZero returns the first candidate that is neither zero nor NaN.
func firstNonZero(candidates ...float64) float64 {
	for _, v := range candidates {
		if v != 0 && !math.IsNaN(v) {
			return v
		}
	}
	return 0
}

// Derive computes the normalized metrics for one day from its daily summary
// and the matched session. Either may be nil. Offset-less session stamps are
// read in Local; use DeriveIn to pick the zone.
func Derive(daily *models.DailySleep, session *models.SleepSession) models.Metrics {
	return DeriveIn(daily, session, time.Local)
}

// DeriveIn is Derive with offset-less session stamps read in loc.
func DeriveIn(daily *models.DailySleep, session *models.SleepSession, loc *time.Location) models.Metrics {
	sREM := sessionSecondsToHours(session, sessionREM)
	sDeep := sessionSecondsToHours(session, sessionDeep)
	sLight := sessionSecondsToHours(session, sessionLight)
	dREM := dailyMinutesToHours(daily, dailyREM)
	dDeep := dailyMinutesToHours(daily, dailyDeep)
	dLight := dailyMinutesToHours(daily, dailyLight)

	total := firstNonZero(
		sessionSecondsToHours(session, sessionTotal),
		dailyMinutesToHours(daily, dailyTotal),
		sREM+sDeep+sLight,
		dREM+dDeep+dLight,
	)
	rem := firstNonZero(sREM, dREM)
	deep := firstNonZero(sDeep, dDeep)
	light := firstNonZero(sLight, dLight)

	tib := firstNonZero(
		dailyMinutesToHours(daily, dailyTIBMinutes),
		dailySecondsToHours(daily, dailyTIBSeconds),
		sessionSecondsToHours(session, sessionTIB),
		bedtimeSpanHours(session, loc),
	)

	awake := firstNonZero(
		sessionSecondsToHours(session, sessionAwake),
		dailyMinutesToHours(daily, dailyAwake),
	)
	estimated := false
	if awake == 0 && tib > 0 && total > 0 {
		awake = math.Max(0, tib-total)
		estimated = true
	}

	if light == 0 && total > 0 {
		if inferred := total - rem - deep; inferred > LightNoiseFloorHours {
			light = inferred
		}
	}

	m := models.Metrics{
		Efficiency:     efficiency(daily, total, tib),
		LatencyMin:     latencyMinutes(daily, session),
		Total:          round1(total),
		REM:            round1(rem),
		Light:          round1(light),
		Deep:           round1(deep),
		Awake:          round1(awake),
		AwakeEstimated: estimated,
	}
	if daily != nil {
		if v, ok := daily.Score.Get(); ok {
			m.Score = models.Num(v)
		}
	}
	if session != nil {
		if t, ok := session.Start(loc); ok {
			m.Bedtime = &t
		}
		if t, ok := session.End(loc); ok {
			m.Waketime = &t
		}
	}
	m.AwakePct, m.REMPct, m.LightPct, m.DeepPct = stagePercentages(awake, rem, light, deep)
	return m
}

// bedtimeSpanHours is bedtime_end − bedtime_start in whole minutes, as hours.
func bedtimeSpanHours(s *models.SleepSession, loc *time.Location) float64 {
	if s == nil {
		return 0
	}
	start, ok := s.Start(loc)
	if !ok {
		return 0
	}
	end, ok := s.End(loc)
	if !ok {
		return 0
	}
	minutes := math.Trunc(end.Sub(start).Minutes())
	return math.Max(0, minutes/60)
}

// NormalizeEfficiency converts a raw efficiency to a percentage.
func NormalizeEfficiency(raw float64) float64 {
	if raw <= FractionCeiling {
		return raw * 100
	}
	return raw
}

func efficiency(daily *models.DailySleep, total, tib float64) float64 {
	eff := 0.0
	if raw, ok := dailyValue(daily, dailyEfficiency); ok {
		eff = NormalizeEfficiency(raw)
	}
	if eff == 0 && tib > 0 && total > 0 {
		eff = clamp(total/tib*100, 0, 100)
	}
	return clamp(round1(eff), 0, 100)
}

// NormalizeLatency converts a raw latency to whole minutes in
// [0, MaxLatencyMinutes].
func NormalizeLatency(raw float64) int {
	if raw > LatencySecondsThreshold {
		raw /= 60
	}
	return int(clamp(roundHalfUp(raw), 0, MaxLatencyMinutes))
}

func latencyMinutes(daily *models.DailySleep, session *models.SleepSession) *int {
	raw, ok := dailyValue(daily, dailyLatency)
	if !ok {
		raw, ok = sessionValue(session, sessionLatency)
	}
	if !ok {
		return nil
	}
	v := NormalizeLatency(raw)
	return &v
}

// stagePercentages splits 100 across the four stages by hours. A zero sum
// yields all zeros.
func stagePercentages(awake, rem, light, deep float64) (float64, float64, float64, float64) {
	sum := awake + rem + light + deep
	if !(sum > 0) || math.IsInf(sum, 0) {
		return 0, 0, 0, 0
	}
	return awake / sum * 100, rem / sum * 100, light / sum * 100, deep / sum * 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// roundHalfUp rounds .5 toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return roundHalfUp(v*10) / 10
}
