package metrics

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// optional maps negative generated values to "absent".
func optional(v float64) models.Number {
	if v < 0 {
		return models.Number{}
	}
	return models.Num(v)
}

// buildRecords spreads generated values over both records.
func buildRecords(durations []float64, eff, lat float64, withSession bool) (*models.DailySleep, *models.SleepSession) {
	daily := &models.DailySleep{
		TotalSleep: optional(durations[0]),
		RemSleep:   optional(durations[1]),
		DeepSleep:  optional(durations[2]),
		LightSleep: optional(durations[3]),
		TimeInBed:  optional(durations[4]),
		AwakeTime:  optional(durations[5]),
		Efficiency: optional(eff),
		Latency:    optional(lat),
	}
	if !withSession {
		return daily, nil
	}
	return daily, &models.SleepSession{
		TotalSleepDuration: optional(durations[6] * 60),
		RemSleepDuration:   optional(durations[7] * 60),
		DeepSleepDuration:  optional(durations[8] * 60),
		LightSleepDuration: optional(durations[9] * 60),
		AwakeDuration:      optional(durations[10] * 60),
		TimeInBedDuration:  optional(durations[11] * 60),
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TestDeriveProperties checks the invariants that must hold for any input:
// finite outputs, a distribution that sums to 100 or 0, efficiency within
// [0, 100] and a latency that is either unknown or a non-negative integer.
func TestDeriveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	durations := gen.SliceOfN(12, gen.Float64Range(-200, 900))
	efficiencies := gen.Float64Range(-1, 150)
	latencies := gen.OneGenOf(
		gen.Float64Range(-10, 5000),
		gen.Float64Range(1e15, 1e300),
	)

	properties.Property("all outputs are finite", prop.ForAll(
		func(d []float64, eff, lat float64, withSession bool) bool {
			m := Derive(buildRecords(d, eff, lat, withSession))
			for _, v := range []float64{m.Efficiency, m.Total, m.REM, m.Light, m.Deep, m.Awake,
				m.AwakePct, m.REMPct, m.LightPct, m.DeepPct} {
				if !finite(v) {
					return false
				}
			}
			return true
		},
		durations, efficiencies, latencies, gen.Bool(),
	))

	properties.Property("stage percentages sum to 100 or 0", prop.ForAll(
		func(d []float64, eff, lat float64, withSession bool) bool {
			m := Derive(buildRecords(d, eff, lat, withSession))
			sum := m.AwakePct + m.REMPct + m.LightPct + m.DeepPct
			if m.Awake+m.REM+m.Light+m.Deep > 0 {
				return math.Abs(sum-100) <= 0.01
			}
			return sum == 0 || math.Abs(sum-100) <= 0.01
		},
		durations, efficiencies, latencies, gen.Bool(),
	))

	properties.Property("efficiency is within [0, 100]", prop.ForAll(
		func(d []float64, eff, lat float64, withSession bool) bool {
			m := Derive(buildRecords(d, eff, lat, withSession))
			return m.Efficiency >= 0 && m.Efficiency <= 100
		},
		durations, efficiencies, latencies, gen.Bool(),
	))

	properties.Property("latency is unknown or a non-negative integer", prop.ForAll(
		func(d []float64, eff, lat float64, withSession bool) bool {
			m := Derive(buildRecords(d, eff, lat, withSession))
			if lat < 0 {
				return m.LatencyMin == nil
			}
			return m.LatencyMin != nil && *m.LatencyMin >= 0
		},
		durations, efficiencies, latencies, gen.Bool(),
	))

	properties.Property("derive is deterministic", prop.ForAll(
		func(d []float64, eff, lat float64, withSession bool) bool {
			daily, session := buildRecords(d, eff, lat, withSession)
			a, b := Derive(daily, session), Derive(daily, session)
			return a.Total == b.Total && a.Efficiency == b.Efficiency && a.AwakePct == b.AwakePct
		},
		durations, efficiencies, latencies, gen.Bool(),
	))

	properties.TestingRun(t)
}
