package models

import "time"

// Metrics is the normalized view of one night. Durations are hours rounded to
// one decimal, efficiency is a percentage and latency is whole minutes.
type Metrics struct {
	Score      Number     `json:"score"`
	Efficiency float64    `json:"efficiency"`
	LatencyMin *int       `json:"latency_min"`
	Bedtime    *time.Time `json:"bedtime"`
	Waketime   *time.Time `json:"waketime"`

	Total float64 `json:"total"`
	REM   float64 `json:"rem"`
	Light float64 `json:"light"`
	Deep  float64 `json:"deep"`
	Awake float64 `json:"awake"`

	// AwakeEstimated is set when Awake was derived as time in bed minus
	// total sleep rather than read from the provider.
	AwakeEstimated bool `json:"awake_estimated"`

	AwakePct float64 `json:"awake_pct"`
	REMPct   float64 `json:"rem_pct"`
	LightPct float64 `json:"light_pct"`
	DeepPct  float64 `json:"deep_pct"`
}

// DayMetrics is Metrics for a calendar day together with which records fed it.
type DayMetrics struct {
	Date       string  `json:"date"`
	HasDaily   bool    `json:"has_daily"`
	HasSession bool    `json:"has_session"`
	SessionID  string  `json:"session_id,omitempty"`
	Metrics    Metrics `json:"metrics"`
}

// MetricsReport is the body of GET /api/v1/metrics.
type MetricsReport struct {
	Date      string     `json:"date"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Metrics   DayMetrics `json:"metrics"`
	UpdatedAt time.Time  `json:"updated_at"`
}
