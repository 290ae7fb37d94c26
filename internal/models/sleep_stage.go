package models

// Sleep stages in the order the distribution bar draws them.
const (
	SleepStageAwake = "Awake"
	SleepStageREM   = "REM"
	SleepStageLight = "Light"
	SleepStageDeep  = "Deep"
)

// StageInfo describes how a stage is presented.
type StageInfo struct {
	Name    string
	Caption string // Japanese caption shown under the value card
	Color   string
}

// SleepStages lists the stages in drawing order.
var SleepStages = []StageInfo{
	{Name: SleepStageAwake, Caption: "覚醒", Color: "#6EA7FF"},
	{Name: SleepStageREM, Caption: "レム睡眠", Color: "#547BFF"},
	{Name: SleepStageLight, Caption: "浅睡眠", Color: "#8E62FF"},
	{Name: SleepStageDeep, Caption: "深睡眠", Color: "#C48BFF"},
}

// StageHours returns the hours for a named stage.
func (m Metrics) StageHours(stage string) float64 {
	switch stage {
	case SleepStageAwake:
		return m.Awake
	case SleepStageREM:
		return m.REM
	case SleepStageLight:
		return m.Light
	case SleepStageDeep:
		return m.Deep
	}
	return 0
}

// StagePct returns the distribution percentage for a named stage.
func (m Metrics) StagePct(stage string) float64 {
	switch stage {
	case SleepStageAwake:
		return m.AwakePct
	case SleepStageREM:
		return m.REMPct
	case SleepStageLight:
		return m.LightPct
	case SleepStageDeep:
		return m.DeepPct
	}
	return 0
}
