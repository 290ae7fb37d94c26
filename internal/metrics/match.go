package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

// MatchWindowPadding widens the calendar day on both sides so sessions that
// cross midnight, or are filed against the neighbouring day, still match.
const MatchWindowPadding = 6 * time.Hour

// ParseDay parses a YYYY-MM-DD calendar day in loc.
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(models.DayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: want YYYY-MM-DD", day)
	}
	return t, nil
}

// DayWindow returns the inclusive match window for a calendar day:
// [00:00 − padding, 23:59:59.999 + padding] in loc.
func DayWindow(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start.Add(-MatchWindowPadding), end.Add(MatchWindowPadding)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// MatchSession picks the session for a calendar day: among sessions whose
// bedtime start or end falls in the day window, the one with the longest
// total sleep. Ties keep upstream order. Returns nil when nothing matches.
func MatchSession(day time.Time, loc *time.Location, sessions []models.SleepSession) *models.SleepSession {
	from, to := DayWindow(day, loc)

	var matches []int
	for i := range sessions {
		s := &sessions[i]
		if start, ok := s.Start(loc); ok && within(start, from, to) {
			matches = append(matches, i)
			continue
		}
		if end, ok := s.End(loc); ok && within(end, from, to) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return sessions[matches[a]].TotalSleepDuration.Or0() > sessions[matches[b]].TotalSleepDuration.Or0()
	})
	return &sessions[matches[0]]
}

// PickForDay returns the daily record for day and the matched session.
// Either result may be nil.
func PickForDay(resp *models.RangeResponse, day string, loc *time.Location) (*models.DailySleep, *models.SleepSession) {
	var daily *models.DailySleep
	days := resp.Days()
	for i := range days {
		if days[i].Day == day {
			daily = &days[i]
			break
		}
	}

	t, err := ParseDay(day, loc)
	if err != nil {
		return daily, nil
	}
	return daily, MatchSession(t, loc, resp.Sessions())
}

// ForDay picks and derives in one step.
func ForDay(resp *models.RangeResponse, day string, loc *time.Location) models.DayMetrics {
	daily, session := PickForDay(resp, day, loc)
	dm := models.DayMetrics{
		Date:       day,
		HasDaily:   daily != nil,
		HasSession: session != nil,
		Metrics:    DeriveIn(daily, session, loc),
	}
	if session != nil {
		dm.SessionID = session.ID
	}
	return dm
}

// LookbackRange is the fetch range for a day: the previous day through the
// day itself, so sessions that began the evening before are included.
func LookbackRange(day string) (start, end string, err error) {
	t, err := time.Parse(models.DayLayout, day)
	if err != nil {
		return "", "", fmt.Errorf("invalid day %q: want YYYY-MM-DD", day)
	}
	return t.AddDate(0, 0, -1).Format(models.DayLayout), t.Format(models.DayLayout), nil
}
