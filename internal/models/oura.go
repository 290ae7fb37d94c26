package models

import (
	"encoding/json"
	"time"
)

// DayLayout is the calendar-day format used by the Oura API and our query params.
const DayLayout = "2006-01-02"

// Collection is the envelope of every Oura v2 usercollection response.
type Collection[T any] struct {
	Data      []T     `json:"data"`
	NextToken *string `json:"next_token,omitempty"`
}

// DailySleep is one calendar day's aggregate from the daily_sleep collection.
// Stage and bed durations are minutes; efficiency and latency units vary.
type DailySleep struct {
	ID                string `json:"id,omitempty"`
	Day               string `json:"day"`
	Score             Number `json:"score"`
	TotalSleep        Number `json:"total_sleep"`
	RemSleep          Number `json:"rem_sleep"`
	DeepSleep         Number `json:"deep_sleep"`
	LightSleep        Number `json:"light_sleep"`
	Efficiency        Number `json:"efficiency"`
	Latency           Number `json:"latency"`
	SleepLatency      Number `json:"sleep_latency"`
	TimeInBed         Number `json:"time_in_bed"`
	TimeInBedDuration Number `json:"time_in_bed_duration"`
	AwakeTime         Number `json:"awake_time"`
}

// SleepSession is one physical sleep period from the sleep collection.
// All durations are seconds.
type SleepSession struct {
	ID                 string `json:"id,omitempty"`
	Day                string `json:"day,omitempty"`
	Type               string `json:"type,omitempty"`
	BedtimeStart       string `json:"bedtime_start,omitempty"`
	BedtimeEnd         string `json:"bedtime_end,omitempty"`
	TotalSleepDuration Number `json:"total_sleep_duration"`
	RemSleepDuration   Number `json:"rem_sleep_duration"`
	DeepSleepDuration  Number `json:"deep_sleep_duration"`
	LightSleepDuration Number `json:"light_sleep_duration"`
	AwakeDuration      Number `json:"awake_duration"`
	AwakeTime          Number `json:"awake_time"`
	Latency            Number `json:"latency"`
	TimeInBed          Number `json:"time_in_bed"`
	TimeInBedDuration  Number `json:"time_in_bed_duration"`
}

// Start parses bedtime_start. Stamps without a UTC offset are read in loc
// (nil means Local). ok is false when it is missing or malformed.
func (s *SleepSession) Start(loc *time.Location) (time.Time, bool) {
	return parseStamp(s.BedtimeStart, loc)
}

// End parses bedtime_end.
func (s *SleepSession) End(loc *time.Location) (time.Time, bool) {
	return parseStamp(s.BedtimeEnd, loc)
}

// localStampLayout is an RFC 3339 timestamp without the offset.
const localStampLayout = "2006-01-02T15:04:05"

func parseStamp(v string, loc *time.Location) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(localStampLayout, v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RangePayload is what the proxy endpoint returns: both upstream bodies verbatim.
type RangePayload struct {
	Sleep json.RawMessage `json:"sleep"`
	Daily json.RawMessage `json:"daily"`
}

// RangeResponse is RangePayload decoded into typed records.
type RangeResponse struct {
	Sleep *Collection[SleepSession] `json:"sleep,omitempty"`
	Daily *Collection[DailySleep]   `json:"daily,omitempty"`
}

// Decode parses both upstream bodies. A body that is not a collection
// (for example an error object) leaves that side empty.
func (p *RangePayload) Decode() (*RangeResponse, error) {
	resp := &RangeResponse{}
	if len(p.Sleep) > 0 {
		var c Collection[SleepSession]
		if err := json.Unmarshal(p.Sleep, &c); err != nil {
			return resp, err
		}
		resp.Sleep = &c
	}
	if len(p.Daily) > 0 {
		var c Collection[DailySleep]
		if err := json.Unmarshal(p.Daily, &c); err != nil {
			return resp, err
		}
		resp.Daily = &c
	}
	return resp, nil
}

// Sessions returns the session records, or nil.
func (r *RangeResponse) Sessions() []SleepSession {
	if r == nil || r.Sleep == nil {
		return nil
	}
	return r.Sleep.Data
}

// Days returns the daily records, or nil.
func (r *RangeResponse) Days() []DailySleep {
	if r == nil || r.Daily == nil {
		return nil
	}
	return r.Daily.Data
}
