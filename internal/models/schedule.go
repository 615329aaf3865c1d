package models

import (
	"errors"
	"math"

	"github.com/spf13/cast"
)

const (
	ScheduleEnabled  = "enable"
	ScheduleDisabled = "disable"

	KeyTime         = "time"
	KeyAction       = "action"
	KeyStatus       = "status"
	KeyLastNotified = "lastNotified"
)

var errMalformedSchedule = errors.New("malformed schedule")

// Schedule fires Action at the minute whose "03:04 PM" rendering equals Time
// byte for byte. Time is never parsed.
type Schedule struct {
	Time         string `json:"time"`
	Action       any    `json:"action"`
	Status       string `json:"status"`
	LastNotified *int64 `json:"lastNotified,omitempty"`
}

func (s Schedule) Enabled() bool { return s.Status == ScheduleEnabled }

// decodeSchedule reports stampDropped when lastNotified is present but not an
// epoch; the schedule is kept as never notified so the next fire rewrites it.
func decodeSchedule(raw any) (s Schedule, stampDropped bool, err error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Schedule{}, false, errMalformedSchedule
	}
	if v, ok := m[KeyTime]; ok && v != nil {
		if s.Time, ok = v.(string); !ok {
			return Schedule{}, false, errMalformedSchedule
		}
	}
	if v, ok := m[KeyStatus]; ok && v != nil {
		if s.Status, ok = v.(string); !ok {
			return Schedule{}, false, errMalformedSchedule
		}
	}
	s.Action = m[KeyAction]
	if v, ok := m[KeyLastNotified]; ok && v != nil {
		if ts, ok := parseEpoch(v); ok {
			s.LastNotified = &ts
		} else {
			stampDropped = true
		}
	}
	return s, stampDropped, nil
}

// parseEpoch accepts integer and fractional epoch seconds, truncating the
// latter.
func parseEpoch(v any) (int64, bool) {
	if ts, err := cast.ToInt64E(v); err == nil {
		return ts, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// CooledDown reports whether a cooldown window of window seconds has elapsed
// since last. A missing timestamp always counts as elapsed.
func CooledDown(last *int64, now, window int64) bool {
	return last == nil || now-*last >= window
}
