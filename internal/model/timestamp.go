package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTimeStamp is the moment an event happened, as printed in the log: a
// wall-clock date, a JVM uptime in decimal seconds, or both. The zero value
// carries neither.
type DateTimeStamp struct {
	date      time.Time
	uptime    float64
	hasUptime bool
}

// Uptime returns a stamp holding only a JVM uptime in seconds.
func Uptime(seconds float64) DateTimeStamp {
	return DateTimeStamp{uptime: seconds, hasUptime: true}
}

// NewDateTimeStamp returns a stamp holding both a date and an uptime.
func NewDateTimeStamp(date time.Time, seconds float64) DateTimeStamp {
	return DateTimeStamp{date: date, uptime: seconds, hasUptime: true}
}

// DateOnly returns a stamp holding only a wall-clock date.
func DateOnly(date time.Time) DateTimeStamp {
	return DateTimeStamp{date: date}
}

func (t DateTimeStamp) HasUptime() bool { return t.hasUptime }
func (t DateTimeStamp) HasDate() bool   { return !t.date.IsZero() }
func (t DateTimeStamp) IsZero() bool    { return !t.hasUptime && t.date.IsZero() }
func (t DateTimeStamp) Date() time.Time { return t.date }

// Seconds returns the uptime, falling back to the date in unix seconds when
// the stamp has no uptime.
func (t DateTimeStamp) Seconds() float64 {
	if t.hasUptime {
		return t.uptime
	}
	if t.date.IsZero() {
		return 0
	}
	return float64(t.date.UnixNano()) / 1e9
}

// Add shifts both components of the stamp by the given number of seconds.
func (t DateTimeStamp) Add(seconds float64) DateTimeStamp {
	out := t
	if t.hasUptime {
		out.uptime += seconds
	}
	if !t.date.IsZero() {
		out.date = t.date.Add(time.Duration(seconds * float64(time.Second)))
	}
	return out
}

// Before reports whether t happened before o.
func (t DateTimeStamp) Before(o DateTimeStamp) bool {
	if t.hasUptime && o.hasUptime {
		return t.uptime < o.uptime
	}
	return t.Seconds() < o.Seconds()
}

// Minus returns t - o in seconds.
func (t DateTimeStamp) Minus(o DateTimeStamp) float64 {
	if t.hasUptime && o.hasUptime {
		return t.uptime - o.uptime
	}
	return t.Seconds() - o.Seconds()
}

func (t DateTimeStamp) String() string {
	switch {
	case t.hasUptime && !t.date.IsZero():
		return fmt.Sprintf("%s@%.3fs", t.date.Format(time.RFC3339Nano), t.uptime)
	case t.hasUptime:
		return fmt.Sprintf("%.3fs", t.uptime)
	case !t.date.IsZero():
		return t.date.Format(time.RFC3339Nano)
	default:
		return "unknown"
	}
}

func (t DateTimeStamp) MarshalJSON() ([]byte, error) {
	out := struct {
		Date   *time.Time `json:"date,omitempty"`
		Uptime *float64   `json:"uptime,omitempty"`
	}{}
	if !t.date.IsZero() {
		d := t.date
		out.Date = &d
	}
	if t.hasUptime {
		u := t.uptime
		out.Uptime = &u
	}
	return json.Marshal(out)
}
