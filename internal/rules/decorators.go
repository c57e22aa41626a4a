package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/gclens/internal/model"
)

// Decorators is the parsed bracketed prefix of a unified log line, e.g.
// "[0.011s][info][gc,phases]".
type Decorators struct {
	Date      time.Time
	Uptime    float64
	HasUptime bool
	Level     string
	Tags      []string
}

var (
	decoratorRe    = regexp.MustCompile(`^\[([^\]\[]*)\]`)
	uptimeSecsRe   = regexp.MustCompile(`^(\d+[.,]\d+)s$`)
	uptimeMillisRe = regexp.MustCompile(`^(\d+)ms$`)
	uptimeNanosRe  = regexp.MustCompile(`^(\d+)ns$`)
	levels         = map[string]bool{"trace": true, "debug": true, "info": true, "warning": true, "error": true}
)

// SplitDecorators separates the decorators of a unified log line from its
// message. ok is false unless the line opens with a time or level decorator,
// which distinguishes unified lines from bracketed pre-unified ones such as
// "[GC (Allocation Failure) ...".
func SplitDecorators(line string) (d Decorators, message string, ok bool) {
	rest := line
	first := true
	for {
		m := decoratorRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		if !d.add(strings.TrimSpace(m[1])) && first {
			return Decorators{}, line, false
		}
		first = false
		rest = rest[len(m[0]):]
	}
	if first {
		return Decorators{}, line, false
	}
	return d, strings.TrimLeft(rest, " "), true
}

// add classifies one decorator and reports whether it was a time or level
// decorator.
func (d *Decorators) add(value string) bool {
	if m := uptimeSecsRe.FindStringSubmatch(value); m != nil {
		d.Uptime, d.HasUptime = ParseDecimal(m[1]), true
		return true
	}
	if m := uptimeMillisRe.FindStringSubmatch(value); m != nil {
		ms, _ := strconv.ParseInt(m[1], 10, 64)
		d.Uptime, d.HasUptime = float64(ms)/1e3, true
		return true
	}
	if m := uptimeNanosRe.FindStringSubmatch(value); m != nil {
		ns, _ := strconv.ParseInt(m[1], 10, 64)
		d.Uptime, d.HasUptime = float64(ns)/1e9, true
		return true
	}
	if t, ok := ParseDate(value); ok {
		d.Date = t
		return true
	}
	if levels[value] {
		d.Level = value
		return true
	}
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			d.Tags = append(d.Tags, tag)
		}
	}
	return false
}

// HasTag reports whether tag is among the line's tags.
func (d Decorators) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Stamp returns the event time carried by the decorators.
func (d Decorators) Stamp() (model.DateTimeStamp, bool) {
	switch {
	case d.HasUptime && !d.Date.IsZero():
		return model.NewDateTimeStamp(d.Date, d.Uptime), true
	case d.HasUptime:
		return model.Uptime(d.Uptime), true
	case !d.Date.IsZero():
		return model.DateOnly(d.Date), true
	}
	return model.DateTimeStamp{}, false
}
