package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atikulmunna/gclens/internal/model"
)

// Rule is an immutable, named pattern that turns one line into a Trace.
type Rule struct {
	name string
	re   *regexp.Regexp
}

// New compiles pattern into a Rule. It panics on an invalid pattern: rules
// are package-level grammar, not user input.
func New(name, pattern string) *Rule {
	return &Rule{name: name, re: regexp.MustCompile(pattern)}
}

func (r *Rule) Name() string   { return r.name }
func (r *Rule) String() string { return r.name }

// Parse returns the match result for line, or nil when the rule does not apply.
func (r *Rule) Parse(line string) *Trace {
	groups := r.re.FindStringSubmatch(line)
	if groups == nil {
		return nil
	}
	return &Trace{rule: r, groups: groups}
}

// Trace is the structured result of a rule match. Group 0 is the whole match.
type Trace struct {
	rule   *Rule
	groups []string
}

// Rule returns the rule that produced t.
func (t *Trace) Rule() *Rule { return t.rule }

// Len returns the number of capture groups, including group 0.
func (t *Trace) Len() int { return len(t.groups) }

// Group returns group i, or "" when it is out of range or did not participate.
func (t *Trace) Group(i int) string {
	if i < 0 || i >= len(t.groups) {
		return ""
	}
	return t.groups[i]
}

// Present reports whether group i captured anything.
func (t *Trace) Present(i int) bool { return t.Group(i) != "" }

// Int parses group i as an integer, returning 0 on failure.
func (t *Trace) Int(i int) int {
	v, err := strconv.Atoi(t.Group(i))
	if err != nil {
		return 0
	}
	return v
}

// Float parses group i as a decimal, accepting a comma as decimal point.
func (t *Trace) Float(i int) float64 {
	return ParseDecimal(t.Group(i))
}

// Millis parses group i as milliseconds and returns seconds.
func (t *Trace) Millis(i int) float64 {
	return t.Float(i) / 1000
}

// Memory parses group i as a size with unit and returns bytes.
func (t *Trace) Memory(i int) int64 {
	return ParseMemory(t.Group(i))
}

// Occupancy reads three consecutive groups "before->after(size)".
func (t *Trace) Occupancy(i int) *model.MemoryPoolSummary {
	return model.NewMemoryPoolSummary(t.Memory(i), t.Memory(i+1), t.Memory(i+2))
}

// SizedOccupancy reads four consecutive groups "before(size)->after(size)".
func (t *Trace) SizedOccupancy(i int) *model.MemoryPoolSummary {
	return &model.MemoryPoolSummary{
		OccupancyBefore: t.Memory(i),
		SizeBefore:      t.Memory(i + 1),
		OccupancyAfter:  t.Memory(i + 2),
		SizeAfter:       t.Memory(i + 3),
	}
}

// CPU reads three consecutive groups of a [Times: ...] block.
func (t *Trace) CPU(i int) *model.CPUSummary {
	return &model.CPUSummary{User: t.Float(i), Sys: t.Float(i + 1), Real: t.Float(i + 2)}
}

// Stamp reads a date group and an uptime group. ok is false when neither
// was present on the line.
func (t *Trace) Stamp(dateGroup, uptimeGroup int) (model.DateTimeStamp, bool) {
	date, hasDate := ParseDate(t.Group(dateGroup))
	if t.Present(uptimeGroup) {
		if hasDate {
			return model.NewDateTimeStamp(date, t.Float(uptimeGroup)), true
		}
		return model.Uptime(t.Float(uptimeGroup)), true
	}
	if hasDate {
		return model.DateOnly(date), true
	}
	return model.DateTimeStamp{}, false
}

// ParseDecimal parses "12.345" or "12,345"; malformed input yields 0.
func ParseDecimal(s string) float64 {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}

const dateLayout = "2006-01-02T15:04:05.000-0700"

// ParseDate parses a GC log date stamp.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, strings.Replace(s, ",", ".", 1))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// ParseMemory converts "1024K", "24.0M", "1G" or "512B" to bytes. A missing
// unit is read as kilobytes, the pre-unified default.
func ParseMemory(s string) int64 {
	if s == "" {
		return 0
	}
	unit := s[len(s)-1]
	num := s
	mult := float64(1024)
	switch unit {
	case 'B', 'b':
		mult = 1
		num = s[:len(s)-1]
	case 'K', 'k':
		num = s[:len(s)-1]
	case 'M', 'm':
		mult = 1024 * 1024
		num = s[:len(s)-1]
	case 'G', 'g':
		mult = 1024 * 1024 * 1024
		num = s[:len(s)-1]
	}
	return int64(ParseDecimal(num) * mult)
}
