package model

import (
	"fmt"
	"strings"
)

// EventSource identifies the collector family an event or topic belongs to.
type EventSource int

const (
	SourceJVM EventSource = iota
	SourceSerial
	SourceParallel
	SourceCMS
	SourceG1
	SourceShenandoah
	SourceZGC
	SourceSafepoint
)

var sourceNames = [...]string{
	SourceJVM:        "jvm",
	SourceSerial:     "serial",
	SourceParallel:   "parallel",
	SourceCMS:        "cms",
	SourceG1:         "g1",
	SourceShenandoah: "shenandoah",
	SourceZGC:        "zgc",
	SourceSafepoint:  "safepoint",
}

// AllSources lists every event source in declaration order.
func AllSources() []EventSource {
	return []EventSource{
		SourceJVM, SourceSerial, SourceParallel, SourceCMS,
		SourceG1, SourceShenandoah, SourceZGC, SourceSafepoint,
	}
}

// GCSources lists the sources that carry garbage collection events.
func GCSources() []EventSource {
	return []EventSource{SourceSerial, SourceParallel, SourceCMS, SourceG1, SourceShenandoah, SourceZGC}
}

func (s EventSource) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("EventSource(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseEventSource is the inverse of String.
func ParseEventSource(name string) (EventSource, error) {
	for i, n := range sourceNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return EventSource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event source %q", name)
}

func (s EventSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
