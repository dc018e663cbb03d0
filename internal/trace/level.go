package trace

import (
	"fmt"
	"slices"
	"strings"
)

// Level controls how much of the recorder's own activity is reported.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // only heartbeats pass; panics still dump the ring
	LevelPhase        // session and phase boundaries
	LevelDetail       // one event per handled notification
	LevelDebug        // also per-value events and counters
)

var levelNames = []string{"off", "error", "phase", "detail", "debug"}

// widest scope each level lets through; zero lets nothing through
var levelScopes = []Scope{0, 0, ScopePhase, ScopeEvent, ScopeValue}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel parses one of off, error, phase, detail or debug.
func ParseLevel(s string) (Level, error) {
	i := slices.Index(levelNames, strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames, "|"))
	}
	return Level(i), nil
}

// ShouldEmit reports whether events of scope pass at level l.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levelScopes) && scope <= levelScopes[l] && scope > 0
}
