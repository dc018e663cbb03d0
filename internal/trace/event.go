package trace

import "time"

// Kind is the shape of a diagnostic event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat // liveness while the traced program runs
)

var kindNames = map[Kind]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	// ScopeSession covers a whole recording (launch, record, serialize).
	ScopeSession Scope = iota + 1
	// ScopePhase covers one phase, e.g. writing one artifact.
	ScopePhase
	// ScopeEvent is one handled notification.
	ScopeEvent
	// ScopeValue is one encoded value. Very noisy.
	ScopeValue
)

var scopeNames = map[Scope]string{
	ScopeSession: "session",
	ScopePhase:   "phase",
	ScopeEvent:   "event",
	ScopeValue:   "value",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event is one diagnostic record.
type Event struct {
	Time     time.Time
	Seq      uint64 // process-wide, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for root spans
	GID      uint64
	Name     string // "record", "serialize", "call", ...
	Detail   string
	Extra    map[string]string
}
