package trace

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// NextSeq returns the next process-wide event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// GoroutineID parses the current goroutine's id out of its stack header
// ("goroutine 17 [running]:"). It returns 0 when the header is unexpected.
func GoroutineID() uint64 {
	var buf [64]byte
	header := buf[:runtime.Stack(buf[:], false)]
	header, ok := bytes.CutPrefix(header, []byte("goroutine "))
	if !ok {
		return 0
	}
	digits, _, _ := bytes.Cut(header, []byte(" "))
	id, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span is an open begin/end pair. A Span for a filtered scope is inert.
type Span struct {
	tracer Tracer
	begin  Event
	extra  map[string]string
}

func wants(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Begin opens a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !wants(t, scope) {
		return &Span{}
	}
	s := &Span{tracer: t, begin: Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   spanIDs.Add(1),
		ParentID: parent,
		GID:      GoroutineID(),
		Name:     name,
	}}
	begin := s.begin
	t.Emit(&begin)
	return s
}

func (s *Span) live() bool { return s != nil && s.tracer != nil && s.tracer.Enabled() }

// End emits the closing event with detail and any extras, and returns the
// time since Begin.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	end := s.begin
	end.Time = time.Now()
	end.Seq = NextSeq()
	end.Kind = KindSpanEnd
	end.Detail = detail
	end.Extra = s.extra
	s.tracer.Emit(&end)
	return end.Time.Sub(s.begin.Time)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

// ID is the span id to pass as parent to nested spans; 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits one instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if !wants(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		GID:    GoroutineID(),
		Name:   name,
		Detail: detail,
	})
}

// Pointf formats detail only when the event passes the level filter.
func Pointf(t Tracer, scope Scope, name, format string, args ...any) {
	if wants(t, scope) {
		Point(t, scope, name, fmt.Sprintf(format, args...))
	}
}
