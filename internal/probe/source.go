// Package probe is the execution event source the recorder subscribes to.
//
// A probe running inside the traced interpreter reports call, return, line
// and raise notifications (plus intercepted output writes) over a pipe. This
// package decodes that stream and dispatches it synchronously to subscribed
// handlers, honoring per-subscriber channel enablement.
package probe

import (
	"sync"
	"sync/atomic"
)

// Channel selects one kind of notification.
type Channel uint32

const (
	ChannelCall Channel = 1 << iota
	ChannelReturn
	ChannelLine
	ChannelRaise
)

// AllChannels in the order the recorder enables them.
var AllChannels = []Channel{ChannelCall, ChannelReturn, ChannelRaise, ChannelLine}

func (c Channel) String() string {
	switch c {
	case ChannelCall:
		return "call"
	case ChannelReturn:
		return "return"
	case ChannelLine:
		return "line"
	case ChannelRaise:
		return "raise"
	default:
		return "unknown"
	}
}

// Binding gives read access to the local variables of a frame.
type Binding interface {
	LocalVariables() []string
	LocalVariable(name string) (any, error)
}

// CallInfo describes a method entry.
type CallInfo struct {
	Path     string
	Line     int64
	Class    string // receiver class
	Receiver string // receiver display text
	Method   string
	Params   []string
	Binding  Binding
}

// ReturnInfo describes a method exit.
type ReturnInfo struct {
	Path  string
	Line  int64
	Value any
}

// LineInfo describes the execution of a new line.
type LineInfo struct {
	Path    string
	Line    int64
	Binding Binding
}

// RaiseInfo describes a raised exception.
type RaiseInfo struct {
	Path    string
	Line    int64
	Message string
}

// Handler consumes notifications.
type Handler interface {
	OnCall(*CallInfo)
	OnReturn(*ReturnInfo)
	OnLine(*LineInfo)
	OnRaise(*RaiseInfo)
}

// Subscription is one handler's view of the source. A notification on a
// disabled channel is dropped for that subscriber, never queued.
type Subscription interface {
	Enable(Channel)
	Disable(Channel)
	Enabled(Channel) bool
	Close()
}

// Source delivers notifications to subscribed handlers.
type Source interface {
	Subscribe(Handler) Subscription
}

// Gate is the in-process Source: it keeps the subscriber list and dispatches
// synchronously on the caller's goroutine.
type Gate struct {
	mu   sync.Mutex
	subs []*subscription
}

func NewGate() *Gate { return &Gate{} }

type subscription struct {
	gate    *Gate
	handler Handler
	mask    atomic.Uint32
}

func (s *subscription) Enable(c Channel)  { s.mask.Or(uint32(c)) }
func (s *subscription) Disable(c Channel) { s.mask.And(^uint32(c)) }

func (s *subscription) Enabled(c Channel) bool {
	return s.mask.Load()&uint32(c) != 0
}

func (s *subscription) Close() {
	s.mask.Store(0)
	g := s.gate
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, other := range g.subs {
		if other == s {
			g.subs = append(g.subs[:i:i], g.subs[i+1:]...)
			return
		}
	}
}

// Subscribe registers h with every channel disabled.
func (g *Gate) Subscribe(h Handler) Subscription {
	s := &subscription{gate: g, handler: h}
	g.mu.Lock()
	g.subs = append(g.subs, s)
	g.mu.Unlock()
	return s
}

// Subscribers returns the number of open subscriptions.
func (g *Gate) Subscribers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

func (g *Gate) snapshot() []*subscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*subscription(nil), g.subs...)
}

// each calls fn for every subscriber that has c enabled at the moment of
// its turn.
func (g *Gate) each(c Channel, fn func(Handler)) {
	for _, s := range g.snapshot() {
		if s.Enabled(c) {
			fn(s.handler)
		}
	}
}

func (g *Gate) Call(info *CallInfo) {
	g.each(ChannelCall, func(h Handler) { h.OnCall(info) })
}

func (g *Gate) Return(info *ReturnInfo) {
	g.each(ChannelReturn, func(h Handler) { h.OnReturn(info) })
}

func (g *Gate) Line(info *LineInfo) {
	g.each(ChannelLine, func(h Handler) { h.OnLine(info) })
}

func (g *Gate) Raise(info *RaiseInfo) {
	g.each(ChannelRaise, func(h Handler) { h.OnRaise(info) })
}
