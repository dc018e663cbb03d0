package recorder

import (
	"fmt"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/probe"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

// disable order: line first
var suspendOrder = []probe.Channel{probe.ChannelLine, probe.ChannelCall, probe.ChannelReturn, probe.ChannelRaise}

// suspend disables every enabled channel and clears tracing; the returned
// func restores exactly what was enabled (line last) and the previous
// tracing flag. Callers hold t.mu and defer the restore.
func (t *Tracer) suspend() func() {
	prevOwner := t.owner.Swap(trace.GoroutineID())
	prevTracing := t.tracing

	var mask probe.Channel
	for _, c := range suspendOrder {
		if t.sub.Enabled(c) {
			mask |= c
			t.sub.Disable(c)
		}
	}
	t.tracing = false

	return func() {
		for _, c := range probe.AllChannels {
			if mask&c != 0 {
				t.sub.Enable(c)
			}
		}
		t.tracing = prevTracing
		t.owner.Store(prevOwner)
	}
}

// OnCall records Value events for self and each parameter, then Step and Call.
func (t *Tracer) OnCall(info *probe.CallInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.suspend()()

	if !t.filter.Tracks(info.Path) {
		return
	}
	name := qualifiedName(info.Class, info.Method)
	if t.debug {
		trace.Point(t.diag, trace.ScopeEvent, "call", fmt.Sprintf("call %s with %v", name, info.Params))
	}
	args := t.callArgs(info)
	t.rec.RegisterStep(info.Path, info.Line)
	t.rec.RegisterCall(info.Path, info.Line, name, args)
}

func (t *Tracer) callArgs(info *probe.CallInfo) []tracelog.FullValueRecord {
	params := make([]tracelog.ValueRecord, len(info.Params))
	for i, p := range info.Params {
		params[i] = t.local(info.Binding, p)
	}
	self := t.rec.RawValue(info.Receiver, info.Class)

	names := append([]string{tracelog.SelfName}, info.Params...)
	values := append([]tracelog.ValueRecord{self}, params...)
	for i, name := range names {
		t.rec.RegisterVariable(name, values[i])
	}
	args := make([]tracelog.FullValueRecord, len(names))
	for i, name := range names {
		args[i] = t.rec.Arg(name, values[i])
	}
	return args
}

// local encodes one local of b; an absent binding or a failed read is None.
func (t *Tracer) local(b probe.Binding, name string) tracelog.ValueRecord {
	if b == nil || name == "" {
		return t.rec.NoneValue()
	}
	v, err := b.LocalVariable(name)
	if err != nil {
		trace.Point(t.diag, trace.ScopeValue, "local unavailable", err.Error())
		return t.rec.NoneValue()
	}
	return t.enc.Encode(v)
}

// OnReturn records Step, the <return_value> Value and Return.
func (t *Tracer) OnReturn(info *probe.ReturnInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.suspend()()

	if !t.filter.Tracks(info.Path) {
		return
	}
	if t.debug {
		trace.Point(t.diag, trace.ScopeEvent, "return", "return")
	}
	value := t.enc.Encode(info.Value)
	t.rec.RegisterStep(info.Path, info.Line)
	t.rec.RegisterVariable(tracelog.ReturnValueName, value)
	t.rec.RegisterReturn(value)
}

// OnLine records Step and a Value per visible local.
func (t *Tracer) OnLine(info *probe.LineInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.suspend()()

	if !t.filter.Tracks(info.Path) {
		return
	}
	t.rec.RegisterStep(info.Path, info.Line)
	if info.Binding == nil {
		return
	}
	for _, name := range info.Binding.LocalVariables() {
		t.rec.RegisterVariable(name, t.local(info.Binding, name))
	}
}

// OnRaise records an error event. Raises are not path-filtered.
func (t *Tracer) OnRaise(info *probe.RaiseInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.suspend()()

	t.rec.RegisterSpecialEvent(tracelog.EventError, info.Message)
}

// RecordEvent records intercepted program output: a Step at path:line when
// the location is known, then a Write event. Output reaches the session for as
// long as it is registered with the coordinator, so a write made between
// Deactivate and Activate is still recorded. Writes issued from inside one of
// the session's handlers are dropped.
func (t *Tracer) RecordEvent(path string, line int64, content string) {
	if owner := t.owner.Load(); owner != 0 && owner == trace.GoroutineID() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	defer t.suspend()()

	if (source.Location{Path: path, Line: line}).Valid() {
		t.rec.RegisterStep(path, line)
	}
	t.rec.RegisterSpecialEvent(tracelog.EventWrite, content)
}

// RecordEventFrame is RecordEvent with the location given as a call-stack
// frame descriptor ("path:line:in ..."). An unparsable frame only loses the
// Step; the content is still recorded.
func (t *Tracer) RecordEventFrame(frame, content string) {
	loc, err := source.ParseFrame(frame)
	if err != nil {
		trace.Point(t.diag, trace.ScopeEvent, "unparsable frame", err.Error())
	}
	t.RecordEvent(loc.Path, loc.Line, content)
}

// qualifiedName is "Class#method", or just "method" for Object receivers.
func qualifiedName(class, method string) string {
	if class == "" || class == "Object" {
		return method
	}
	return class + "#" + method
}
