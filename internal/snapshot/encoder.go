// Package snapshot encodes live runtime values into tracelog value records.
//
// Encoding is bounded in two ways: a depth budget that decreases by one per
// level of nesting (the only guard against cyclic structures), and a ceiling
// on collection size past which a collection is recorded as "not supported"
// instead of being expanded.
package snapshot

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"fortio.org/safecast"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

const (
	// DefaultMaxDepth is the default depth budget of Encode.
	DefaultMaxDepth = 10
	// DefaultMaxCount is the largest collection that is expanded.
	DefaultMaxCount = 5000
)

// Config tunes an Encoder. Zero fields take the defaults.
type Config struct {
	MaxDepth    int
	MaxCount    int
	Diagnostics trace.Tracer
}

// Encoder turns runtime values into value records, interning types in rec.
// It shares rec's single-writer rule.
type Encoder struct {
	rec      *tracelog.Record
	maxDepth int
	maxCount int
	diag     trace.Tracer
	values   uint64
}

func NewEncoder(rec *tracelog.Record, cfg Config) *Encoder {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = trace.Nop
	}
	return &Encoder{rec: rec, maxDepth: cfg.MaxDepth, maxCount: cfg.MaxCount, diag: cfg.Diagnostics}
}

// Record returns the record the encoder interns into.
func (e *Encoder) Record() *tracelog.Record { return e.rec }

// MaxDepth returns the default depth budget.
func (e *Encoder) MaxDepth() int { return e.maxDepth }

// Encode encodes v with the default depth budget.
func (e *Encoder) Encode(v any) tracelog.ValueRecord {
	return e.EncodeDepth(v, e.maxDepth)
}

// EncodeDepth encodes v with the given depth budget; depth <= 0 yields None.
// A panic raised while inspecting v (a failing getter, a broken Stringer)
// degrades v to None. Consistency errors of the record are not swallowed.
func (e *Encoder) EncodeDepth(v any, depth int) (out tracelog.ValueRecord) {
	if depth <= 0 {
		return e.rec.NoneValue()
	}
	e.values++
	if e.values%10000 == 0 {
		trace.Pointf(e.diag, trace.ScopeValue, "values", "%d", e.values)
	}

	defer func() {
		if r := recover(); r != nil {
			if isConsistencyError(r) {
				panic(r)
			}
			trace.Pointf(e.diag, trace.ScopeValue, "encode failed", "%v", r)
			out = e.rec.NoneValue()
		}
	}()

	c, rv := classify(v)
	switch c {
	case classNone:
		return e.rec.NoneValue()
	case classBool:
		return e.rec.BoolValue(rv.Bool())
	case classInt:
		return e.rec.IntValue(rv.Int())
	case classUint:
		i, err := safecast.Conv[int64](rv.Uint())
		if err != nil {
			return e.rec.NotSupportedValue()
		}
		return e.rec.IntValue(i)
	case classFloat:
		return e.rec.FloatValue(rv.Float())
	case classString:
		return e.rec.StringValue(rv.String())
	case classSymbol:
		return e.rec.SymbolValue(rv.String())
	case classOrdered:
		return e.encodeOrdered(v, rv, depth)
	case classAssociative:
		return e.rec.NotSupportedValue()
	case classInterval:
		begin, end := v.(Interval).Bounds()
		return e.structValue("Range", []string{"begin", "end"}, []any{begin, end}, depth)
	case classSet:
		members := v.(SetLike).SetMembers()
		if len(members) > e.maxCount {
			return e.rec.NotSupportedValue()
		}
		return e.rec.SequenceValue(e.encodeAll(members, depth), tracelog.TypeSet)
	case classTime:
		t := rv.Interface().(time.Time)
		return e.structValue("Time", []string{"sec", "nsec"}, []any{t.Unix(), int64(t.Nanosecond())}, depth)
	case classRegexp:
		re := rv.Interface().(*regexp.Regexp)
		return e.structValue("Regexp", []string{"source", "options"}, []any{re.String(), int64(0)}, depth)
	case classComposite:
		c := v.(Composite)
		names, values := c.CompositeFields()
		return e.structValue(c.CompositeName(), names, values, depth)
	case classRecord:
		r := v.(Record)
		names, values := r.Members()
		return e.structValue(r.RecordName(), names, values, depth)
	case classGoStruct:
		return e.encodeGoStruct(rv, depth)
	case classObject:
		return e.encodeObject(v.(Object), depth)
	case classOpaque:
		o := v.(Opaque)
		return e.rec.RawValue(o.RawText(), o.ClassName())
	default:
		return e.rec.NotSupportedValue()
	}
}

func (e *Encoder) encodeOrdered(v any, rv reflect.Value, depth int) tracelog.ValueRecord {
	if o, ok := v.(Ordered); ok {
		n := o.Len()
		if n > e.maxCount {
			return e.rec.NotSupportedValue()
		}
		elems := make([]tracelog.ValueRecord, n)
		for i := range n {
			elems[i] = e.encodeChild(func() any { return o.At(i) }, depth-1)
		}
		return e.rec.SequenceValue(elems, tracelog.TypeArray)
	}
	n := rv.Len()
	if n > e.maxCount {
		return e.rec.NotSupportedValue()
	}
	elems := make([]tracelog.ValueRecord, n)
	for i := range n {
		elems[i] = e.encodeChild(func() any { return rv.Index(i).Interface() }, depth-1)
	}
	return e.rec.SequenceValue(elems, tracelog.TypeArray)
}

func (e *Encoder) encodeAll(values []any, depth int) []tracelog.ValueRecord {
	out := make([]tracelog.ValueRecord, len(values))
	for i, v := range values {
		out[i] = e.EncodeDepth(v, depth-1)
	}
	return out
}

// encodeChild resolves a child lazily so that a failing accessor degrades
// only that child.
func (e *Encoder) encodeChild(get func() any, depth int) (out tracelog.ValueRecord) {
	if depth <= 0 {
		return e.rec.NoneValue()
	}
	defer func() {
		if r := recover(); r != nil {
			if isConsistencyError(r) {
				panic(r)
			}
			trace.Pointf(e.diag, trace.ScopeValue, "field failed", "%v", r)
			out = e.rec.NoneValue()
		}
	}()
	return e.EncodeDepth(get(), depth)
}

func (e *Encoder) structValue(name string, fields []string, values []any, depth int) tracelog.ValueRecord {
	return e.rec.StructValue(name, fields, e.encodeAll(values, depth))
}

func (e *Encoder) encodeGoStruct(rv reflect.Value, depth int) tracelog.ValueRecord {
	rt := rv.Type()
	names := make([]string, 0, rt.NumField())
	values := make([]tracelog.ValueRecord, 0, rt.NumField())
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		names = append(names, f.Name)
		values = append(values, e.encodeChild(func() any { return rv.Field(i).Interface() }, depth-1))
	}
	return e.rec.StructValue(goTypeName(rt), names, values)
}

func (e *Encoder) encodeObject(o Object, depth int) tracelog.ValueRecord {
	class := o.ClassName()
	ivars := o.InstanceVariables()
	if len(ivars) == 0 {
		return e.rec.RawValue(o.Display(), class)
	}
	names := make([]string, len(ivars))
	values := make([]tracelog.ValueRecord, len(ivars))
	for i, ivar := range ivars {
		names[i] = strings.TrimPrefix(ivar, "@")
		values[i] = e.encodeChild(func() any {
			v, err := o.InstanceVariable(ivar)
			if err != nil {
				panic(err)
			}
			return v
		}, depth-1)
	}
	return e.rec.StructValue(class, names, values)
}

func isConsistencyError(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	var ce *tracelog.ConsistencyError
	return errors.As(err, &ce)
}

func goTypeName(rt reflect.Type) string {
	if rt.Name() != "" {
		return rt.Name()
	}
	return "struct"
}
