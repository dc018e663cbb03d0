package probe

import (
	"fmt"
	"time"

	"fortio.org/safecast"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/snapshot"
)

// Message kinds written by the probe.
const (
	KindCall      = "call"
	KindReturn    = "return"
	KindLine      = "line"
	KindRaise     = "raise"
	KindWrite     = "write"
	KindExit      = "exit"
	KindException = "exception"
)

// Message is one probe notification. Fields are populated per Kind.
type Message struct {
	Kind string `json:"kind" msgpack:"kind"`
	Path string `json:"path,omitempty" msgpack:"path,omitempty"`
	Line int64  `json:"line,omitempty" msgpack:"line,omitempty"`

	// call
	Class    string   `json:"class,omitempty" msgpack:"class,omitempty"`
	Receiver string   `json:"self,omitempty" msgpack:"self,omitempty"`
	Method   string   `json:"method,omitempty" msgpack:"method,omitempty"`
	Params   []string `json:"params,omitempty" msgpack:"params,omitempty"`

	// call, line
	Locals []Local `json:"locals,omitempty" msgpack:"locals,omitempty"`

	// return
	Value *Value `json:"value,omitempty" msgpack:"value,omitempty"`

	// raise, exception
	Message   string   `json:"message,omitempty" msgpack:"message,omitempty"`
	Backtrace []string `json:"backtrace,omitempty" msgpack:"backtrace,omitempty"`

	// write
	Op    string     `json:"op,omitempty" msgpack:"op,omitempty"`
	Args  []WriteArg `json:"args,omitempty" msgpack:"args,omitempty"`
	Frame string     `json:"frame,omitempty" msgpack:"frame,omitempty"`

	// exit
	Status int64 `json:"status,omitempty" msgpack:"status,omitempty"`
}

// Local is one local variable of a frame. Error is set when reading it raised.
type Local struct {
	Name  string `json:"name" msgpack:"name"`
	Value *Value `json:"value,omitempty" msgpack:"value,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// WriteArg is one argument of an intercepted output call.
type WriteArg struct {
	Inspect  string     `json:"inspect" msgpack:"inspect"`
	Display  string     `json:"display" msgpack:"display"`
	Array    bool       `json:"array,omitempty" msgpack:"array,omitempty"`
	Elements []WriteArg `json:"elements,omitempty" msgpack:"elements,omitempty"`
}

// Field is a named member of a struct or object value.
type Field struct {
	Name  string `json:"name" msgpack:"name"`
	Value *Value `json:"value,omitempty" msgpack:"value,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Value is the tagged wire encoding of an interpreter value. Containers may
// carry an ID; a later "ref" value with that ID denotes the same object,
// which is how shared and cyclic structure survives the trip.
type Value struct {
	T      string   `json:"t" msgpack:"t"`
	ID     int64    `json:"id,omitempty" msgpack:"id,omitempty"`
	Ref    int64    `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Class  string   `json:"class,omitempty" msgpack:"class,omitempty"`
	I      int64    `json:"i,omitempty" msgpack:"i,omitempty"`
	F      float64  `json:"f,omitempty" msgpack:"f,omitempty"`
	S      string   `json:"s,omitempty" msgpack:"s,omitempty"`
	B      bool     `json:"b,omitempty" msgpack:"b,omitempty"`
	Items  []*Value `json:"items,omitempty" msgpack:"items,omitempty"`
	Size   int64    `json:"size,omitempty" msgpack:"size,omitempty"`
	Begin  *Value   `json:"begin,omitempty" msgpack:"begin,omitempty"`
	End    *Value   `json:"end,omitempty" msgpack:"end,omitempty"`
	Sec    int64    `json:"sec,omitempty" msgpack:"sec,omitempty"`
	Nsec   int64    `json:"nsec,omitempty" msgpack:"nsec,omitempty"`
	Opts   int64    `json:"opts,omitempty" msgpack:"opts,omitempty"`
	Fields []Field  `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

// graph decodes the values of one message; IDs are scoped to the message.
type graph struct {
	byID map[int64]any
}

func newGraph() *graph { return &graph{byID: make(map[int64]any)} }

func (g *graph) remember(v *Value, host any) {
	if v.ID != 0 {
		g.byID[v.ID] = host
	}
}

// decode converts v into its host representation.
func (g *graph) decode(v *Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.T {
	case "nil":
		return nil, nil
	case "int":
		return v.I, nil
	case "float":
		return v.F, nil
	case "str":
		return v.S, nil
	case "sym":
		return snapshot.Symbol(v.S), nil
	case "bool":
		return v.B, nil
	case "time":
		return time.Unix(v.Sec, v.Nsec), nil
	case "raw":
		return &HostRaw{Class: v.Class, Text: v.S}, nil
	case "ref":
		host, ok := g.byID[v.Ref]
		if !ok {
			return nil, fmt.Errorf("probe: dangling ref %d", v.Ref)
		}
		return host, nil
	case "regexp":
		re := &HostRegexp{Source: v.S, Options: v.Opts}
		g.remember(v, re)
		return re, nil
	case "hash":
		size, err := safecast.Conv[int](v.Size)
		if err != nil {
			return nil, fmt.Errorf("probe: hash size: %w", err)
		}
		h := &HostHash{Size: size}
		g.remember(v, h)
		return h, nil
	case "array":
		size, err := safecast.Conv[int](v.Size)
		if err != nil {
			return nil, fmt.Errorf("probe: array size: %w", err)
		}
		a := &HostArray{Size: size}
		g.remember(v, a)
		items, err := g.decodeAll(v.Items)
		if err != nil {
			return nil, err
		}
		a.Items = items
		return a, nil
	case "set":
		s := &HostSet{}
		g.remember(v, s)
		items, err := g.decodeAll(v.Items)
		if err != nil {
			return nil, err
		}
		s.Items = items
		return s, nil
	case "range":
		r := &HostRange{}
		g.remember(v, r)
		var err error
		if r.Begin, err = g.decode(v.Begin); err != nil {
			return nil, err
		}
		if r.End, err = g.decode(v.End); err != nil {
			return nil, err
		}
		return r, nil
	case "struct":
		s := &HostStruct{Class: v.Class}
		g.remember(v, s)
		for _, f := range v.Fields {
			fv, err := g.decode(f.Value)
			if err != nil {
				return nil, err
			}
			s.Names = append(s.Names, f.Name)
			s.Values = append(s.Values, fv)
		}
		return s, nil
	case "object":
		o := &HostObject{Class: v.Class, Text: v.S}
		g.remember(v, o)
		for _, f := range v.Fields {
			fv, err := g.decode(f.Value)
			if err != nil {
				return nil, err
			}
			o.Names = append(o.Names, f.Name)
			o.Values = append(o.Values, fv)
			o.Errors = append(o.Errors, f.Error)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("probe: unknown value tag %q", v.T)
	}
}

func (g *graph) decodeAll(vs []*Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		hv, err := g.decode(v)
		if err != nil {
			return nil, err
		}
		out[i] = hv
	}
	return out, nil
}

// binding exposes decoded locals.
type binding struct {
	names  []string
	values map[string]any
	errs   map[string]string
}

// binding decodes every local. A local that fails to decode keeps its name
// and reports the failure from LocalVariable.
func (g *graph) binding(locals []Local) *binding {
	b := &binding{
		names:  make([]string, 0, len(locals)),
		values: make(map[string]any, len(locals)),
		errs:   make(map[string]string),
	}
	for _, l := range locals {
		b.names = append(b.names, l.Name)
		if l.Error != "" {
			b.errs[l.Name] = l.Error
			continue
		}
		v, err := g.decode(l.Value)
		if err != nil {
			b.errs[l.Name] = err.Error()
			continue
		}
		b.values[l.Name] = v
	}
	return b
}

func (b *binding) LocalVariables() []string { return b.names }

func (b *binding) LocalVariable(name string) (any, error) {
	if msg, ok := b.errs[name]; ok {
		return nil, fmt.Errorf("probe: local %s: %s", name, msg)
	}
	v, ok := b.values[name]
	if !ok {
		return nil, fmt.Errorf("probe: no local %q", name)
	}
	return v, nil
}
