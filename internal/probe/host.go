package probe

import (
	"errors"
	"fmt"
)

// Host values decoded from the probe stream. Each implements one snapshot
// capability interface so the encoder classifies it without reflection.

// HostArray is an interpreter Array. Items may be elided by the probe for
// very large arrays, in which case only Size is known.
type HostArray struct {
	Items []any
	Size  int
}

func (a *HostArray) Len() int {
	return max(a.Size, len(a.Items))
}

func (a *HostArray) At(i int) any {
	if i >= len(a.Items) {
		panic(fmt.Sprintf("probe: array element %d elided", i))
	}
	return a.Items[i]
}

// HostHash is an interpreter Hash; only its size travels over the wire.
type HostHash struct {
	Size int
}

func (h *HostHash) Associative() int { return h.Size }

// HostRange is an interpreter Range.
type HostRange struct {
	Begin, End any
}

func (r *HostRange) Bounds() (any, any) { return r.Begin, r.End }

// HostSet is an interpreter Set.
type HostSet struct {
	Items []any
}

func (s *HostSet) SetMembers() []any { return s.Items }

// HostRegexp is an interpreter Regexp.
type HostRegexp struct {
	Source  string
	Options int64
}

func (r *HostRegexp) CompositeName() string { return "Regexp" }

func (r *HostRegexp) CompositeFields() ([]string, []any) {
	return []string{"source", "options"}, []any{r.Source, r.Options}
}

// HostStruct is an instance of an interpreter Struct class.
type HostStruct struct {
	Class  string
	Names  []string
	Values []any
}

func (s *HostStruct) RecordName() string         { return s.Class }
func (s *HostStruct) Members() ([]string, []any) { return s.Names, s.Values }

// ErrAttribute is returned for instance variables the probe could not read.
var ErrAttribute = errors.New("probe: attribute unavailable")

// HostObject is a generic object with instance variables ("@name").
type HostObject struct {
	Class  string
	Text   string
	Names  []string
	Values []any
	Errors []string // per attribute; non-empty when reading it raised
}

func (o *HostObject) ClassName() string           { return o.Class }
func (o *HostObject) InstanceVariables() []string { return o.Names }
func (o *HostObject) Display() string             { return o.Text }

func (o *HostObject) InstanceVariable(name string) (any, error) {
	for i, n := range o.Names {
		if n != name {
			continue
		}
		if i < len(o.Errors) && o.Errors[i] != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrAttribute, name, o.Errors[i])
		}
		if i < len(o.Values) {
			return o.Values[i], nil
		}
		break
	}
	return nil, fmt.Errorf("%w: %s", ErrAttribute, name)
}

// HostRaw is a value known only by its display text.
type HostRaw struct {
	Class string
	Text  string
}

func (r *HostRaw) ClassName() string { return r.Class }
func (r *HostRaw) RawText() string   { return r.Text }
