package snapshot

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

type node struct {
	class string
	ivars []string
	attrs map[string]any
	fail  map[string]bool
}

func (n *node) ClassName() string           { return n.class }
func (n *node) InstanceVariables() []string { return n.ivars }
func (n *node) Display() string             { return "#<" + n.class + ">" }
func (n *node) InstanceVariable(name string) (any, error) {
	if n.fail[name] {
		return nil, errors.New("getter raised")
	}
	return n.attrs[name], nil
}

type hostArray []any

func (a hostArray) Len() int     { return len(a) }
func (a hostArray) At(i int) any { return a[i] }

type hostHash int

func (h hostHash) Associative() int { return int(h) }

type hostRange struct{ begin, end any }

func (r hostRange) Bounds() (any, any) { return r.begin, r.end }

type hostRaw string

func (r hostRaw) ClassName() string { return "Proc" }
func (r hostRaw) RawText() string   { return string(r) }

type Point struct {
	X, Y   int
	hidden string
}

func TestEncodePrimitives(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})

	tests := []struct {
		name string
		in   any
		want tracelog.ValueRecord
	}{
		{"nil", nil, rec.NoneValue()},
		{"nil pointer", (*Point)(nil), rec.NoneValue()},
		{"nil map", map[string]int(nil), rec.NoneValue()},
		{"true", true, rec.BoolValue(true)},
		{"int", 42, rec.IntValue(42)},
		{"int8", int8(-3), rec.IntValue(-3)},
		{"uint", uint32(7), rec.IntValue(7)},
		{"uint overflow", uint64(math.MaxUint64), rec.NotSupportedValue()},
		{"string", "hi", rec.StringValue("hi")},
		{"symbol", Symbol("name"), rec.SymbolValue("name")},
		{"pointer to int", new(int), rec.IntValue(0)},
		{"map", map[string]int{"a": 1}, rec.NotSupportedValue()},
		{"hash", hostHash(3), rec.NotSupportedValue()},
		{"func", func() {}, rec.NotSupportedValue()},
		{"chan", make(chan int), rec.NotSupportedValue()},
		{"complex", complex(1, 2), rec.NotSupportedValue()},
		{"raw", hostRaw("#<Proc:0x1>"), rec.RawValue("#<Proc:0x1>", "Proc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Encode(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeFloatRegistersTypeLazily(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})
	before := rec.Len()
	v := e.Encode(2.5)
	if v.Kind != tracelog.ValueFloat || v.Float != 2.5 {
		t.Fatalf("Encode(2.5) = %+v", v)
	}
	if rec.Len() != before+1 {
		t.Errorf("Float type declarations = %d", rec.Len()-before)
	}
	e.Encode(float32(1))
	if rec.Len() != before+1 {
		t.Error("Float type declared twice")
	}
}

func TestEncodeNonFiniteFloats(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})
	before := rec.Len()

	tests := map[string]float64{
		"NaN":       math.NaN(),
		"Infinity":  math.Inf(1),
		"-Infinity": math.Inf(-1),
	}
	for want, f := range tests {
		v := e.Encode(f)
		if v.Kind != tracelog.ValueError || v.Msg != want {
			t.Errorf("Encode(%v) = %+v, want Error %q", f, v, want)
		}
		if _, err := json.Marshal(v); err != nil {
			t.Errorf("Encode(%v) is not serializable: %v", f, err)
		}
	}
	if rec.Len() != before {
		t.Errorf("non-finite floats declared %d types", rec.Len()-before)
	}
}

func TestEncodeDepthZeroIsNone(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})
	for _, v := range []any{1, "x", []int{1}, &node{class: "Foo"}} {
		if got := e.EncodeDepth(v, 0); !cmp.Equal(got, rec.NoneValue()) {
			t.Errorf("EncodeDepth(%v, 0) = %+v", v, got)
		}
	}
}

// depthOf counts nested Sequence/Struct levels.
func depthOf(v tracelog.ValueRecord) int {
	if v.Kind != tracelog.ValueStruct && v.Kind != tracelog.ValueSequence {
		return 0
	}
	deepest := 0
	for _, c := range append(append([]tracelog.ValueRecord{}, v.Elements...), v.FieldValues...) {
		deepest = max(deepest, depthOf(c))
	}
	return deepest + 1
}

func TestEncodeCyclicObjectTerminates(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{MaxDepth: 4})

	n := &node{class: "Node", ivars: []string{"@next"}, attrs: map[string]any{}}
	n.attrs["@next"] = n

	got := e.Encode(n)
	if d := depthOf(got); d > 4 {
		t.Errorf("depth = %d, want <= 4", d)
	}
	leaf := got
	for range 4 {
		if leaf.Kind != tracelog.ValueStruct {
			t.Fatalf("expected struct chain, got %+v", leaf)
		}
		leaf = leaf.FieldValues[0]
	}
	if !cmp.Equal(leaf, rec.NoneValue()) {
		t.Errorf("innermost = %+v, want None", leaf)
	}
}

func TestEncodeCollectionCeiling(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{MaxCount: 3})

	small := e.Encode([]int{1, 2, 3})
	if small.Kind != tracelog.ValueSequence || len(small.Elements) != 3 {
		t.Errorf("small slice = %+v", small)
	}
	if got := e.Encode([]int{1, 2, 3, 4}); !cmp.Equal(got, rec.NotSupportedValue()) {
		t.Errorf("large slice = %+v", got)
	}
	if got := e.Encode(hostArray{1, 2, 3, 4}); !cmp.Equal(got, rec.NotSupportedValue()) {
		t.Errorf("large host array = %+v", got)
	}

	arrType, _ := rec.TypeIDFor(tracelog.TypeArray)
	if small.TypeID != arrType {
		t.Errorf("slice type = %d, want Array %d", small.TypeID, arrType)
	}
}

func TestEncodeStructVersionsByAttributes(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})

	a := e.Encode(&node{class: "Foo", ivars: []string{"@a"}, attrs: map[string]any{"@a": 1}})
	b := e.Encode(&node{class: "Foo", ivars: []string{"@a"}, attrs: map[string]any{"@a": 2}})
	c := e.Encode(&node{class: "Foo", ivars: []string{"@a", "@b"}, attrs: map[string]any{"@a": 1, "@b": "x"}})

	if a.TypeID != b.TypeID {
		t.Errorf("same attributes got types %d and %d", a.TypeID, b.TypeID)
	}
	if a.TypeID == c.TypeID {
		t.Error("different attributes share a type")
	}
	for _, name := range []string{"Foo (#0)", "Foo (#1)"} {
		if _, ok := rec.TypeIDFor(name); !ok {
			t.Errorf("type %q not registered", name)
		}
	}
}

func TestEncodeObjectEdgeCases(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})

	bare := e.Encode(&node{class: "Empty"})
	if diff := cmp.Diff(rec.RawValue("#<Empty>", "Empty"), bare); diff != "" {
		t.Errorf("zero attribute object (-want +got):\n%s", diff)
	}

	broken := e.Encode(&node{
		class: "Bad",
		ivars: []string{"@ok", "@boom"},
		attrs: map[string]any{"@ok": 1},
		fail:  map[string]bool{"@boom": true},
	})
	want := []tracelog.ValueRecord{rec.IntValue(1), rec.NoneValue()}
	if diff := cmp.Diff(want, broken.FieldValues); diff != "" {
		t.Errorf("failing getter (-want +got):\n%s", diff)
	}
}

func TestEncodeFixedShapes(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})

	tm := e.Encode(time.Unix(10, 20))
	if diff := cmp.Diff([]tracelog.ValueRecord{rec.IntValue(10), rec.IntValue(20)}, tm.FieldValues); diff != "" {
		t.Errorf("time fields (-want +got):\n%s", diff)
	}
	if _, ok := rec.TypeIDFor("Time (#0)"); !ok {
		t.Error("Time type not registered")
	}

	re := e.Encode(regexp.MustCompile(`a+b`))
	if !cmp.Equal(re.FieldValues[0], rec.StringValue("a+b")) {
		t.Errorf("regexp source = %+v", re.FieldValues[0])
	}

	rg := e.Encode(hostRange{1, 5})
	if diff := cmp.Diff([]tracelog.ValueRecord{rec.IntValue(1), rec.IntValue(5)}, rg.FieldValues); diff != "" {
		t.Errorf("range fields (-want +got):\n%s", diff)
	}

	p := e.Encode(Point{X: 1, Y: 2, hidden: "no"})
	if len(p.FieldValues) != 2 {
		t.Errorf("Go struct fields = %+v", p.FieldValues)
	}
	if _, ok := rec.TypeIDFor("Point (#0)"); !ok {
		t.Error("Point type not registered")
	}
}

func TestEncodeKeepsConsistencyPanics(t *testing.T) {
	rec := tracelog.NewRecord()
	e := NewEncoder(rec, Config{})
	defer func() {
		r := recover()
		err, _ := r.(error)
		var ce *tracelog.ConsistencyError
		if !errors.As(err, &ce) {
			t.Fatalf("recovered %v, want *tracelog.ConsistencyError", r)
		}
	}()
	e.Encode(panicky{})
}

type panicky struct{}

func (panicky) ClassName() string { panic(&tracelog.ConsistencyError{Op: "test", Detail: "boom"}) }
func (panicky) RawText() string   { return "" }
