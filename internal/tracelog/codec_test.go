package tracelog

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func TestValueRecordJSONShape(t *testing.T) {
	r := NewRecord()
	tests := []struct {
		name  string
		value ValueRecord
		want  string
	}{
		{"int", r.IntValue(3), `{"kind":"Int","type_id":0,"i":3}`},
		{"zero int keeps i", r.IntValue(0), `{"kind":"Int","type_id":0,"i":0}`},
		{"false keeps b", r.BoolValue(false), `{"kind":"Bool","type_id":2,"b":false}`},
		{"string", r.StringValue("<hi>"), `{"kind":"String","type_id":1,"text":"<hi>"}`},
		{"none", r.NoneValue(), `{"kind":"None","type_id":4}`},
		{"not supported", r.NotSupportedValue(), `{"kind":"Error","type_id":4,"msg":"not supported"}`},
		{"empty sequence", r.SequenceValue(nil, TypeArray), `{"kind":"Sequence","type_id":5,"elements":[],"is_slice":false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalJSON(tt.value)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestEventsJSONShape(t *testing.T) {
	r := NewRecord()
	base := r.Len()
	r.RegisterStep("a.rb", 1)
	r.RegisterCall("a.rb", 1, "<top-level>", nil)
	r.DropLastStep()

	got, err := marshalJSON(r.Events()[base:])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[{"Path":"a.rb"},{"Step":{"path_id":0,"line":1}},` +
		`{"Function":{"path_id":0,"line":1,"name":"<top-level>"}},` +
		`{"Call":{"function_id":0,"args":[]}},{"DropLastStep":null}]`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	types, err := marshalJSON(r.Events()[:1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	wantType := `[{"Type":{"kind":7,"lang_type":"Integer","specific_info":{"kind":"None"}}}]`
	if string(types) != wantType {
		t.Errorf("got  %s\nwant %s", types, wantType)
	}
}

// sampleRecord builds a record touching every event and value kind.
func sampleRecord() *Record {
	r := NewRecord()
	self := r.Arg("self", r.RawValue("#<Foo>", "Foo"))
	x := r.Arg("x", r.SequenceValue([]ValueRecord{r.IntValue(1), r.FloatValue(2.5), r.SymbolValue("k")}, TypeArray))
	r.RegisterVariable("self", self.Value)
	r.RegisterVariable("x", x.Value)
	r.RegisterStep("foo.rb", 4)
	r.RegisterCall("foo.rb", 4, "Foo#bar", []FullValueRecord{self, x})
	r.RegisterStep("foo.rb", 5)
	point := r.StructValue("Point", []string{"x", "y"}, []ValueRecord{r.IntValue(1), r.NoneValue()})
	r.RegisterVariable("p", point)
	r.RegisterSpecialEvent(EventWrite, "hello")
	r.RegisterSpecialEvent(EventError, "boom")
	r.RegisterVariable(ReturnValueName, r.BoolValue(true))
	r.RegisterReturn(r.BoolValue(true))
	r.DropLastStep()
	return r
}

func TestEventsJSONRoundTrip(t *testing.T) {
	r := sampleRecord()
	data, err := json.Marshal(r.Events())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Events
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(r.Events(), got, equateEmpty); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsMsgpackRoundTrip(t *testing.T) {
	r := sampleRecord()
	data, err := msgpack.Marshal(r.Events())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Events
	if err := msgpack.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(r.Events(), got, equateEmpty); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsUnmarshalRejects(t *testing.T) {
	for _, in := range []string{
		`[{"Nope":1}]`,
		`[{"Path":"a","Step":{}}]`,
		`[{"Value":{"variable_id":0,"value":{"kind":"Weird","type_id":0}}}]`,
	} {
		var es Events
		if err := json.Unmarshal([]byte(in), &es); err == nil {
			t.Errorf("Unmarshal(%s) succeeded", in)
		}
	}
}
