package tracelog

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// PathID, FunctionID, VariableID and TypeID are dense zero-based indices into
// the corresponding interning tables.
type (
	PathID     int
	FunctionID int
	VariableID int
	TypeID     int
)

// ValueRecord is one encoded snapshot of a runtime value. Only the fields that
// belong to Kind are meaningful; the rest stay zero and are not serialized.
type ValueRecord struct {
	Kind   ValueKind
	TypeID TypeID

	Int         int64         // Int
	Float       float64       // Float
	Bool        bool          // Bool
	Text        string        // String
	Raw         string        // Raw
	Msg         string        // Error
	Elements    []ValueRecord // Sequence
	IsSlice     bool          // Sequence
	FieldValues []ValueRecord // Struct
}

// valueWire is the on-disk shape: keys appear in this order and absent
// fields are dropped, so a Bool keeps "b": false and a Sequence keeps
// "is_slice": false.
type valueWire struct {
	Kind        ValueKind      `json:"kind" msgpack:"kind"`
	TypeID      TypeID         `json:"type_id" msgpack:"type_id"`
	I           *int64         `json:"i,omitempty" msgpack:"i,omitempty"`
	F           *float64       `json:"f,omitempty" msgpack:"f,omitempty"`
	B           *bool          `json:"b,omitempty" msgpack:"b,omitempty"`
	Text        *string        `json:"text,omitempty" msgpack:"text,omitempty"`
	R           *string        `json:"r,omitempty" msgpack:"r,omitempty"`
	Msg         *string        `json:"msg,omitempty" msgpack:"msg,omitempty"`
	Elements    *[]ValueRecord `json:"elements,omitempty" msgpack:"elements,omitempty"`
	IsSlice     *bool          `json:"is_slice,omitempty" msgpack:"is_slice,omitempty"`
	FieldValues *[]ValueRecord `json:"field_values,omitempty" msgpack:"field_values,omitempty"`
}

func (v ValueRecord) wire() valueWire {
	w := valueWire{Kind: v.Kind, TypeID: v.TypeID}
	switch v.Kind {
	case ValueInt:
		w.I = &v.Int
	case ValueFloat:
		w.F = &v.Float
	case ValueBool:
		w.B = &v.Bool
	case ValueString:
		w.Text = &v.Text
	case ValueRaw:
		w.R = &v.Raw
	case ValueError:
		w.Msg = &v.Msg
	case ValueSequence:
		elems := v.Elements
		if elems == nil {
			elems = []ValueRecord{}
		}
		w.Elements = &elems
		w.IsSlice = &v.IsSlice
	case ValueStruct:
		fields := v.FieldValues
		if fields == nil {
			fields = []ValueRecord{}
		}
		w.FieldValues = &fields
	}
	return w
}

func (v *ValueRecord) fromWire(w valueWire) error {
	*v = ValueRecord{Kind: w.Kind, TypeID: w.TypeID}
	switch w.Kind {
	case ValueInt:
		if w.I != nil {
			v.Int = *w.I
		}
	case ValueFloat:
		if w.F != nil {
			v.Float = *w.F
		}
	case ValueBool:
		if w.B != nil {
			v.Bool = *w.B
		}
	case ValueString:
		if w.Text != nil {
			v.Text = *w.Text
		}
	case ValueRaw:
		if w.R != nil {
			v.Raw = *w.R
		}
	case ValueError:
		if w.Msg != nil {
			v.Msg = *w.Msg
		}
	case ValueSequence:
		if w.Elements != nil {
			v.Elements = *w.Elements
		}
		if w.IsSlice != nil {
			v.IsSlice = *w.IsSlice
		}
	case ValueStruct:
		if w.FieldValues != nil {
			v.FieldValues = *w.FieldValues
		}
	case ValueNone:
	default:
		return fmt.Errorf("tracelog: unknown value kind %q", w.Kind)
	}
	return nil
}

func (v ValueRecord) MarshalJSON() ([]byte, error) {
	return marshalJSON(v.wire())
}

func (v *ValueRecord) UnmarshalJSON(data []byte) error {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return v.fromWire(w)
}

var (
	_ msgpack.CustomEncoder = ValueRecord{}
	_ msgpack.CustomDecoder = (*ValueRecord)(nil)
)

func (v ValueRecord) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(v.wire())
}

func (v *ValueRecord) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w valueWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	return v.fromWire(w)
}

// Walk calls fn for v and every nested element or field value, depth first.
func (v ValueRecord) Walk(fn func(ValueRecord)) {
	fn(v)
	for _, e := range v.Elements {
		e.Walk(fn)
	}
	for _, f := range v.FieldValues {
		f.Walk(fn)
	}
}
