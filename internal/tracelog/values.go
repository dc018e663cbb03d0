package tracelog

import "math"

// Value constructors. Types are interned lazily; the Bool, None and
// "not supported" values are cached singletons.

func (r *Record) IntValue(i int64) ValueRecord {
	return ValueRecord{Kind: ValueInt, TypeID: r.intType, Int: i}
}

// FloatValue encodes f. NaN and the infinities have no JSON number form; they
// become Error values spelled the way Ruby prints them.
func (r *Record) FloatValue(f float64) ValueRecord {
	switch {
	case math.IsNaN(f):
		return ValueRecord{Kind: ValueError, TypeID: r.noType, Msg: "NaN"}
	case math.IsInf(f, 1):
		return ValueRecord{Kind: ValueError, TypeID: r.noType, Msg: "Infinity"}
	case math.IsInf(f, -1):
		return ValueRecord{Kind: ValueError, TypeID: r.noType, Msg: "-Infinity"}
	}
	return ValueRecord{Kind: ValueFloat, TypeID: r.LoadTypeID(KindFloat, TypeFloat), Float: f}
}

func (r *Record) StringValue(text string) ValueRecord {
	return ValueRecord{Kind: ValueString, TypeID: r.stringType, Text: text}
}

// SymbolValue encodes an interned host symbol as a String with the Symbol type.
func (r *Record) SymbolValue(text string) ValueRecord {
	return ValueRecord{Kind: ValueString, TypeID: r.symbolType, Text: text}
}

func (r *Record) BoolValue(b bool) ValueRecord {
	if b {
		return r.trueValue
	}
	return r.falseValue
}

func (r *Record) NoneValue() ValueRecord { return r.nilValue }

func (r *Record) NotSupportedValue() ValueRecord { return r.notSupported }

// RawValue is an opaque display string tagged with its class.
func (r *Record) RawValue(text, className string) ValueRecord {
	return ValueRecord{Kind: ValueRaw, TypeID: r.LoadTypeID(KindRaw, className), Raw: text}
}

// SequenceValue wraps already-encoded elements; className is "Array" or "Set".
func (r *Record) SequenceValue(elements []ValueRecord, className string) ValueRecord {
	if elements == nil {
		elements = []ValueRecord{}
	}
	return ValueRecord{
		Kind:     ValueSequence,
		TypeID:   r.LoadTypeID(KindSeq, className),
		Elements: elements,
	}
}

// StructValue wraps already-encoded field values under the struct type
// version matching fields (see StructTypeID).
func (r *Record) StructValue(className string, fields []string, values []ValueRecord) ValueRecord {
	types := make([]TypeID, len(values))
	for i, v := range values {
		types[i] = v.TypeID
	}
	if values == nil {
		values = []ValueRecord{}
	}
	return ValueRecord{
		Kind:        ValueStruct,
		TypeID:      r.StructTypeID(className, fields, types),
		FieldValues: values,
	}
}
