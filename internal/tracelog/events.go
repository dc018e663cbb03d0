package tracelog

// Event is one entry of the event log. Emission order is the trace's
// temporal order; declaration events (Path, Function, VariableName, Type)
// always precede the first event that references their ID.
type Event interface {
	EventKind() EventKind
	payload() any
}

// PathRecord declares a new path ID.
type PathRecord struct {
	Path string
}

// VariableNameRecord declares a new variable ID.
type VariableNameRecord struct {
	Name string
}

// FieldTypeRecord is one named field of a struct type.
type FieldTypeRecord struct {
	Name   string `json:"name" msgpack:"name"`
	TypeID TypeID `json:"type_id" msgpack:"type_id"`
}

// SpecificInfo carries kind-specific type details: {"kind":"None"} for
// every non-struct type, {"kind":"Struct","fields":[...]} for structs.
type SpecificInfo struct {
	Kind   string
	Fields []FieldTypeRecord
}

// NoneInfo is the specific info of every non-struct type.
var NoneInfo = SpecificInfo{Kind: "None"}

// StructInfo builds the specific info of a struct type.
func StructInfo(fields []FieldTypeRecord) SpecificInfo {
	if fields == nil {
		fields = []FieldTypeRecord{}
	}
	return SpecificInfo{Kind: "Struct", Fields: fields}
}

// TypeRecord declares a new type ID.
type TypeRecord struct {
	Kind         TypeKind     `json:"kind" msgpack:"kind"`
	LangType     string       `json:"lang_type" msgpack:"lang_type"`
	SpecificInfo SpecificInfo `json:"specific_info" msgpack:"specific_info"`
}

// FunctionRecord declares a new function ID.
type FunctionRecord struct {
	PathID PathID `json:"path_id" msgpack:"path_id"`
	Line   int64  `json:"line" msgpack:"line"`
	Name   string `json:"name" msgpack:"name"`
}

// StepRecord marks that execution reached a source line.
type StepRecord struct {
	PathID PathID `json:"path_id" msgpack:"path_id"`
	Line   int64  `json:"line" msgpack:"line"`
}

// FullValueRecord binds a value to a variable.
type FullValueRecord struct {
	VariableID VariableID  `json:"variable_id" msgpack:"variable_id"`
	Value      ValueRecord `json:"value" msgpack:"value"`
}

// CallRecord marks entry into a function.
type CallRecord struct {
	FunctionID FunctionID        `json:"function_id" msgpack:"function_id"`
	Args       []FullValueRecord `json:"args" msgpack:"args"`
}

// ReturnRecord marks exit from the current function.
type ReturnRecord struct {
	ReturnValue ValueRecord `json:"return_value" msgpack:"return_value"`
}

// ValueEventRecord is a full value record emitted as its own event.
type ValueEventRecord struct {
	FullValueRecord
}

// SpecialEventRecord is an I/O write or a raised error.
type SpecialEventRecord struct {
	Kind     EventLogKind `json:"kind" msgpack:"kind"`
	Content  string       `json:"content" msgpack:"content"`
	Metadata string       `json:"metadata" msgpack:"metadata"`
}

// DropLastStepRecord asks the reader to discard the preceding Step.
type DropLastStepRecord struct{}

func (PathRecord) EventKind() EventKind         { return EventKindPath }
func (VariableNameRecord) EventKind() EventKind { return EventKindVariableName }
func (TypeRecord) EventKind() EventKind         { return EventKindType }
func (FunctionRecord) EventKind() EventKind     { return EventKindFunction }
func (StepRecord) EventKind() EventKind         { return EventKindStep }
func (CallRecord) EventKind() EventKind         { return EventKindCall }
func (ReturnRecord) EventKind() EventKind       { return EventKindReturn }
func (ValueEventRecord) EventKind() EventKind   { return EventKindValue }
func (SpecialEventRecord) EventKind() EventKind { return EventKindEvent }
func (DropLastStepRecord) EventKind() EventKind { return EventKindDropLastStep }

func (r PathRecord) payload() any         { return r.Path }
func (r VariableNameRecord) payload() any { return r.Name }
func (r TypeRecord) payload() any         { return typeWire(r) }
func (r FunctionRecord) payload() any     { return r }
func (r StepRecord) payload() any         { return r }
func (r ReturnRecord) payload() any       { return r }
func (r ValueEventRecord) payload() any   { return r.FullValueRecord }
func (r SpecialEventRecord) payload() any { return r }
func (DropLastStepRecord) payload() any   { return nil }

func (r CallRecord) payload() any {
	if r.Args == nil {
		r.Args = []FullValueRecord{}
	}
	return r
}

type specificInfoWire struct {
	Kind   string             `json:"kind" msgpack:"kind"`
	Fields *[]FieldTypeRecord `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

type typeRecordWire struct {
	Kind         TypeKind         `json:"kind" msgpack:"kind"`
	LangType     string           `json:"lang_type" msgpack:"lang_type"`
	SpecificInfo specificInfoWire `json:"specific_info" msgpack:"specific_info"`
}

func typeWire(r TypeRecord) typeRecordWire {
	w := typeRecordWire{Kind: r.Kind, LangType: r.LangType, SpecificInfo: specificInfoWire{Kind: r.SpecificInfo.Kind}}
	if r.SpecificInfo.Kind == "Struct" {
		fields := r.SpecificInfo.Fields
		if fields == nil {
			fields = []FieldTypeRecord{}
		}
		w.SpecificInfo.Fields = &fields
	}
	return w
}

func (w typeRecordWire) record() TypeRecord {
	r := TypeRecord{Kind: w.Kind, LangType: w.LangType, SpecificInfo: SpecificInfo{Kind: w.SpecificInfo.Kind}}
	if w.SpecificInfo.Fields != nil {
		r.SpecificInfo.Fields = *w.SpecificInfo.Fields
	}
	return r
}

var (
	_ Event = PathRecord{}
	_ Event = VariableNameRecord{}
	_ Event = TypeRecord{}
	_ Event = FunctionRecord{}
	_ Event = StepRecord{}
	_ Event = CallRecord{}
	_ Event = ReturnRecord{}
	_ Event = ValueEventRecord{}
	_ Event = SpecialEventRecord{}
	_ Event = DropLastStepRecord{}
)
