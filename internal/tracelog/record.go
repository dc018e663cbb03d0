package tracelog

import (
	"fmt"
	"slices"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
)

// ConsistencyError reports a violated invariant of the record itself, e.g.
// registering a type name twice. It is raised with panic: it is a bug in the
// recorder, not a problem with the traced program.
type ConsistencyError struct {
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("tracelog: %s: %s", e.Op, e.Detail)
}

// structVersion is one registered layout of a struct-shaped runtime type.
type structVersion struct {
	typeID TypeID
	fields []string
}

// Record owns the interning tables and the event log of one session.
// It is not safe for concurrent use; the recorder serializes access.
type Record struct {
	paths     *source.Interner[string]
	functions *source.Interner[string]
	variables *source.Interner[string]
	types     *source.Interner[string]

	structs map[string][]structVersion
	events  Events

	intType    TypeID
	stringType TypeID
	boolType   TypeID
	symbolType TypeID
	noType     TypeID

	trueValue    ValueRecord
	falseValue   ValueRecord
	nilValue     ValueRecord
	notSupported ValueRecord

	steps uint64
	diag  trace.Tracer
}

// NewRecord creates an empty record with the built-in types registered in
// their fixed order: Integer, String, Bool, Symbol, "No type".
func NewRecord() *Record {
	r := &Record{
		paths:     source.NewInterner[string](),
		functions: source.NewInterner[string](),
		variables: source.NewInterner[string](),
		types:     source.NewInterner[string](),
		structs:   make(map[string][]structVersion),
		diag:      trace.Nop,
	}
	r.intType = r.LoadTypeID(KindInt, TypeInteger)
	r.stringType = r.LoadTypeID(KindString, TypeString)
	r.boolType = r.LoadTypeID(KindBool, TypeBool)
	r.symbolType = r.LoadTypeID(KindString, TypeSymbol)
	r.noType = r.LoadTypeID(KindError, TypeNoType)

	r.trueValue = ValueRecord{Kind: ValueBool, TypeID: r.boolType, Bool: true}
	r.falseValue = ValueRecord{Kind: ValueBool, TypeID: r.boolType, Bool: false}
	r.nilValue = ValueRecord{Kind: ValueNone, TypeID: r.noType}
	r.notSupported = ValueRecord{Kind: ValueError, TypeID: r.noType, Msg: NotSupportedMessage}
	return r
}

// SetDiagnostics routes step counters to t.
func (r *Record) SetDiagnostics(t trace.Tracer) {
	if t == nil {
		t = trace.Nop
	}
	r.diag = t
}

func (r *Record) append(ev Event) {
	r.events = append(r.events, ev)
}

// Events returns the event log. The slice must not be modified.
func (r *Record) Events() Events { return r.events }

// Len returns the number of events.
func (r *Record) Len() int { return len(r.events) }

// Paths returns the interned paths in ID order.
func (r *Record) Paths() []string { return r.paths.Snapshot() }

// Counts reports the sizes of the four interning tables.
func (r *Record) Counts() (paths, functions, variables, types int) {
	return r.paths.Len(), r.functions.Len(), r.variables.Len(), r.types.Len()
}

// PathID interns path (NFC-normalized), emitting a Path event on first sight.
func (r *Record) PathID(path string) PathID {
	path = source.NormalizePath(path)
	id, isNew := r.paths.Intern(path)
	if isNew {
		r.append(PathRecord{Path: path})
	}
	return PathID(id)
}

// FunctionID interns a function by its qualified name. The path and line of
// the first sighting are kept; later definitions under the same name reuse
// the first ID.
func (r *Record) FunctionID(path string, line int64, name string) FunctionID {
	if id, ok := r.functions.ID(name); ok {
		return FunctionID(id)
	}
	pathID := r.PathID(path)
	id, _ := r.functions.Intern(name)
	r.append(FunctionRecord{PathID: pathID, Line: line, Name: name})
	return FunctionID(id)
}

// VariableID interns a variable name, emitting a VariableName event on first sight.
func (r *Record) VariableID(name string) VariableID {
	id, isNew := r.variables.Intern(name)
	if isNew {
		r.append(VariableNameRecord{Name: name})
	}
	return VariableID(id)
}

// RegisterType registers a new type name. Registering an existing name
// panics with *ConsistencyError: a second registration would hand out a
// type ID that disagrees with the first one.
func (r *Record) RegisterType(kind TypeKind, name string, info SpecificInfo) TypeID {
	id, isNew := r.types.Intern(name)
	if !isNew {
		panic(&ConsistencyError{Op: "register type", Detail: fmt.Sprintf("%q already registered as type %d", name, id)})
	}
	r.append(TypeRecord{Kind: kind, LangType: name, SpecificInfo: info})
	return TypeID(id)
}

// LoadTypeID returns the ID of name, registering it with NoneInfo if unseen.
func (r *Record) LoadTypeID(kind TypeKind, name string) TypeID {
	if id, ok := r.types.ID(name); ok {
		return TypeID(id)
	}
	return r.RegisterType(kind, name, NoneInfo)
}

// TypeIDFor looks a type name up without registering it.
func (r *Record) TypeIDFor(name string) (TypeID, bool) {
	id, ok := r.types.ID(name)
	return TypeID(id), ok
}

// StructTypeID resolves the struct type for runtime type name with the given
// field layout. A registered version of name with the same field names is
// reused; otherwise a new version "name (#k)" is registered, using fieldTypes
// (the type IDs of the first value seen) for its field declarations.
func (r *Record) StructTypeID(name string, fields []string, fieldTypes []TypeID) TypeID {
	for _, v := range r.structs[name] {
		if slices.Equal(v.fields, fields) {
			return v.typeID
		}
	}
	k := len(r.structs[name])
	decl := make([]FieldTypeRecord, len(fields))
	for i, f := range fields {
		decl[i] = FieldTypeRecord{Name: f, TypeID: r.noType}
		if i < len(fieldTypes) {
			decl[i].TypeID = fieldTypes[i]
		}
	}
	id := r.RegisterType(KindStruct, fmt.Sprintf("%s (#%d)", name, k), StructInfo(decl))
	r.structs[name] = append(r.structs[name], structVersion{typeID: id, fields: slices.Clone(fields)})
	return id
}

// StructVersions returns how many layouts of name have been registered.
func (r *Record) StructVersions(name string) int {
	return len(r.structs[name])
}

// RegisterStep appends a Step at path:line.
func (r *Record) RegisterStep(path string, line int64) {
	r.append(StepRecord{PathID: r.PathID(path), Line: line})
	r.steps++
	if r.steps%1000 == 0 {
		trace.Pointf(r.diag, trace.ScopeEvent, "steps", "%d", r.steps)
	}
}

// RegisterCall appends a Call of the named function with its arguments.
func (r *Record) RegisterCall(path string, line int64, name string, args []FullValueRecord) {
	fid := r.FunctionID(path, line, name)
	r.append(CallRecord{FunctionID: fid, Args: args})
}

// RegisterVariable appends a full Value record binding value to name.
func (r *Record) RegisterVariable(name string, value ValueRecord) {
	r.append(ValueEventRecord{FullValueRecord{VariableID: r.VariableID(name), Value: value}})
}

// Arg interns name and pairs it with value for a Call record.
func (r *Record) Arg(name string, value ValueRecord) FullValueRecord {
	return FullValueRecord{VariableID: r.VariableID(name), Value: value}
}

// RegisterReturn appends a Return carrying value.
func (r *Record) RegisterReturn(value ValueRecord) {
	r.append(ReturnRecord{ReturnValue: value})
}

// RegisterSpecialEvent appends an I/O or error event.
func (r *Record) RegisterSpecialEvent(kind EventLogKind, content string) {
	r.append(SpecialEventRecord{Kind: kind, Content: content})
}

// DropLastStep appends a DropLastStep marker.
func (r *Record) DropLastStep() {
	r.append(DropLastStepRecord{})
}

// Steps returns the number of Step events registered so far.
func (r *Record) Steps() uint64 { return r.steps }
