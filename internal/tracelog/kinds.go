package tracelog

import "fmt"

// TypeKind classifies a registered type. The numeric codes are shared with
// the debugger's trace reader and are what gets serialized.
type TypeKind uint8

const (
	KindSeq     TypeKind = 0
	KindStruct  TypeKind = 6
	KindInt     TypeKind = 7
	KindFloat   TypeKind = 8
	KindString  TypeKind = 9
	KindCString TypeKind = 10
	KindChar    TypeKind = 11
	KindBool    TypeKind = 12
	KindRaw     TypeKind = 16
	KindError   TypeKind = 24
	KindNone    TypeKind = 30
)

func (k TypeKind) String() string {
	switch k {
	case KindSeq:
		return "Seq"
	case KindStruct:
		return "Struct"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindCString:
		return "CString"
	case KindChar:
		return "Char"
	case KindBool:
		return "Bool"
	case KindRaw:
		return "Raw"
	case KindError:
		return "Error"
	case KindNone:
		return "None"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// EventLogKind is the kind of a special (I/O or error) event.
type EventLogKind uint8

const (
	EventWrite EventLogKind = 0
	EventError EventLogKind = 11
)

func (k EventLogKind) String() string {
	switch k {
	case EventWrite:
		return "Write"
	case EventError:
		return "Error"
	default:
		return fmt.Sprintf("EventLogKind(%d)", uint8(k))
	}
}

// ValueKind is the variant tag of a ValueRecord.
type ValueKind string

const (
	ValueInt      ValueKind = "Int"
	ValueFloat    ValueKind = "Float"
	ValueString   ValueKind = "String"
	ValueBool     ValueKind = "Bool"
	ValueNone     ValueKind = "None"
	ValueError    ValueKind = "Error"
	ValueRaw      ValueKind = "Raw"
	ValueSequence ValueKind = "Sequence"
	ValueStruct   ValueKind = "Struct"
)

// EventKind names an event variant; it is the single key of the serialized
// event object.
type EventKind string

const (
	EventKindPath         EventKind = "Path"
	EventKindVariableName EventKind = "VariableName"
	EventKindType         EventKind = "Type"
	EventKindFunction     EventKind = "Function"
	EventKindStep         EventKind = "Step"
	EventKindCall         EventKind = "Call"
	EventKindReturn       EventKind = "Return"
	EventKindValue        EventKind = "Value"
	EventKindEvent        EventKind = "Event"
	EventKindDropLastStep EventKind = "DropLastStep"
)

// Well-known type and variable names.
const (
	TypeInteger = "Integer"
	TypeString  = "String"
	TypeBool    = "Bool"
	TypeSymbol  = "Symbol"
	TypeNoType  = "No type"
	TypeFloat   = "Float"

	TypeArray = "Array"
	TypeSet   = "Set"

	// ReturnValueName is the reserved variable holding a function's result.
	ReturnValueName = "<return_value>"
	// TopLevelName is the synthetic function wrapping the whole program.
	TopLevelName = "<top-level>"
	// SelfName is the synthetic first argument holding the receiver.
	SelfName = "self"
	// NotSupportedMessage is the message of the "not supported" Error value.
	NotSupportedMessage = "not supported"
)
