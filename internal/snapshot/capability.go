package snapshot

// Host values describe themselves to the encoder through these capability
// interfaces. Plain Go values (slices, maps, structs, time.Time, ...) are
// classified by reflection instead.

// Symbol is an interned host string (a Ruby Symbol).
type Symbol string

// Ordered is an array-like collection.
type Ordered interface {
	Len() int
	At(i int) any
}

// Associative is a map-like collection. Its entries are never expanded.
type Associative interface {
	Associative() int // number of entries
}

// Interval is a range with two bounds.
type Interval interface {
	Bounds() (begin, end any)
}

// SetLike is an unordered collection of unique members.
type SetLike interface {
	SetMembers() []any
}

// Composite is an opaque host value with a small fixed set of named fields,
// e.g. a compiled pattern.
type Composite interface {
	CompositeName() string
	CompositeFields() (names []string, values []any)
}

// Record is a struct-like value with named members in declaration order.
type Record interface {
	RecordName() string
	Members() (names []string, values []any)
}

// Object is a generic object with instance attributes. Attribute names keep
// their host sigil ("@x"); the encoder strips it. InstanceVariable may fail,
// e.g. when a custom getter raises.
type Object interface {
	ClassName() string
	InstanceVariables() []string
	InstanceVariable(name string) (any, error)
	// Display is the object's display text, used when it has no attributes.
	Display() string
}

// Opaque is a host value recorded only by its display text.
type Opaque interface {
	ClassName() string
	RawText() string
}
