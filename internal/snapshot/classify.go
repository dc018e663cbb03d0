package snapshot

import (
	"reflect"
	"regexp"
	"time"
)

type class uint8

const (
	classUnsupported class = iota
	classNone
	classBool
	classInt
	classUint
	classFloat
	classString
	classSymbol
	classOrdered
	classAssociative
	classInterval
	classSet
	classTime
	classRegexp
	classComposite
	classRecord
	classGoStruct
	classObject
	classOpaque
)

var (
	timeType   = reflect.TypeFor[time.Time]()
	regexpType = reflect.TypeFor[*regexp.Regexp]()
	symbolType = reflect.TypeFor[Symbol]()
)

// classify picks the single encoding rule for v. Capability interfaces win
// over reflection so host values are never mistaken for plain Go values.
// The returned reflect.Value is v with pointers and interfaces unwrapped.
func classify(v any) (class, reflect.Value) {
	if v == nil {
		return classNone, reflect.Value{}
	}
	switch v.(type) {
	case Ordered:
		return classOrdered, reflect.Value{}
	case Associative:
		return classAssociative, reflect.Value{}
	case Interval:
		return classInterval, reflect.Value{}
	case SetLike:
		return classSet, reflect.Value{}
	case Composite:
		return classComposite, reflect.Value{}
	case Record:
		return classRecord, reflect.Value{}
	case Object:
		return classObject, reflect.Value{}
	case Opaque:
		return classOpaque, reflect.Value{}
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == regexpType {
		if rv.IsNil() {
			return classNone, rv
		}
		return classRegexp, rv
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return classNone, rv
		}
		rv = rv.Elem()
	}

	switch rv.Type() {
	case timeType:
		return classTime, rv
	case symbolType:
		return classSymbol, rv
	}

	switch rv.Kind() {
	case reflect.Bool:
		return classBool, rv
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt, rv
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUint, rv
	case reflect.Float32, reflect.Float64:
		return classFloat, rv
	case reflect.String:
		return classString, rv
	case reflect.Slice, reflect.Array:
		return classOrdered, rv
	case reflect.Map:
		if rv.IsNil() {
			return classNone, rv
		}
		return classAssociative, rv
	case reflect.Struct:
		return classGoStruct, rv
	default:
		return classUnsupported, rv
	}
}
