package capture

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Arg is one argument of an output call in the two textual forms the host
// language gives it. Elements is set for array arguments.
type Arg struct {
	Inspect  string
	Display  string
	Elements []Arg
}

// RenderP renders a p call: inspect forms joined by newlines. A single
// array argument renders its elements.
func RenderP(args []Arg) string {
	if len(args) == 1 && args[0].Elements != nil {
		args = args[0].Elements
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect
	}
	return strings.Join(parts, "\n")
}

// RenderPuts renders a puts call: display forms joined by newlines, nested
// arrays joined in place.
func RenderPuts(args []Arg) string {
	return join(args, "\n")
}

// RenderPrint renders a print call: display forms concatenated, nested
// arrays included.
func RenderPrint(args []Arg) string {
	return join(args, "")
}

// join joins display forms the way Array#join does: a nested array is
// joined with the same separator and takes one slot, so an empty one
// leaves an empty slot.
func join(args []Arg, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Elements != nil {
			parts[i] = join(a.Elements, sep)
		} else {
			parts[i] = a.Display
		}
	}
	return strings.Join(parts, sep)
}

// Args converts Go values with ArgOf.
func Args(values ...any) []Arg {
	out := make([]Arg, len(values))
	for i, v := range values {
		out[i] = ArgOf(v)
	}
	return out
}

// ArgOf describes a Go value the way the host language would print it:
// strings inspect quoted, nil inspects as "nil" and displays empty, slices
// and arrays become array arguments.
func ArgOf(v any) Arg {
	if v == nil {
		return Arg{Inspect: "nil", Display: ""}
	}
	switch x := v.(type) {
	case Arg:
		return x
	case string:
		return Arg{Inspect: strconv.Quote(x), Display: x}
	case fmt.Stringer:
		s := x.String()
		return Arg{Inspect: s, Display: s}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Arg{Inspect: "[]", Display: "[]", Elements: []Arg{}}
		}
		elems := make([]Arg, rv.Len())
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			elems[i] = ArgOf(rv.Index(i).Interface())
			parts[i] = elems[i].Inspect
		}
		text := "[" + strings.Join(parts, ", ") + "]"
		return Arg{Inspect: text, Display: text, Elements: elems}
	default:
		s := fmt.Sprint(v)
		return Arg{Inspect: s, Display: s}
	}
}
