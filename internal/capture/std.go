package capture

import (
	"io"
	"os"
	"runtime"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
)

// StdOps returns operations that print to w the way the host language's
// Kernel#p, #puts and #print do.
func StdOps(w io.Writer) Ops {
	return Ops{
		P: func(_ source.Location, args []Arg) {
			for _, a := range args {
				io.WriteString(w, a.Inspect+"\n")
			}
		},
		Puts: func(_ source.Location, args []Arg) {
			lines := putsLines(nil, args)
			if len(lines) == 0 {
				io.WriteString(w, "\n")
				return
			}
			for _, l := range lines {
				if len(l) > 0 && l[len(l)-1] == '\n' {
					io.WriteString(w, l)
					continue
				}
				io.WriteString(w, l+"\n")
			}
		},
		Print: func(_ source.Location, args []Arg) {
			io.WriteString(w, RenderPrint(args))
		},
	}
}

// putsLines lists the lines Kernel#puts prints for args. Arrays print their
// elements recursively; an empty array prints an empty line.
func putsLines(dst []string, args []Arg) []string {
	for _, a := range args {
		switch {
		case a.Elements == nil:
			dst = append(dst, a.Display)
		case len(a.Elements) == 0:
			dst = append(dst, "")
		default:
			dst = putsLines(dst, a.Elements)
		}
	}
	return dst
}

// Default is the process-wide coordinator writing to standard output.
var Default = NewCoordinator(StdOps(os.Stdout))

// P writes values through Default as Kernel#p would, attributed to the caller.
func P(values ...any) { Default.P(caller(), Args(values...)) }

// Puts writes values through Default as Kernel#puts would.
func Puts(values ...any) { Default.Puts(caller(), Args(values...)) }

// Print writes values through Default as Kernel#print would.
func Print(values ...any) { Default.Print(caller(), Args(values...)) }

func caller() source.Location {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return source.Location{}
	}
	return source.Location{Path: file, Line: int64(line)}
}
