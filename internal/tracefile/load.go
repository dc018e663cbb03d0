package tracefile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

// Trace is a loaded set of artifacts.
type Trace struct {
	Dir      string
	Format   Format
	Events   tracelog.Events
	Metadata Metadata
	Paths    []string
}

// Load reads the artifacts in dir. The event log format is detected from
// which of trace.json and trace.bin exists; trace.json wins when both do.
func Load(dir string) (*Trace, error) {
	t := &Trace{Dir: dir}

	format, err := detect(dir)
	if err != nil {
		return nil, err
	}
	t.Format = format

	f, err := os.Open(filepath.Join(dir, format.FileName()))
	if err != nil {
		return nil, fmt.Errorf("tracefile: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	if format == FormatBinary {
		err = msgpack.NewDecoder(r).Decode(&t.Events)
	} else {
		err = json.NewDecoder(r).Decode(&t.Events)
	}
	if err != nil {
		return nil, fmt.Errorf("tracefile: decode %s: %w", format.FileName(), err)
	}

	if err := readJSON(filepath.Join(dir, MetadataFile), &t.Metadata); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, PathsFile), &t.Paths); err != nil {
		return nil, err
	}
	return t, nil
}

func detect(dir string) (Format, error) {
	for _, f := range []Format{FormatJSON, FormatBinary} {
		_, err := os.Stat(filepath.Join(dir, f.FileName()))
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("tracefile: %w", err)
		}
	}
	return "", fmt.Errorf("tracefile: no %s or %s in %s", TraceJSON, TraceBinary, dir)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tracefile: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("tracefile: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Problem is one reference to an ID that was not declared before use.
type Problem struct {
	Index  int
	Kind   tracelog.EventKind
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("event %d (%s): %s", p.Index, p.Kind, p.Detail)
}

// Report summarizes a verified trace.
type Report struct {
	Events    int
	Paths     int
	Functions int
	Variables int
	Types     int
	Steps     int
	Calls     int
	Returns   int
	Values    int
	IO        int
	Errors    int
	Problems  []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

// Verify checks that every path, function, variable and type ID, including
// those nested in values and struct field types, refers to a declaration
// earlier in the log. It also checks that the paths file matches the Path
// declarations.
func Verify(t *Trace) *Report {
	v := &verifier{rep: &Report{Events: len(t.Events)}}
	for i, ev := range t.Events {
		v.at, v.kind = i, ev.EventKind()
		v.event(ev)
	}
	r := v.rep
	if len(t.Paths) != r.Paths {
		r.Problems = append(r.Problems, Problem{
			Index:  -1,
			Kind:   tracelog.EventKindPath,
			Detail: fmt.Sprintf("%s lists %d paths, log declares %d", PathsFile, len(t.Paths), r.Paths),
		})
	}
	return r
}

type verifier struct {
	rep  *Report
	at   int
	kind tracelog.EventKind
}

func (v *verifier) problem(format string, args ...any) {
	v.rep.Problems = append(v.rep.Problems, Problem{Index: v.at, Kind: v.kind, Detail: fmt.Sprintf(format, args...)})
}

func (v *verifier) check(what string, id, limit int) {
	if id < 0 || id >= limit {
		v.problem("%s %d out of range [0, %d)", what, id, limit)
	}
}

func (v *verifier) value(val tracelog.ValueRecord) {
	val.Walk(func(x tracelog.ValueRecord) {
		v.check("type_id", int(x.TypeID), v.rep.Types)
	})
}

func (v *verifier) full(fv tracelog.FullValueRecord) {
	v.check("variable_id", int(fv.VariableID), v.rep.Variables)
	v.value(fv.Value)
}

func (v *verifier) event(ev tracelog.Event) {
	r := v.rep
	switch e := ev.(type) {
	case tracelog.PathRecord:
		r.Paths++
	case tracelog.VariableNameRecord:
		r.Variables++
	case tracelog.TypeRecord:
		for _, f := range e.SpecificInfo.Fields {
			v.check("field type_id", int(f.TypeID), r.Types)
		}
		r.Types++
	case tracelog.FunctionRecord:
		v.check("path_id", int(e.PathID), r.Paths)
		r.Functions++
	case tracelog.StepRecord:
		v.check("path_id", int(e.PathID), r.Paths)
		r.Steps++
	case tracelog.CallRecord:
		v.check("function_id", int(e.FunctionID), r.Functions)
		for _, a := range e.Args {
			v.full(a)
		}
		r.Calls++
	case tracelog.ReturnRecord:
		v.value(e.ReturnValue)
		r.Returns++
	case tracelog.ValueEventRecord:
		v.full(e.FullValueRecord)
		r.Values++
	case tracelog.SpecialEventRecord:
		if e.Kind == tracelog.EventError {
			r.Errors++
		} else {
			r.IO++
		}
	case tracelog.DropLastStepRecord:
	default:
		v.problem("unexpected event %T", ev)
	}
}
