package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/capture"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
)

// Format is the framing of the probe stream.
type Format string

const (
	FormatNDJSON  Format = "ndjson"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a stream format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ndjson", "json":
		return FormatNDJSON, nil
	case "msgpack", "mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("probe: unknown stream format %q (expected ndjson|msgpack)", s)
	}
}

// maxLine bounds a single NDJSON message.
const maxLine = 16 << 20

// Reader yields probe messages until io.EOF.
type Reader interface {
	Next() (*Message, error)
}

// NewReader returns a Reader for r in the given format.
func NewReader(r io.Reader, format Format) Reader {
	if format == FormatMsgpack {
		return &msgpackReader{dec: msgpack.NewDecoder(bufio.NewReader(r))}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &ndjsonReader{sc: sc}
}

type ndjsonReader struct {
	sc   *bufio.Scanner
	line int
}

func (r *ndjsonReader) Next() (*Message, error) {
	for r.sc.Scan() {
		r.line++
		data := bytes.TrimSpace(r.sc.Bytes())
		if len(data) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Line: r.line, Err: err}
		}
		return &m, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("probe: read stream: %w", err)
	}
	return nil, io.EOF
}

type msgpackReader struct {
	dec *msgpack.Decoder
}

func (r *msgpackReader) Next() (*Message, error) {
	var m Message
	if err := r.dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("probe: decode msgpack: %w", err)
	}
	return &m, nil
}

// DecodeError is a malformed NDJSON line. The stream stays usable.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("probe: line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StreamError is a failure of the probe stream itself, such as a truncated
// frame. Messages dispatched before it stand.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string { return e.Err.Error() }

func (e *StreamError) Unwrap() error { return e.Err }

// Exception is the traced program's uncaught exception.
type Exception struct {
	Message   string
	Backtrace []string
}

// Outcome summarizes how the traced program ended.
type Outcome struct {
	Status    int
	Exception *Exception
	Messages  uint64
	Skipped   uint64
}

// Dispatcher routes decoded messages: notifications to the Gate, output
// writes to the capture coordinator.
type Dispatcher struct {
	gate    *Gate
	capture *capture.Coordinator
	diag    trace.Tracer
	outcome Outcome
}

func NewDispatcher(gate *Gate, coord *capture.Coordinator, diag trace.Tracer) *Dispatcher {
	if diag == nil {
		diag = trace.Nop
	}
	return &Dispatcher{gate: gate, capture: coord, diag: diag}
}

// Outcome returns what the stream reported about program termination.
func (d *Dispatcher) Outcome() Outcome { return d.outcome }

// Dispatch delivers one message synchronously.
func (d *Dispatcher) Dispatch(m *Message) error {
	d.outcome.Messages++
	g := newGraph()
	switch m.Kind {
	case KindCall:
		d.gate.Call(&CallInfo{
			Path:     m.Path,
			Line:     m.Line,
			Class:    m.Class,
			Receiver: m.Receiver,
			Method:   m.Method,
			Params:   m.Params,
			Binding:  g.binding(m.Locals),
		})
	case KindReturn:
		v, err := g.decode(m.Value)
		if err != nil {
			// the Return still closes its Call; the value reads as nil
			trace.Point(d.diag, trace.ScopeEvent, "return value unavailable", err.Error())
			v = nil
		}
		d.gate.Return(&ReturnInfo{Path: m.Path, Line: m.Line, Value: v})
	case KindLine:
		d.gate.Line(&LineInfo{Path: m.Path, Line: m.Line, Binding: g.binding(m.Locals)})
	case KindRaise:
		d.gate.Raise(&RaiseInfo{Path: m.Path, Line: m.Line, Message: m.Message})
	case KindWrite:
		return d.write(m)
	case KindExit:
		status, err := safecast.Conv[int](m.Status)
		if err != nil {
			return fmt.Errorf("probe: exit status: %w", err)
		}
		d.outcome.Status = status
	case KindException:
		d.outcome.Exception = &Exception{Message: m.Message, Backtrace: m.Backtrace}
	default:
		return fmt.Errorf("probe: unknown message kind %q", m.Kind)
	}
	return nil
}

func (d *Dispatcher) write(m *Message) error {
	if d.capture == nil {
		return nil
	}
	loc := source.Location{Path: m.Path, Line: m.Line}
	if m.Frame != "" {
		if parsed, err := source.ParseFrame(m.Frame); err == nil {
			loc = parsed
		} else {
			trace.Point(d.diag, trace.ScopeEvent, "unparsable frame", m.Frame)
			loc = source.Location{}
		}
	}
	args := writeArgs(m.Args)
	ops := d.capture.Ops()
	switch m.Op {
	case "p":
		ops.P(loc, args)
	case "puts":
		ops.Puts(loc, args)
	case "print":
		ops.Print(loc, args)
	default:
		return fmt.Errorf("probe: unknown write op %q", m.Op)
	}
	return nil
}

func writeArgs(in []WriteArg) []capture.Arg {
	if in == nil {
		return nil
	}
	out := make([]capture.Arg, len(in))
	for i, a := range in {
		out[i] = capture.Arg{Inspect: a.Inspect, Display: a.Display}
		if a.Array {
			out[i].Elements = writeArgs(a.Elements)
			if out[i].Elements == nil {
				out[i].Elements = []capture.Arg{}
			}
		}
	}
	return out
}

// Run reads r to the end, dispatching every message. Malformed messages are
// reported to the diagnostic tracer and skipped; read failures end the run
// with a *StreamError.
func (d *Dispatcher) Run(ctx context.Context, r Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			d.skip(decErr)
			continue
		}
		if err != nil {
			return &StreamError{Err: err}
		}
		if err := d.Dispatch(m); err != nil {
			d.skip(err)
		}
	}
}

func (d *Dispatcher) skip(err error) {
	d.outcome.Skipped++
	trace.Point(d.diag, trace.ScopeEvent, "skip message", err.Error())
}
