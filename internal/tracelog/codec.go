package tracelog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Events is an event log in emission order. It serializes as an array of
// single-key objects, {"<EventKind>": payload}, in both JSON and msgpack.
type Events []Event

func (es Events) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, ev := range es {
		if i > 0 {
			buf.WriteByte(',')
		}
		payload, err := marshalJSON(ev.payload())
		if err != nil {
			return nil, fmt.Errorf("tracelog: event %d (%s): %w", i, ev.EventKind(), err)
		}
		key, _ := json.Marshal(string(ev.EventKind()))
		buf.WriteByte('{')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(payload)
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalJSON is json.Marshal without HTML escaping, so "<top-level>" and
// friends stay readable in trace.json.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (es *Events) UnmarshalJSON(data []byte) error {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tracelog: %w", err)
	}
	out := make(Events, 0, len(raw))
	for i, obj := range raw {
		if len(obj) != 1 {
			return fmt.Errorf("tracelog: event %d: expected one key, got %d", i, len(obj))
		}
		for key, payload := range obj {
			ev, err := decodeEvent(EventKind(key), func(v any) error {
				return json.Unmarshal(payload, v)
			})
			if err != nil {
				return fmt.Errorf("tracelog: event %d: %w", i, err)
			}
			out = append(out, ev)
		}
	}
	*es = out
	return nil
}

var (
	_ msgpack.CustomEncoder = Events(nil)
	_ msgpack.CustomDecoder = (*Events)(nil)
)

func (es Events) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(es)); err != nil {
		return err
	}
	for i, ev := range es {
		if err := enc.EncodeMapLen(1); err != nil {
			return err
		}
		if err := enc.EncodeString(string(ev.EventKind())); err != nil {
			return err
		}
		if err := enc.Encode(ev.payload()); err != nil {
			return fmt.Errorf("tracelog: event %d (%s): %w", i, ev.EventKind(), err)
		}
	}
	return nil
}

func (es *Events) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("tracelog: %w", err)
	}
	if n < 0 {
		*es = nil
		return nil
	}
	out := make(Events, 0, n)
	for i := range n {
		m, err := dec.DecodeMapLen()
		if err != nil {
			return fmt.Errorf("tracelog: event %d: %w", i, err)
		}
		if m != 1 {
			return fmt.Errorf("tracelog: event %d: expected one key, got %d", i, m)
		}
		key, err := dec.DecodeString()
		if err != nil {
			return fmt.Errorf("tracelog: event %d: %w", i, err)
		}
		ev, err := decodeEvent(EventKind(key), dec.Decode)
		if err != nil {
			return fmt.Errorf("tracelog: event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	*es = out
	return nil
}

// decodeEvent builds the event named by kind; decode fills a payload value.
func decodeEvent(kind EventKind, decode func(any) error) (Event, error) {
	switch kind {
	case EventKindPath:
		var path string
		if err := decode(&path); err != nil {
			return nil, err
		}
		return PathRecord{Path: path}, nil
	case EventKindVariableName:
		var name string
		if err := decode(&name); err != nil {
			return nil, err
		}
		return VariableNameRecord{Name: name}, nil
	case EventKindType:
		var w typeRecordWire
		if err := decode(&w); err != nil {
			return nil, err
		}
		return w.record(), nil
	case EventKindFunction:
		var r FunctionRecord
		err := decode(&r)
		return r, err
	case EventKindStep:
		var r StepRecord
		err := decode(&r)
		return r, err
	case EventKindCall:
		var r CallRecord
		err := decode(&r)
		return r, err
	case EventKindReturn:
		var r ReturnRecord
		err := decode(&r)
		return r, err
	case EventKindValue:
		var r FullValueRecord
		err := decode(&r)
		return ValueEventRecord{FullValueRecord: r}, err
	case EventKindEvent:
		var r SpecialEventRecord
		err := decode(&r)
		return r, err
	case EventKindDropLastStep:
		var ignored any
		err := decode(&ignored)
		return DropLastStepRecord{}, err
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}
