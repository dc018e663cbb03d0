package trace

import "errors"

// MultiTracer forwards every event to several tracers.
type MultiTracer struct {
	tracers []Tracer
	level   Level
}

// NewMultiTracer fans out to the enabled tracers among tracers.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	m := &MultiTracer{level: level}
	for _, tr := range tracers {
		if tr != nil && tr.Enabled() {
			m.tracers = append(m.tracers, tr)
		}
	}
	return m
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, tr := range t.tracers {
		// tracers stamp Seq on the event they get
		cp := *ev
		tr.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.tracers {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff && len(t.tracers) > 0 }
