package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval while a traced
// program runs. Each beat carries the recording progress, so beats with an
// unchanged count mean the program is blocked rather than the recorder.
type Heartbeat struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartHeartbeat starts beating into tracer. progress, when non-nil, is
// appended to every beat. It returns nil when tracer is disabled or interval
// is not positive; Stop on a nil Heartbeat is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration, progress func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go h.run(tracer, interval, progress)
	return h
}

func (h *Heartbeat) run(tracer Tracer, interval time.Duration, progress func() string) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for beat := 1; ; beat++ {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}
		detail := fmt.Sprintf("#%d", beat)
		if progress != nil {
			detail += " " + progress()
		}
		tracer.Emit(&Event{
			Time:   time.Now(),
			Seq:    NextSeq(),
			Kind:   KindHeartbeat,
			Scope:  ScopeSession,
			GID:    GoroutineID(),
			Name:   "heartbeat",
			Detail: detail,
		})
	}
}

// Stop ends the heartbeat and waits for its goroutine. It may be called
// more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
