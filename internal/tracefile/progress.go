package tracefile

import "time"

// Status captures the progress of one artifact.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for an artifact (or for the whole write when File
// is empty).
type Event struct {
	File    string
	Status  Status
	Bytes   int64
	Err     error
	Elapsed time.Duration
}

// Sink receives progress events. It may be called from several goroutines.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
