// Package journal records game events as an append-only text log.
//
// Producers call Record while still holding whichever game lock produced the
// event, so the order of lines in the journal is the order the events really
// happened in. Sinks serialize under their own lock, which always comes last
// in the lock order (turn lock, bag lock, journal lock).
package journal

import (
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Sink receives journal events.
type Sink interface {
	Record(Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Event) {}

// TextSink writes one line per event.
type TextSink struct {
	mu     sync.Mutex
	logger *log.Logger
	closer io.Closer
}

// NewTextSink returns a sink writing plain lines to w. If w is an io.Closer it
// is closed by Close.
func NewTextSink(w io.Writer) *TextSink {
	s := &TextSink{
		logger: log.NewWithOptions(w, log.Options{
			Level:           log.DebugLevel,
			ReportTimestamp: false,
			Formatter:       log.TextFormatter,
		}),
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Record appends the event to the journal.
func (s *TextSink) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Print(e.Message())
}

// Close closes the underlying writer.
func (s *TextSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Cards = slices.Clone(e.Cards)
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// OfType returns the recorded events of the given types, in order.
func (r *Recorder) OfType(types ...EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if slices.Contains(types, e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// Tee fans an event out to several sinks in order.
type Tee []Sink

func (t Tee) Record(e Event) {
	for _, s := range t {
		s.Record(e)
	}
}
