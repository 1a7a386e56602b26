// Package audit implements the progress-event emitter, per-operation
// duration histograms, and the rotating audit log that together give a
// caller visibility into one invocation's progress and a durable
// record of what ran.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Event is one progress notification. Ids are strictly monotonic
// within an Emitter's lifetime, independent of which operation emitted
// them, so a consumer can detect drops or reordering.
type Event struct {
	ID            uint64    `json:"id"`
	Time          time.Time `json:"time"`
	Operation     string    `json:"operation"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

// Sink receives emitted events as they're produced.
type Sink interface {
	Write(Event) error
}

// Emitter assigns monotonic ids and fans events out to a Sink. The
// zero value is not usable; construct with NewEmitter.
type Emitter struct {
	sink    Sink
	nextID  atomic.Uint64
	scrub   func(string) string
}

// ScrubFunc applies redaction before an event reaches its sink (e.g.
// internal/redact.Registry.Scrub). Optional; nil performs no scrubbing.
type ScrubFunc func(string) string

// NewEmitter returns an Emitter writing to sink. scrub, if non-nil, is
// applied to Message before every write.
func NewEmitter(sink Sink, scrub ScrubFunc) *Emitter {
	e := &Emitter{sink: sink}
	if scrub != nil {
		e.scrub = scrub
	}
	return e
}

// Emit assigns the next id and timestamp to the event and writes it.
func (e *Emitter) Emit(operation, message string, fields map[string]any) error {
	msg := message
	if e.scrub != nil {
		msg = e.scrub(msg)
	}
	ev := Event{
		ID:        e.nextID.Add(1),
		Time:      time.Now(),
		Operation: operation,
		Message:   msg,
		Fields:    fields,
	}
	return e.sink.Write(ev)
}

// EmitWithCorrelation is Emit but attaches a caller-supplied
// correlation id (see NewCorrelationID), used to tie together every
// event from one sub-operation (a single feature install, a single OCI
// fetch) across log lines.
func (e *Emitter) EmitWithCorrelation(operation, message, correlationID string, fields map[string]any) error {
	msg := message
	if e.scrub != nil {
		msg = e.scrub(msg)
	}
	ev := Event{
		ID:            e.nextID.Add(1),
		Time:          time.Now(),
		Operation:     operation,
		Message:       msg,
		CorrelationID: correlationID,
		Fields:        fields,
	}
	return e.sink.Write(ev)
}

// NewCorrelationID returns a short id suitable for attaching to a
// related group of events.
func NewCorrelationID() (string, error) {
	return gonanoid.New(12)
}

// WriterSink writes one JSON object per line to an io.Writer. Used for
// both the stdout sink and (wrapped around a rotating Log) the audit log
// file sink.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a Sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

// NullSink discards every event. Used for the "silent" emitter mode.
type NullSink struct{}

func (NullSink) Write(Event) error { return nil }
