// Package presentation receives the result of each validation pass. Nothing
// here decides validity; sinks only show what they are given.
package presentation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"formcheck/internal/form"
)

// Report is what a sink shows for one field. A reset report is valid with an
// empty message.
type Report struct {
	Field   form.FieldType
	Valid   bool
	Message string
}

// Sink presents reports.
type Sink interface {
	Present(ctx context.Context, r Report)
}

// WriterSink writes one line per report.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Present(_ context.Context, r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Valid {
		fmt.Fprintf(s.w, "ok      %s\n", r.Field)
		return
	}
	fmt.Fprintf(s.w, "invalid %s: %s\n", r.Field, r.Message)
}

// LogSink logs reports; invalid fields at info, valid ones at debug.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Present(ctx context.Context, r Report) {
	if r.Valid {
		s.logger.DebugContext(ctx, "field valid", "field", r.Field.String())
		return
	}
	s.logger.InfoContext(ctx, "field invalid",
		"field", r.Field.String(),
		"message", r.Message,
	)
}

// Recorder keeps the last report per field.
type Recorder struct {
	mu   sync.Mutex
	last map[form.FieldType]Report
	all  []Report
}

func NewRecorder() *Recorder {
	return &Recorder{last: make(map[form.FieldType]Report)}
}

func (r *Recorder) Present(_ context.Context, rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[rep.Field] = rep
	r.all = append(r.all, rep)
}

// Last returns the most recent report for t.
func (r *Recorder) Last(t form.FieldType) (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.last[t]
	return rep, ok
}

// Reports returns every report in arrival order.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.all...)
}

// Multi fans a report out to several sinks in order.
type Multi []Sink

func (m Multi) Present(ctx context.Context, r Report) {
	for _, s := range m {
		s.Present(ctx, r)
	}
}
