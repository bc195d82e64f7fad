// Package metrics holds the scalar sinks a training run writes to: an
// append-only JSONL stream and an HTML/JSON report regenerated on flush.
package metrics

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeu5/rl-trainer/core"
)

const (
	StreamFile  = "metrics.jsonl"
	ChartFile   = "metrics.html"
	SummaryFile = "summary.json"
)

// Event is one line of the JSONL stream
type Event struct {
	Name  string    `json:"name"`
	Value float64   `json:"value"`
	Step  int       `json:"step"`
	Time  time.Time `json:"time"`
}

// StreamWriter appends every scalar to a JSONL file
type StreamWriter struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	now  func() time.Time
}

var _ core.MetricsSink = &StreamWriter{}

func NewStreamWriter(path string) (*StreamWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening metrics stream: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &StreamWriter{
		file: file,
		buf:  buf,
		enc:  json.NewEncoder(buf),
		now:  time.Now,
	}, nil
}

func (s *StreamWriter) RecordScalar(name string, value float64, step int) error {
	return s.enc.Encode(Event{Name: name, Value: value, Step: step, Time: s.now()})
}

func (s *StreamWriter) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *StreamWriter) Close() error {
	err := s.buf.Flush()
	return errors.Join(err, s.file.Close())
}

// MultiSink fans every call out to all of its sinks
type MultiSink []core.MetricsSink

var _ core.MetricsSink = MultiSink{}

func (m MultiSink) RecordScalar(name string, value float64, step int) error {
	for _, s := range m {
		if err := s.RecordScalar(name, value, step); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Flush() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Flush())
	}
	return errors.Join(errs...)
}

// Destination is the metrics output of a run directory
type Destination struct {
	MultiSink
	stream *StreamWriter
	report *Report
}

// Open creates the metrics stream and report inside dir
func Open(dir string) (*Destination, error) {
	stream, err := NewStreamWriter(filepath.Join(dir, StreamFile))
	if err != nil {
		return nil, err
	}
	report := NewReport(dir)
	return &Destination{
		MultiSink: MultiSink{stream, report},
		stream:    stream,
		report:    report,
	}, nil
}

func (d *Destination) Report() *Report {
	return d.report
}

func (d *Destination) Close() error {
	return d.stream.Close()
}
