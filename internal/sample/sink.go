package sample

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunInfo describes one collection run.
type RunInfo struct {
	ID      string
	Index   int
	Gesture string
	Started time.Time
	Samples int
}

// Sink persists the samples of a run. Begin is called once before the first
// sample, End once after the last one.
type Sink interface {
	Begin(run RunInfo) error
	Write(s Sample) error
	End() error
}

// Aborter is implemented by sinks that record an interrupted run
// differently from a completed one.
type Aborter interface {
	Abort() error
}

// Abort ends an interrupted run on sink, through Abort when the sink
// implements Aborter and End otherwise.
func Abort(sink Sink) error {
	if a, ok := sink.(Aborter); ok {
		return a.Abort()
	}
	return sink.End()
}

// CSVWriter writes one CSV file per run into a directory.
type CSVWriter struct {
	dir  string
	file *os.File
	w    *csv.Writer
	path string
}

// NewCSVWriter creates a CSV sink rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// Begin creates the run file and writes the header row.
func (c *CSVWriter) Begin(run RunInfo) error {
	if c.file != nil {
		return errors.New("csv run already open")
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("handdata_run%03d_%s_%s.csv",
		run.Index, fileSafe(run.Gesture), run.Started.Format("20060102-150405"))
	path := filepath.Join(c.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}

	c.file = f
	c.w = w
	c.path = path
	return nil
}

// Write appends one row and flushes it.
func (c *CSVWriter) Write(s Sample) error {
	if c.w == nil {
		return errors.New("csv run not open")
	}
	if err := c.w.Write(Row(s)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// End closes the run file.
func (c *CSVWriter) End() error {
	if c.file == nil {
		return nil
	}
	c.w.Flush()
	flushErr := c.w.Error()
	closeErr := c.file.Close()
	c.file = nil
	c.w = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Path returns the file of the current or most recent run.
func (c *CSVWriter) Path() string {
	return c.path
}

// JSONDir writes one pretty-printed JSON file per sample, named
// <gesture>_sample_<n>.json, into a per-run directory.
type JSONDir struct {
	dir    string
	runDir string
}

// NewJSONDir creates a JSON sink rooted at dir.
func NewJSONDir(dir string) *JSONDir {
	return &JSONDir{dir: dir}
}

// Begin creates the run directory.
func (j *JSONDir) Begin(run RunInfo) error {
	runDir := filepath.Join(j.dir, fmt.Sprintf("run%03d_%s_json", run.Index, run.Started.Format("20060102-150405")))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("create json dir: %w", err)
	}
	j.runDir = runDir
	return nil
}

// Write stores one sample file.
func (j *JSONDir) Write(s Sample) error {
	if j.runDir == "" {
		return errors.New("json run not open")
	}
	data, err := Payload(s)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	path := filepath.Join(j.runDir, FileName(s))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write sample file: %w", err)
	}
	return nil
}

// End finishes the run.
func (j *JSONDir) End() error {
	j.runDir = ""
	return nil
}

// FileName is the per-sample JSON file name.
func FileName(s Sample) string {
	return fmt.Sprintf("%s_sample_%d.json", fileSafe(s.Gesture), s.Number)
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
