// Package record defines the per-file result record that pipeline steps
// mutate and the coordinator turns into a report row.
package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Reserved field names. They are stored in the typed slice fields of
// [Record] rather than in the general field map.
const (
	KeyOutput    = "output"
	KeyWarnings  = "warnings"
	KeyCompleted = "completed"
)

// Seeded field names set by [New].
const (
	KeyFilename = "filename"
	KeyOutDir   = "outdir"
	KeyDir      = "dir"
)

// SeedSection is the config section whose pairs seed every record.
const SeedSection = "record.Record"

// Errors returned when a step misuses a reserved field name.
var (
	ErrReservedType = errors.New("reserved field requires a []string value")
	ErrReservedKey  = errors.New("reserved field cannot be an output column")
)

func reserved(key string) bool {
	return key == KeyOutput || key == KeyWarnings || key == KeyCompleted
}

// Record accumulates one file's results. It is owned by exactly one worker
// goroutine until [Record.Sanitize] is called and it is handed to the
// coordinator; it is not safe for concurrent use.
type Record struct {
	// Output lists, in order, the field names emitted as report columns.
	Output []string
	// Warnings collects human-readable messages from steps.
	Warnings []string
	// Completed lists the steps that have run, in order.
	Completed []string

	fields map[string]interface{}
	path   string
	handle *os.File
}

// New creates the record for the input at path whose outputs go to outDir.
// Every seed pair becomes a field; the fixed fields filename, outdir and dir
// are set afterwards and win on conflict.
func New(path, outDir string, seed map[string]string) *Record {
	r := &Record{
		Output:    []string{KeyFilename},
		Warnings:  []string{},
		Completed: []string{},
		fields:    make(map[string]interface{}, len(seed)+3),
		path:      path,
	}
	for k, v := range seed {
		r.fields[k] = v
	}
	r.fields[KeyFilename] = filepath.Base(path)
	r.fields[KeyOutDir] = outDir
	r.fields[KeyDir] = filepath.Dir(path)
	return r
}

// Path returns the input file path.
func (r *Record) Path() string { return r.path }

// OutDir returns the per-file output directory.
func (r *Record) OutDir() string {
	s, _ := r.fields[KeyOutDir].(string)
	return s
}

// Get returns the value stored under key. Reserved names resolve to a copy
// of the matching slice.
func (r *Record) Get(key string) (interface{}, bool) {
	switch key {
	case KeyOutput:
		return append([]string(nil), r.Output...), true
	case KeyWarnings:
		return append([]string(nil), r.Warnings...), true
	case KeyCompleted:
		return append([]string(nil), r.Completed...), true
	}
	v, ok := r.fields[key]
	return v, ok
}

// Set stores v under key. Setting a reserved name replaces that slice and
// requires a []string; any other type fails with [ErrReservedType] and leaves
// the record unchanged.
func (r *Record) Set(key string, v interface{}) error {
	if !reserved(key) {
		r.fields[key] = v
		return nil
	}
	s, ok := v.([]string)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrReservedType, key, v)
	}
	s = append([]string(nil), s...)
	switch key {
	case KeyOutput:
		r.Output = s
	case KeyWarnings:
		r.Warnings = s
	default:
		r.Completed = s
	}
	return nil
}

// AddOutput sets key and appends it to Output unless already listed.
// Reserved names fail with [ErrReservedKey].
func (r *Record) AddOutput(key string, v interface{}) error {
	if reserved(key) {
		return fmt.Errorf("%w: %s", ErrReservedKey, key)
	}
	r.fields[key] = v
	for _, k := range r.Output {
		if k == key {
			return nil
		}
	}
	r.Output = append(r.Output, key)
	return nil
}

// Warn appends a formatted warning.
func (r *Record) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// MarkCompleted records that the named step finished.
func (r *Record) MarkCompleted(step string) {
	r.Completed = append(r.Completed, step)
}

// Open returns the input file positioned at offset 0. The handle is opened on
// first use and shared by later steps; it is internal to the worker and is
// released by [Record.Sanitize].
func (r *Record) Open() (io.ReadSeeker, error) {
	if r.handle == nil {
		f, err := os.Open(r.path)
		if err != nil {
			return nil, err
		}
		r.handle = f
	}
	if _, err := r.handle.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return r.handle, nil
}

// HasHandle reports whether an input handle is currently open.
func (r *Record) HasHandle() bool { return r.handle != nil }

// Sanitize releases internal-only state before the record leaves its worker.
// It is safe to call more than once.
func (r *Record) Sanitize() error {
	if r.handle == nil {
		return nil
	}
	err := r.handle.Close()
	r.handle = nil
	return err
}
