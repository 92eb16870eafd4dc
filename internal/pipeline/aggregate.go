package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/qcrunner/internal/record"
)

// ReportPattern matches every report file name the aggregator can produce.
const ReportPattern = "results*.tsv"

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// batchFile is the report file currently being written.
type batchFile struct {
	f         *os.File
	path      string
	rows      int
	hasHeader bool
}

// Aggregator turns finished records into TSV rows. It is owned by the
// coordinator goroutine and is not safe for concurrent use.
type Aggregator struct {
	outRoot    string
	batchSize  int // 0 means one unbounded file.
	appendMode bool

	index  int
	active *batchFile
	files  []string
	rows   int
}

// NewAggregator configures an aggregator writing under outRoot. Nothing is
// opened until [Aggregator.Open].
func NewAggregator(outRoot string, batchSize int, appendMode bool) *Aggregator {
	if batchSize < 0 {
		batchSize = 0
	}
	return &Aggregator{outRoot: outRoot, batchSize: batchSize, appendMode: appendMode}
}

// Open opens the first report file.
func (a *Aggregator) Open() error {
	if a.active != nil {
		return errors.New("aggregator already open")
	}
	return a.openBatch(1)
}

func (a *Aggregator) batchPath(index int) string {
	if a.batchSize == 0 {
		return filepath.Join(a.outRoot, "results.tsv")
	}
	return filepath.Join(a.outRoot, fmt.Sprintf("results_%d.tsv", index))
}

func (a *Aggregator) openBatch(index int) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if a.appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	path := a.batchPath(index)
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open report %s: %w", path, err)
	}
	a.index = index
	a.active = &batchFile{f: f, path: path}
	a.files = append(a.files, path)
	return nil
}

func (a *Aggregator) rotate() error {
	if err := a.active.f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", a.active.path, err)
	}
	next := a.index + 1
	a.active = nil
	return a.openBatch(next)
}

// Write appends rec as one row, rotating to the next batch file first when
// the active one is full. A record missing a declared output field yields an
// *AggregationError and leaves the report untouched.
func (a *Aggregator) Write(rec *record.Record) error {
	row, err := FormatRow(rec)
	if err != nil {
		return err
	}
	if a.active == nil {
		return errors.New("aggregator is not open")
	}
	if a.batchSize > 0 && a.active.rows >= a.batchSize {
		if err := a.rotate(); err != nil {
			return err
		}
	}

	if !a.appendMode && !a.active.hasHeader {
		if _, err := a.active.f.WriteString(FormatHeader(rec.Output)); err != nil {
			return fmt.Errorf("write header to %s: %w", a.active.path, err)
		}
		a.active.hasHeader = true
	}
	if _, err := a.active.f.WriteString(row); err != nil {
		return fmt.Errorf("write row to %s: %w", a.active.path, err)
	}
	a.active.rows++
	a.rows++
	return nil
}

// Close closes the active report file. It is safe to call more than once.
func (a *Aggregator) Close() error {
	if a.active == nil {
		return nil
	}
	err := a.active.f.Close()
	a.active = nil
	return err
}

// Files returns the report files opened so far, in batch order.
func (a *Aggregator) Files() []string {
	out := make([]string, len(a.files))
	copy(out, a.files)
	return out
}

// Rows returns the number of rows written by this aggregator.
func (a *Aggregator) Rows() int { return a.rows }

// FormatHeader renders the header line for the given output columns. Names
// are cleaned like cells so header and rows split into the same columns.
func FormatHeader(output []string) string {
	names := make([]string, len(output))
	for i, name := range output {
		names[i] = cellReplacer.Replace(name)
	}
	return strings.Join(names, "\t") + "\twarnings\n"
}

// FormatRow renders rec as one TSV line with len(rec.Output)+1 columns.
func FormatRow(rec *record.Record) (string, error) {
	cells := make([]string, 0, len(rec.Output)+1)
	for _, field := range rec.Output {
		v, ok := rec.Get(field)
		if !ok {
			return "", &AggregationError{File: rec.Path(), Field: field}
		}
		cells = append(cells, cell(v))
	}
	warnings := make([]string, len(rec.Warnings))
	for i, w := range rec.Warnings {
		warnings[i] = cellReplacer.Replace(w)
	}
	cells = append(cells, strings.Join(warnings, "|"))
	return strings.Join(cells, "\t") + "\n", nil
}

func cell(v interface{}) string {
	if ss, ok := v.([]string); ok {
		return cellReplacer.Replace(strings.Join(ss, "|"))
	}
	return cellReplacer.Replace(fmt.Sprint(v))
}

// hasPreviousReport reports whether outRoot already holds a report file.
func hasPreviousReport(outRoot string) (bool, error) {
	entries, err := os.ReadDir(outRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(ReportPattern, e.Name()); ok {
			return true, nil
		}
	}
	return false, nil
}
