package pipeline

import (
	"errors"
	"sync"

	"github.com/backmassage/qcrunner/internal/logging"
)

// Stage names where a file failed.
type Stage string

const (
	StageDispatch  Stage = "dispatch"
	StageProcess   Stage = "process"
	StageAggregate Stage = "aggregate"
)

var errUnknown = errors.New("unknown error")

// Failure is one file that did not make it into the report.
type Failure struct {
	File  string
	Stage Stage
	Err   error
}

// ErrorSink collects failures for the end-of-run report. Entries are only
// ever appended.
type ErrorSink struct {
	mu       sync.Mutex
	failures []Failure
	log      *logging.Logger
}

// NewErrorSink returns an empty sink. log may be nil.
func NewErrorSink(log *logging.Logger) *ErrorSink {
	return &ErrorSink{log: log}
}

// Record appends a failure and logs it. A nil err is stored as "unknown error".
func (s *ErrorSink) Record(file string, stage Stage, err error) {
	if err == nil {
		err = errUnknown
	}
	s.mu.Lock()
	s.failures = append(s.failures, Failure{File: file, Stage: stage, Err: err})
	s.mu.Unlock()

	if s.log != nil {
		s.log.Error("--->Error analyzing file (skipping):\t %s", file)
		s.log.Debug("%s failure for %s: %v", stage, file, err)
	}
}

// Failures returns a copy of the recorded failures in arrival order.
func (s *ErrorSink) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

// Len returns the number of failures.
func (s *ErrorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}
