package pipeline

import "fmt"

// ProcessError is a failure while processing one file. It never affects
// other files.
type ProcessError struct {
	File string
	Step string // Step ref, or "gate" / "mkdir" before the pipeline started.
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Step, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// AggregationError means a record declared an output field it does not hold.
// Nothing is written for that record.
type AggregationError struct {
	File  string
	Field string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: declared output field %q missing from record", e.File, e.Field)
}
