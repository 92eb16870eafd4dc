package pipeline

import "time"

// RunStats tracks counters across one run.
type RunStats struct {
	RunID           string
	Total           int // Files matched by the input pattern.
	Processed       int // Pipeline completed.
	Skipped         int // Output directory already present.
	Failed          int // Dispatch or processing failures.
	AggregateFailed int // Processed but not written to the report.
	NotStarted      int // Left in the queue after an interrupt.
	Rows            int
	Batches         int
	InputBytes      int64
	AppendMode      bool
	ReportFiles     []string
	Elapsed         time.Duration
}

// Clean reports whether every file either reached the report or was skipped.
func (s *RunStats) Clean() bool {
	return s.Failed == 0 && s.AggregateFailed == 0 && s.NotStarted == 0
}
