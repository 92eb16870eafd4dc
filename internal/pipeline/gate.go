package pipeline

import (
	"fmt"
	"os"
)

// Decision is the idempotency gate's verdict for one file.
type Decision int

const (
	Proceed   Decision = iota // No previous output.
	Skip                      // Previous output kept; the file is not processed.
	Overwrite                 // Previous output removed; process from scratch.
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case Skip:
		return "skip"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Gate decides what to do with a file whose outputs go to dir. The existence
// of dir is the only signal. With force set an existing dir is removed
// recursively before Overwrite is returned. No lock is taken: callers must
// give each file its own dir.
func Gate(dir string, force bool) (Decision, error) {
	_, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return Proceed, nil
	case err != nil:
		return Proceed, fmt.Errorf("check output directory: %w", err)
	}

	if !force {
		return Skip, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return Overwrite, fmt.Errorf("remove previous output: %w", err)
	}
	return Overwrite, nil
}
