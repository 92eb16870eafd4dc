package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SummaryFile is written into the output root at the end of every run.
const SummaryFile = "run_summary.yaml"

// RunSummary is the content of run_summary.yaml.
type RunSummary struct {
	RunID      string           `yaml:"run_id"`
	StartedAt  time.Time        `yaml:"started_at"`
	FinishedAt time.Time        `yaml:"finished_at"`
	Elapsed    string           `yaml:"elapsed"`
	Input      string           `yaml:"input"`
	Output     string           `yaml:"output"`
	Config     string           `yaml:"config"`
	Force      bool             `yaml:"force"`
	AppendMode bool             `yaml:"append_mode"`
	BatchSize  int              `yaml:"batch_size"`
	Workers    int              `yaml:"workers"`
	Steps      []string         `yaml:"steps"`
	Counts     SummaryCounts    `yaml:"counts"`
	Reports    []string         `yaml:"reports"`
	Failures   []SummaryFailure `yaml:"failures,omitempty"`
}

type SummaryCounts struct {
	Total           int `yaml:"total"`
	Processed       int `yaml:"processed"`
	Skipped         int `yaml:"skipped"`
	Failed          int `yaml:"failed"`
	AggregateFailed int `yaml:"aggregate_failed"`
	NotStarted      int `yaml:"not_started"`
	Rows            int `yaml:"rows"`
}

type SummaryFailure struct {
	File  string `yaml:"file"`
	Stage Stage  `yaml:"stage"`
	Error string `yaml:"error"`
}

func writeSummary(path string, s RunSummary) error {
	b, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by a previous run in outRoot.
func ReadSummary(outRoot string) (*RunSummary, error) {
	b, err := os.ReadFile(filepath.Join(outRoot, SummaryFile))
	if err != nil {
		return nil, err
	}
	var s RunSummary
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
