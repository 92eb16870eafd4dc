// Package config holds runtime configuration: defaults, CLI flag parsing,
// validation, and the INI pipeline file that describes which steps run.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Default values for flags that are not plain zero values.
const (
	DefaultOutputDir  = "output"
	DefaultConfigPath = "./config.ini"
	DefaultWorkers    = 2
)

// Config holds all run settings. It is populated by [DefaultConfig] and then
// mutated by [ParseFlags]; after [Config.Validate] succeeds it is treated as
// read-only and shared (by pointer) with every component of the run.
type Config struct {
	// Inputs and outputs.
	InputPattern string // Positional glob, e.g. "slides/*.svs".
	OutputDir    string // Default: "output".
	ConfigPath   string // Default: "./config.ini".

	// Behavior flags.
	Force     bool // Overwrite per-file outputs and previous reports.
	BatchSize int  // Rows per report file. 0 means unbounded (single results.tsv).
	Workers   int  // Default: 2. Fixed for the whole run.

	// Optional SQLite ledger of runs and failures. Empty disables it.
	HistoryDB string

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	CheckOnly bool      // Run --check diagnostics and exit.
	ListSteps bool      // Print the step catalogue and exit.
}

// DefaultConfig returns a Config with the documented defaults. Used as the
// base before [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		OutputDir:  DefaultOutputDir,
		ConfigPath: DefaultConfigPath,
		Force:      false,
		BatchSize:  0,
		Workers:    DefaultWorkers,
		ColorMode:  ColorAuto,
	}
}

// Unbounded reports whether report rotation is disabled.
func (c *Config) Unbounded() bool {
	return c.BatchSize == 0
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks numeric ranges and enum fields. Outside of ListSteps mode
// it also requires a config path and an output directory, and outside of
// CheckOnly mode an input pattern.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q", c.ColorMode)
	}
	if c.Workers < 1 {
		return fmt.Errorf("nthreads must be at least 1 (got %d)", c.Workers)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch must not be negative (got %d)", c.BatchSize)
	}

	if c.ListSteps {
		return nil
	}
	if c.ConfigPath == "" {
		return errors.New("config path must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output directory must not be empty")
	}
	if c.CheckOnly {
		return nil
	}
	if c.InputPattern == "" {
		return errors.New("need exactly one input_pattern")
	}
	return nil
}
