package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into run, output, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// ErrHelpOrVersion is returned by ParseArgs when --help or --version was
// handled; the caller should exit successfully.
var ErrHelpOrVersion = errors.New("help or version requested")

// ParseFlags parses os.Args into cfg. On --help or --version it prints and exits.
// On error it returns non-nil (e.g. unknown flag, missing positional args).
func ParseFlags(cfg *Config, version string) error {
	err := ParseArgs(cfg, version, os.Args[1:], os.Stderr)
	if errors.Is(err, ErrHelpOrVersion) {
		os.Exit(0)
	}
	return err
}

// ParseArgs is the testable core of [ParseFlags]. Usage and version text go to out.
func ParseArgs(cfg *Config, version string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("qcrunner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { printUsage(out, version) }

	var negated negatedFlags

	defineRunFlags(fs, cfg)
	defineOutputFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	// Positionals may appear before or after flags; collect them between passes.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				printUsage(out, version)
				return ErrHelpOrVersion
			}
			return err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(out, version)
		return ErrHelpOrVersion
	}
	if negated.showVersion {
		fmt.Fprintln(out, "qcrunner v"+version)
		return ErrHelpOrVersion
	}

	return parsePositionalArgs(positional, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineRunFlags registers -c/--config, -n/--nthreads, -b/--batch, -f/--force.
func defineRunFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Config file to use")
	fs.StringVar(&cfg.ConfigPath, "c", cfg.ConfigPath, "Same as --config")
	fs.IntVar(&cfg.Workers, "nthreads", cfg.Workers, "Number of workers to launch")
	fs.IntVar(&cfg.Workers, "n", cfg.Workers, "Same as --nthreads")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "Break results file into subfiles of this size")
	fs.IntVar(&cfg.BatchSize, "b", cfg.BatchSize, "Same as --batch")
	fs.BoolVar(&cfg.Force, "force", false, "Force overwriting of existing outputs")
	fs.BoolVar(&cfg.Force, "f", false, "Same as --force")
}

// defineOutputFlags registers -o/--outdir and --history.
func defineOutputFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.OutputDir, "outdir", cfg.OutputDir, "Output directory")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "Same as --outdir")
	fs.StringVar(&cfg.HistoryDB, "history", "", "Record runs and failures in this SQLite file")
}

// defineDisplayFlags registers --color, --no-color, verbose.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
}

// defineUtilityFlags registers --check, --list-steps, --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Validate config, pipeline and paths, then exit")
	fs.BoolVar(&cfg.ListSteps, "list-steps", false, "Print available pipeline steps and exit")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputPattern from the single positional arg.
// --check and --list-steps do not need one.
func parsePositionalArgs(args []string, cfg *Config) error {
	cfg.OutputDir = NormalizeDirArg(cfg.OutputDir)
	if cfg.CheckOnly || cfg.ListSteps {
		if len(args) == 1 {
			cfg.InputPattern = args[0]
		}
		if len(args) > 1 {
			return fmt.Errorf("need at most one input_pattern")
		}
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("need exactly one input_pattern (try: '*.svs')")
	}
	cfg.InputPattern = args[0]
	return nil
}

// printUsage writes the help text to out. Column-aligned for readability.
func printUsage(out io.Writer, version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "qcrunner v" + version + " - parallel per-file analysis pipeline"},
		{"", ""},
		{"  qcrunner [OPTIONS] <input_pattern>", ""},
		{"", ""},
		{"Run", ""},
		{"  -c, --config <path>", "Config file to use (default: ./config.ini)"},
		{"  -n, --nthreads <n>", "Number of workers (default: 2)"},
		{"  -b, --batch <rows>", "Rows per results file (default: unbounded)"},
		{"  -f, --force", "Overwrite existing per-file outputs and reports"},
		{"", ""},
		{"Output", ""},
		{"  -o, --outdir <dir>", "Output directory (default: output)"},
		{"  --history <path>", "Record runs and failures in a SQLite file"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  --check", "Validate config, pipeline and paths, then exit"},
		{"  --list-steps", "Print available pipeline steps and exit"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(out)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(out, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(out, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(out, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
