// Package term resolves whether ANSI colors should be used and provides the
// escape sequences for each log level.
//
// A disabled [Palette] holds empty strings, so callers can concatenate its
// fields unconditionally.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/qcrunner/internal/config"
)

// Palette is the set of escape sequences used by the logger and banner.
type Palette struct {
	Red     string
	Green   string
	Yellow  string
	Blue    string
	Cyan    string
	Magenta string
	Reset   string
}

var colored = Palette{
	Red:     "\033[1;91m",
	Green:   "\033[1;92m",
	Yellow:  "\033[1;93m",
	Blue:    "\033[1;94m",
	Cyan:    "\033[1;96m",
	Magenta: "\033[1;95m",
	Reset:   "\033[0m",
}

// NewPalette returns the colored palette when mode (and, for auto, the
// environment) allows it, and the empty palette otherwise.
func NewPalette(mode config.ColorMode) Palette {
	if resolve(mode) {
		return colored
	}
	return Palette{}
}

// Enabled reports whether p emits any escape sequences.
func (p Palette) Enabled() bool { return p.Reset != "" }

// resolve honors NO_COLOR (https://no-color.org) and TERM=dumb in auto mode.
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY (character device).
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
