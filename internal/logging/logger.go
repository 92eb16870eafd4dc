// Package logging provides the leveled console logger and the run-scoped
// diagnostic log file.
//
// Console output is filtered by verbosity and optionally colored. The file
// sink, when attached, always receives every line (DEBUG included) in plain
// text so a finished run leaves a complete record behind.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/term"
)

// Logger provides leveled, optionally colored logging with an optional file
// sink. All methods are safe for concurrent use by worker goroutines.
type Logger struct {
	mu       sync.Mutex
	palette  term.Palette
	verbose  bool
	stdout   io.Writer
	stderr   io.Writer
	file     *os.File
	filePath string
}

// NewLogger resolves colors and verbosity from cfg. No file sink is attached
// until [Logger.OpenTemp].
func NewLogger(cfg *config.Config) *Logger {
	return &Logger{
		palette: term.NewPalette(cfg.ColorMode),
		verbose: cfg.Verbose,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Palette returns the colors in effect, for callers that print directly.
func (l *Logger) Palette() term.Palette { return l.palette }

// SetOutput redirects console output. Used by tests to capture lines.
func (l *Logger) SetOutput(stdout, stderr io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = stdout
	l.stderr = stderr
}

// OpenTemp attaches a file sink in the OS temp directory, named after runID.
// The run later moves it next to its results with [Logger.Relocate].
func (l *Logger) OpenTemp(runID string) error {
	f, err := os.CreateTemp("", "qcrunner-"+runID+"-*.log")
	if err != nil {
		return err
	}
	l.attach(f, f.Name())
	return nil
}

func (l *Logger) attach(f *os.File, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.filePath = path
}

// FilePath returns the current location of the file sink, or "" if none.
func (l *Logger) FilePath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filePath
}

// Relocate closes the file sink and moves it to dst. A rename is tried first;
// across filesystems the file is copied and the original removed. After
// Relocate the logger keeps writing to the console only.
func (l *Logger) Relocate(dst string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("no log file attached")
	}
	src := l.filePath
	err := l.file.Close()
	l.file = nil
	l.filePath = ""
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("move log %s -> %s: %w", src, dst, err)
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Close closes the log file if one is attached.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// line writes one record. console=false sends it to the file sink only.
func (l *Logger) line(level, color, text string, console bool) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + level + "] " + text + "\n"
	if console {
		out := l.stdout
		if level == "ERROR" {
			out = l.stderr
		}
		if color != "" {
			_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+l.palette.Reset+" "+text+"\n")
		} else {
			_, _ = io.WriteString(out, plain)
		}
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", l.palette.Blue, fmt.Sprintf(format, args...), true)
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", l.palette.Green, fmt.Sprintf(format, args...), true)
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", l.palette.Yellow, fmt.Sprintf(format, args...), true)
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", l.palette.Red, fmt.Sprintf(format, args...), true)
}

// Debug logs at DEBUG level (cyan). It always reaches the file sink and
// reaches the console only in verbose mode.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.line("DEBUG", l.palette.Cyan, fmt.Sprintf(format, args...), l.verbose)
}
