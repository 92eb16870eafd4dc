package config

// This file loads the INI pipeline description: the [pipeline] step list,
// per-step parameter sections, and the record seed section.

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Section and key names with fixed meaning in the pipeline file.
const (
	PipelineSection = "pipeline"
	StepsKey        = "steps"
)

// ErrNoPipeline is returned when the file has no [pipeline] steps entry or it is empty.
var ErrNoPipeline = errors.New("config has no [pipeline] steps")

// File is a parsed pipeline configuration. It is read-only after loading and
// safe to share between goroutines.
type File struct {
	path string
	data *ini.File
}

// Key names are case-insensitive and stored lowercased; section names keep
// their case.
var loadOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
	SpaceBeforeInlineComment:   true,
	InsensitiveKeys:            true,
}

// LoadFile parses the INI file at path.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	data, err := ini.LoadSources(loadOptions, stripNoise(b))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &File{path: path, data: data}, nil
}

// ParseBytes parses INI content held in memory. Path is reported as "<memory>".
func ParseBytes(b []byte) (*File, error) {
	data, err := ini.LoadSources(loadOptions, stripNoise(b))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &File{path: "<memory>", data: data}, nil
}

// stripNoise drops blank lines and full-line comments, indented or not.
// Inside a multi-line value the parser would otherwise keep an indented
// comment as part of the value and reject a blank line followed by another
// continuation.
func stripNoise(b []byte) []byte {
	lines := bytes.Split(b, []byte("\n"))
	out := make([][]byte, 0, len(lines))
	for _, line := range lines {
		t := bytes.TrimSpace(line)
		if len(t) == 0 || t[0] == '#' || t[0] == ';' {
			continue
		}
		out = append(out, line)
	}
	return bytes.Join(out, []byte("\n"))
}

// Path returns the location the file was loaded from.
func (f *File) Path() string { return f.path }

// PipelineSteps returns the non-blank entries of [pipeline] steps, trimmed,
// in file order.
func (f *File) PipelineSteps() ([]string, error) {
	if !f.data.HasSection(PipelineSection) {
		return nil, ErrNoPipeline
	}
	sec := f.data.Section(PipelineSection)
	if !sec.HasKey(StepsKey) {
		return nil, ErrNoPipeline
	}
	var refs []string
	for _, line := range strings.Split(sec.Key(StepsKey).String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		refs = append(refs, line)
	}
	if len(refs) == 0 {
		return nil, ErrNoPipeline
	}
	return refs, nil
}

// Section returns a fresh copy of the key/value pairs declared directly in the
// named section. The second result is false when the section does not exist;
// the map is then empty, never nil.
func (f *File) Section(name string) (map[string]string, bool) {
	if !f.data.HasSection(name) {
		return map[string]string{}, false
	}
	src := f.data.Section(name).KeysHash()
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, true
}
