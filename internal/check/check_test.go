package check

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/qcrunner/internal/config"
	"github.com/backmassage/qcrunner/internal/steps"
)

// mockLogger records every line with its level.
type mockLogger struct {
	lines []string
}

func (m *mockLogger) add(level, format string, args ...interface{}) {
	m.lines = append(m.lines, level+" "+fmt.Sprintf(format, args...))
}

func (m *mockLogger) Info(f string, a ...interface{})    { m.add("INFO", f, a...) }
func (m *mockLogger) Success(f string, a ...interface{}) { m.add("OK", f, a...) }
func (m *mockLogger) Warn(f string, a ...interface{})    { m.add("WARN", f, a...) }
func (m *mockLogger) Error(f string, a ...interface{})   { m.add("ERROR", f, a...) }
func (m *mockLogger) Debug(f string, a ...interface{})   { m.add("DEBUG", f, a...) }

func (m *mockLogger) String() string { return strings.Join(m.lines, "\n") }

func setup(t *testing.T, ini string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte(ini), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.img"), []byte("x"), 0o644))

	cfg := config.DefaultConfig()
	cfg.ConfigPath = cfgPath
	cfg.InputPattern = filepath.Join(dir, "*.img")
	cfg.OutputDir = filepath.Join(dir, "out")
	return cfg
}

func TestRun_AllPass(t *testing.T) {
	cfg := setup(t, "[pipeline]\nsteps = file.stat\n")
	log := &mockLogger{}

	require.NoError(t, Run(&cfg, steps.Default(), log))
	assert.Contains(t, log.String(), "OK Pipeline: 1 step(s)")
	assert.Contains(t, log.String(), "OK Input: 1 file(s)")
	assert.NoDirExists(t, cfg.OutputDir, "check must not create the output root")
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		ini     string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"bad step", "[pipeline]\nsteps = file.nope\n", nil, ErrPipelineInvalid},
		{"missing config", "", func(c *config.Config) { c.ConfigPath += ".missing" }, ErrConfigUnreadable},
		{"no inputs", "[pipeline]\nsteps = file.stat\n", func(c *config.Config) { c.InputPattern += ".none" }, ErrNoInputs},
		{"history dir", "[pipeline]\nsteps = file.stat\n", func(c *config.Config) {
			c.HistoryDB = filepath.Join(c.OutputDir, "nested", "h.db")
		}, ErrHistoryDirMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setup(t, tt.ini)
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := Run(&cfg, steps.Default(), &mockLogger{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_BadStepKeepsCause(t *testing.T) {
	cfg := setup(t, "[pipeline]\nsteps = file.nope\n")
	err := Run(&cfg, steps.Default(), &mockLogger{})
	assert.ErrorIs(t, err, steps.ErrUnresolvableFunction)
}

func TestCheckOutput_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.ErrorIs(t, checkOutput(path, false, &mockLogger{}), ErrOutputNotWritable)
}

func TestListSteps(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListSteps(&buf, steps.Default()))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "STEP"))
	for _, ref := range []string{"file.stat", "file.checksum", "image.header", "meta.fail"} {
		assert.Contains(t, out, ref)
	}
}
