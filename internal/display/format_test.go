package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/backmassage/qcrunner/internal/term"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"typical slide 700 MiB", 734003200, "700.0 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"sub-second", 300 * time.Millisecond, "0.3s"},
		{"seconds", 6700 * time.Millisecond, "6.7s"},
		{"minutes", 4*time.Minute + 5*time.Second, "4m05s"},
		{"hours", time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.d)
			if got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestPlural(t *testing.T) {
	if got := Plural(1, "file"); got != "1 file" {
		t.Errorf("Plural(1) = %q", got)
	}
	if got := Plural(0, "file"); got != "0 files" {
		t.Errorf("Plural(0) = %q", got)
	}
}

func TestPrintBanner_PlainHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, term.Palette{})
	if strings.Contains(buf.String(), "\033[") {
		t.Error("plain banner contains escape sequences")
	}
	if buf.Len() == 0 {
		t.Error("banner is empty")
	}
}
