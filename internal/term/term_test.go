package term

import (
	"os"
	"testing"

	"github.com/backmassage/qcrunner/internal/config"
)

func TestNewPalette(t *testing.T) {
	on := NewPalette(config.ColorAlways)
	if !on.Enabled() || on.Red == "" {
		t.Error("ColorAlways should enable colors")
	}

	off := NewPalette(config.ColorNever)
	if off.Enabled() || off != (Palette{}) {
		t.Error("ColorNever should return the empty palette")
	}
}

func TestNewPalette_AutoRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if NewPalette(config.ColorAuto).Enabled() {
		t.Error("NO_COLOR should disable auto colors")
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "tty")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil file reported as terminal")
	}
}
