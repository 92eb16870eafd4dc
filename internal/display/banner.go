package display

import (
	"fmt"
	"io"

	"github.com/backmassage/qcrunner/internal/term"
)

// PrintBanner writes the ASCII art banner to w, in magenta when p is enabled.
func PrintBanner(w io.Writer, p term.Palette) {
	fmt.Fprint(w, p.Magenta)
	fmt.Fprint(w, `  __ _  ___ _ __ _   _ _ __  _ __   ___ _ __
 / _`+"`"+` |/ __| '__| | | | '_ \| '_ \ / _ \ '__|
| (_| | (__| |  | |_| | | | | | | |  __/ |
 \__, |\___|_|   \__,_|_| |_|_| |_|\___|_|
    |_|
`)
	fmt.Fprint(w, p.Reset)
}
