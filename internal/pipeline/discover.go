package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Discover expands pattern and returns the matching regular files in the
// order filepath.Glob yields them (lexical). Directories are dropped. A
// malformed pattern is an error; no matches is not.
func Discover(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("input pattern %q: %w", pattern, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// totalSize sums the sizes of files that can still be stat'ed.
func totalSize(files []string) int64 {
	var n int64
	for _, f := range files {
		if fi, err := os.Stat(f); err == nil {
			n += fi.Size()
		}
	}
	return n
}

// excludeUnder drops files that live inside root, so a broad pattern never
// feeds a run its own outputs.
func excludeUnder(files []string, root string) (kept, dropped []string) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return files, nil
	}
	prefix := rootAbs + string(filepath.Separator)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err == nil && strings.HasPrefix(abs, prefix) {
			dropped = append(dropped, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, dropped
}
