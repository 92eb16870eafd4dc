package naming

import "path/filepath"

// OutputDir returns the per-file output directory for input under outRoot:
//
//	<outRoot>/<base name of input>
func OutputDir(outRoot, input string) string {
	return filepath.Join(outRoot, filepath.Base(input))
}
