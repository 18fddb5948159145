package gitaccess

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// matchPathspec reports whether path is selected by any spec. A spec matches
// the exact path, everything below it when it names a directory, or any path
// its glob matches. No specs select everything.
func matchPathspec(specs []string, path string) bool {
	if len(specs) == 0 {
		return true
	}

	if path == "" {
		return false
	}

	for _, spec := range specs {
		spec = strings.TrimSuffix(spec, "/")

		if path == spec || strings.HasPrefix(path, spec+"/") {
			return true
		}

		if ok, err := doublestar.Match(spec, path); err == nil && ok {
			return true
		}
	}

	return false
}
