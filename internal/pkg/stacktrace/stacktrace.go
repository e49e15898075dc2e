// Package stacktrace trims runtime stack dumps down to the frames that
// belong to this module, so panic logs stay short.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// stack trace produced by runtime/debug.Stack.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)

		i := strings.Index(line, ".go:")
		if i == -1 {
			continue
		}
		loc := line
		if sp := strings.IndexByte(line[i:], ' '); sp != -1 {
			loc = line[:i+sp]
		}

		j := strings.Index(loc, marker)
		if j == -1 {
			continue
		}
		paths = append(paths, loc[j+1:])
	}
	return paths
}
