// Package display formats manifest entries for people: leaf name versus
// directory prefix, and human-readable sizes.
package display

import "strings"

// PathParts is a file path split for display. Joining Directory, "/" and
// Name gives back the trimmed input whenever Directory is non-empty.
type PathParts struct {
	Name      string
	Directory string
}

// Split separates the leaf name from its directory prefix at the last "/".
// Surrounding whitespace is trimmed first; a path without "/" has no directory.
func Split(fullPath string) PathParts {
	trimmed := strings.TrimSpace(fullPath)
	i := strings.LastIndex(trimmed, "/")
	if i == -1 {
		return PathParts{Name: trimmed}
	}
	return PathParts{
		Name:      trimmed[i+1:],
		Directory: trimmed[:i],
	}
}
