package sftpd

import "strings"

// isInside reports whether path lies under the exported source directory.
//
// The check is a plain byte-prefix comparison: the sshfs side always
// presents normalized absolute paths under source, and the prefix form is
// what that client expects. An empty source admits nothing.
func isInside(source, path string) bool {
	if source == "" {
		return false
	}

	return strings.HasPrefix(path, source)
}
