package utils

import (
	stdpath "path"
	"strings"
)

// FixAndCleanPath turns an archive or request path into a cleaned,
// slash separated path with a leading slash.
func FixAndCleanPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return stdpath.Clean(path)
}
