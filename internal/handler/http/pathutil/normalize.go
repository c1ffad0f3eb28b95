// Package pathutil normalises request paths for metric labels and parses
// path ids.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns are evaluated in order.
var pathPatterns = []*PathPattern{
	{Pattern: regexp.MustCompile(`^/destinations/[^/]+$`), Template: "/destinations/:id"},
}

// NormalizePath maps dynamic paths to their route template so ids do not
// become metric label values. Query strings and a trailing slash are
// stripped; unmatched paths are returned as-is.
//
//	NormalizePath("/destinations/7c9e6679-7425-40de-944b-e07fc1f90ae7") // "/destinations/:id"
//	NormalizePath("/notifications/slack")                              // "/notifications/slack"
func NormalizePath(path string) string {
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}
	return path
}
