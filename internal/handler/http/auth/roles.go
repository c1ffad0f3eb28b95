package auth

import "strings"

// Role constants used in session token claims.
const (
	// RoleAdmin manages destinations
	RoleAdmin = "admin"
	// RoleViewer may read destinations
	RoleViewer = "viewer"
)

// Permission defines the allowed operations for a role.
type Permission struct {
	AllowedMethods []string
	// AllowedPaths supports a trailing "/*" wildcard; "/*" alone matches every path.
	AllowedPaths []string
}

// RolePermissions maps each role to what Authz lets it do.
var RolePermissions = map[string]Permission{
	RoleAdmin: {
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedPaths:   []string{"/*"},
	},
	RoleViewer: {
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedPaths:   []string{"/destinations/*"},
	},
}

// checkRolePermission reports whether role may use method on path.
// Unknown and empty roles are always denied.
func checkRolePermission(role, method, path string) bool {
	perm, ok := RolePermissions[role]
	if !ok {
		return false
	}

	methodAllowed := false
	for _, m := range perm.AllowedMethods {
		if m == method {
			methodAllowed = true
			break
		}
	}
	if !methodAllowed {
		return false
	}
	return matchesPathPattern(path, perm.AllowedPaths)
}

// matchesPathPattern: "/destinations/*" matches "/destinations" and every
// subpath; patterns without the wildcard match exactly.
func matchesPathPattern(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == "/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == pattern {
			return true
		}
	}
	return false
}
