package soupnight

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SanitizeFileName lowercases a client-supplied file name and replaces
// every character outside [a-z0-9._-] with a dash. The result is safe
// to place directly in a directory and in a URL path.
func SanitizeFileName(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// stampFileName prefixes a sanitized name with a millisecond timestamp
// so repeat uploads of the same original name never overwrite each other.
func stampFileName(unixMilli int64, original string) string {
	return fmt.Sprintf("%d-%s", unixMilli, SanitizeFileName(original))
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
