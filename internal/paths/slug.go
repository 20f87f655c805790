// Package paths derives slugs from imported document names and handles the
// slash-separated slug paths used to address folders from the CLI.
package paths

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	maxSlugLen  = 255
)

// NormalizeSlug derives a slug from a display name.
// Rules:
// - Always lower-case
// - Spaces, underscores, dots, colons and slashes become a single hyphen
// - Apostrophes are dropped so "Skerrit's Shop" becomes "skerrits-shop"
// - Any other character outside [a-z0-9-] is dropped
// - Long names are cut to 255 bytes at the last hyphen that fits
func NormalizeSlug(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '_' || r == '.' || r == ':' || r == '/' || r == '\t':
			pendingHyphen = true
		}
	}
	slug := b.String()

	if slug == "" {
		return "", fmt.Errorf("slug must contain an alphanumeric character: %q", s)
	}

	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		if i := strings.LastIndexByte(slug, '-'); i > 0 {
			slug = slug[:i]
		}
	}

	return slug, nil
}

// ValidateSlug checks if a string is a valid slug without normalization
func ValidateSlug(s string) error {
	if s == "" {
		return fmt.Errorf("slug cannot be empty")
	}

	if len(s) > maxSlugLen {
		return fmt.Errorf("slug exceeds maximum length of %d bytes", maxSlugLen)
	}

	if !slugPattern.MatchString(s) {
		return fmt.Errorf("invalid slug format: must be lowercase, start with alphanumeric, and contain only [a-z0-9-]")
	}

	return nil
}

// SplitPath splits a slug path into segments
func SplitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// JoinPath joins path segments
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}
