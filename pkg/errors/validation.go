package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// schemeNameRegex matches palette names accepted by the registry.
var schemeNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateSchemeName validates a palette name before it is registered.
//
// Names are lowercase identifiers of at most 64 characters (letters, digits,
// dash and underscore) so they can be used unchanged as CLI flag values, URL
// path segments and TOML table keys.
func ValidateSchemeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidParameter, "scheme name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidParameter, "scheme name too long (max 64 characters)")
	}
	if !schemeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidParameter, "invalid scheme name: %q", name)
	}
	return nil
}

// ValidatePath validates an output file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidParameter, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidParameter, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidParameter, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !IsURL(rawURL) {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// IsURL reports whether s looks like an http(s) URL rather than a file path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
