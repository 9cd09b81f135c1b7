package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds library names and descriptions, which both end up in file names.
const maxNameLength = 256

// ValidateLibraryName validates an Enrichr library name for safety.
// Library names are embedded in output file names and query strings, so the
// rules reject anything that could escape the output directory:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
//
// Whether the name exists on the server is checked separately against the catalog.
func ValidateLibraryName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidLibrary, "library name cannot be empty")
	}
	if err := validateFilenamePart(name); err != nil {
		return Wrap(ErrCodeInvalidLibrary, err, "invalid library name %q", name)
	}
	return nil
}

// ValidateDescription validates the free-text analysis description.
// An empty description is allowed; the caller substitutes a default.
func ValidateDescription(desc string) error {
	if desc == "" {
		return nil
	}
	if err := validateFilenamePart(desc); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid description %q", desc)
	}
	return nil
}

func validateFilenamePart(s string) error {
	if len(s) > maxNameLength {
		return New(ErrCodeInvalidInput, "too long (max %d characters)", maxNameLength)
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "contains control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(s, pattern) {
			return New(ErrCodeInvalidInput, "contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme: %q", rawURL)
	}
	return nil
}
