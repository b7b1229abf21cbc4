package util

import (
	"errors"
	"regexp"
	"strings"
)

var unsafeObjectChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeObjectName replaces every character outside [A-Za-z0-9._-] with "_".
func SanitizeObjectName(name string) string {
	return unsafeObjectChars.ReplaceAllString(name, "_")
}

// SanitizeFileName sanitizes a client-supplied file name for use as the last
// segment of a storage key and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || s == "." || strings.Contains(s, "..") {
		return "", errors.New("invalid file name")
	}
	return SanitizeObjectName(s), nil
}
