package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath validates that a file path is safe and doesn't contain
// directory traversal attempts. Absolute paths are allowed; config and
// database files are deployed under absolute paths.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}

// ValidateObjectName validates a storage object name. Object names are flat
// within a bucket; separators and traversal sequences are rejected so a name
// can never address outside its bucket.
func ValidateObjectName(name string) error {
	if name == "" {
		return fmt.Errorf("object name cannot be empty")
	}

	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("object name must not contain path separators: %s", name)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("object name contains traversal sequence: %s", name)
	}

	if strings.ContainsAny(name, "\x00\n\r\t") {
		return fmt.Errorf("object name contains invalid characters")
	}

	return nil
}
