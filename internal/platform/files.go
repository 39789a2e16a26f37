package platform

import (
	"os"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Filename limits
const (
	MaxFilenameLength = 150
	FallbackFilename  = "file"
)

// invalidFilenameChars are stripped so titles survive every filesystem the
// temp files and uploads touch.
const invalidFilenameChars = `<>:"/\|?*`

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// SanitizeFilename strips characters that are invalid in filenames, collapses
// whitespace, and caps the length. Empty results fall back to a placeholder.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(invalidFilenameChars, r) {
			continue
		}
		if r == '\n' || r == '\r' {
			r = ' '
		}
		b.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if len(cleaned) > MaxFilenameLength {
		cleaned = cleaned[:MaxFilenameLength]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return FallbackFilename
	}
	return cleaned
}
