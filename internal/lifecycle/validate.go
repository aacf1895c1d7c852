package lifecycle

import (
	"path/filepath"
	"strings"
)

// dangerousExtensions lists file extensions that should never be accepted.
var dangerousExtensions = map[string]bool{
	".exe":   true,
	".bat":   true,
	".cmd":   true,
	".com":   true,
	".pif":   true,
	".scr":   true,
	".vbs":   true,
	".jar":   true,
	".msi":   true,
	".dll":   true,
	".so":    true,
	".dylib": true,
}

// sanitizeFilename strips path separators, quotes and control bytes
// from a client-supplied filename and bounds its length. Quotes and
// control characters would break the Content-Disposition header the
// name is later served in.
func sanitizeFilename(filename string) string {
	filename = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r == '"':
			return -1
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, filename)
	filename = strings.Trim(filename, " .")

	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		filename = filename[:255-len(ext)] + ext
	}

	if filename == "" {
		filename = "unnamed"
	}
	return filename
}

// validateFilename rejects extensions that would let a share link hand
// out executables.
func validateFilename(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if dangerousExtensions[ext] {
		return &ValidationError{Field: "filename", Message: "file type not allowed: " + ext}
	}
	return nil
}
