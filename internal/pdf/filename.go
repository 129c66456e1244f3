package pdf

import (
	"strings"
)

const maxFilenameLength = 50

// SanitizeFilename derives a file name stem from a title: lowercase, spaces
// become underscores, anything outside [a-z0-9_] is dropped and the result
// is cut to 50 characters. An empty result falls back to DefaultFilename.
func SanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}

	name := b.String()
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	if strings.Trim(name, "_") == "" {
		return DefaultFilename
	}
	return name
}

// PDFFilename returns the sanitized stem with a .pdf extension
func PDFFilename(title string) string {
	return SanitizeFilename(strings.TrimSuffix(title, ".pdf")) + ".pdf"
}
