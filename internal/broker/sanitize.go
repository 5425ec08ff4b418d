package broker

import "strings"

const maxFilenameLength = 100

var invalidFilenameChars = []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*", "\x00"}

// SanitizeFilename turns an app title into a filesystem-safe filename stem.
func SanitizeFilename(name string) string {
	cleaned := name
	for _, c := range invalidFilenameChars {
		cleaned = strings.ReplaceAll(cleaned, c, "_")
	}

	cleaned = strings.Join(strings.Fields(cleaned), "_")
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}
	cleaned = strings.Trim(cleaned, "_")

	if len(cleaned) > maxFilenameLength {
		cleaned = strings.TrimRight(cleaned[:maxFilenameLength], "_")
	}

	if cleaned == "" {
		return "app"
	}
	return cleaned
}
