package schema

import (
	"path/filepath"
	"strings"
)

// Format selects the encoding written by Encode.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	// VersionLegacy is the absolute-coordinate {x, y, delay} document.
	VersionLegacy = 1
	// VersionCurrent is the relative {dx, dy, duration} document.
	VersionCurrent = 2
)

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat converts a user-supplied name into a Format.
// Unknown or empty names fall back to JSON.
func ParseFormat(name string) Format {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
