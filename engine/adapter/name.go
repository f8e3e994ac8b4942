package adapter

import (
	"strings"
)

// ReservedSegment is the top-level path segment for envelope names that
// contain no underscore. "look" becomes "Custom.Look" so that every
// name maps to a two-plus segment path and round-trips unambiguously.
// Envelope names starting with "custom_" are the one documented lossy
// case: "custom_look" also maps to "Custom.Look".
const ReservedSegment = "Custom"

// MangleName maps an underscore envelope name to the dotted capitalized
// path used by hierarchical wire protocols: "room_desc" -> "Room.Desc".
func MangleName(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) == 1 {
		return ReservedSegment + "." + capitalize(name)
	}

	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, ".")
}

// UnmangleName is the inverse of MangleName: "Room.Desc" -> "room_desc",
// "Custom.Look" -> "look".
func UnmangleName(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) == 2 && parts[0] == ReservedSegment {
		return strings.ToLower(parts[1])
	}

	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, "_")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
