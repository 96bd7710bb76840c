package normalization

import (
	"strings"
)

// ParseInputString lowercases and trims free-form identity input (emails,
// usernames). Display strings go through TrimInputString instead.
func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func TrimInputString(input string) string {
	return strings.TrimSpace(input)
}

func ParseInputStringPtr(input *string) *string {
	if input == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(*input))
	return &normalized
}
