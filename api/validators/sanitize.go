package validators

import "strings"

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeOptional trims the value and maps blanks to nil.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	clean := SanitizeString(*input, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
