package utils

import (
	"fmt"
	"regexp"
)

var (
	referenceNumberRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9/\-]{3,31}$`)
	controlCharRegex     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateReferenceNumber validates a disbursement reference number
func ValidateReferenceNumber(ref string) error {
	if !referenceNumberRegex.MatchString(ref) {
		return fmt.Errorf("invalid reference number format: %s", ref)
	}
	return nil
}

// SanitizeString removes control characters from free-text input
func SanitizeString(s string) string {
	return controlCharRegex.ReplaceAllString(s, "")
}
