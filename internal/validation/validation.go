package validation

import (
	"fmt"
	"regexp"
)

const (
	// MinLabelLength is the minimum length for a rule label
	MinLabelLength = 2
	// MaxLabelLength is the maximum length for a rule label
	MaxLabelLength = 65

	// MinPriority is the lowest rule priority (loads first)
	MinPriority = 0
	// MaxPriority is the highest rule priority (loads last)
	MaxPriority = 99
)

// labelPattern restricts labels to characters that are safe in a rule
// filename: alphanumeric start, then alphanumeric, underscore, dot, or
// hyphen
var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateLabel validates that a rule label meets all requirements:
// - Matches the filename-safe pattern
// - Between 2 and 65 characters
func ValidateLabel(label string) error {
	if len(label) < MinLabelLength {
		return fmt.Errorf("label must be at least %d characters", MinLabelLength)
	}

	if len(label) > MaxLabelLength {
		return fmt.Errorf("label must be at most %d characters", MaxLabelLength)
	}

	if !labelPattern.MatchString(label) {
		return fmt.Errorf("label must start with alphanumeric and contain only alphanumeric, underscore, dot, or hyphen characters")
	}

	return nil
}

// ValidatePriority validates that a rule priority is within the
// conventional two-digit udev range
func ValidatePriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return fmt.Errorf("priority must be between %d and %d", MinPriority, MaxPriority)
	}
	return nil
}
