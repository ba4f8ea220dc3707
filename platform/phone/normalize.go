// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "NL"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, ok := parse(trimmed, region)
	if !ok {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses as a valid phone number, reading
// national numbers in the given region.
func IsValid(input, region string) bool {
	_, ok := parse(strings.TrimSpace(input), region)
	return ok
}

func parse(input, region string) (*phonenumbers.PhoneNumber, bool) {
	if input == "" {
		return nil, false
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(input, strings.ToUpper(region))
	if err != nil {
		return nil, false
	}
	if !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}
