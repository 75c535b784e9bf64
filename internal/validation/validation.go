package validation

import (
	"errors"
	"strings"
)

// ErrStationEmpty is returned when a station identifier is empty or whitespace-only.
var ErrStationEmpty = errors.New("station identifier is required")

// ValidateStationID rejects empty and whitespace-only identifiers. Any other
// value is accepted as-is: it is neither trimmed nor case-folded, and reserved
// characters are left for the upstream client to percent-encode.
func ValidateStationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrStationEmpty
	}
	return nil
}
