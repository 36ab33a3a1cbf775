package account

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxIDLength is the longest account id accepted by ValidateID.
const MaxIDLength = 250

// ValidateID checks that an account id is usable as a store key and lock ordering key.
//
// Rules:
// - Non-empty string
// - At most MaxIDLength bytes
// - No control characters
// - No leading or trailing whitespace
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidAccountID)
	}

	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: id too long (max %d bytes)", ErrInvalidAccountID, MaxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: id contains control character", ErrInvalidAccountID)
		}
	}

	if strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: id has leading or trailing whitespace", ErrInvalidAccountID)
	}

	return nil
}

// Ordered returns the two ids in ascending lexicographic order.
// Every multi-account lock acquisition uses this order.
func Ordered(a, b string) (first, second string) {
	if b < a {
		return b, a
	}
	return a, b
}
