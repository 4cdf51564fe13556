package util

import (
	"strings"

	"github.com/google/uuid"
)

const orderCodeLength = 6

// GenerateOrderCode returns a short human-readable order identifier such as
// "KS-4F9A1C". The suffix is taken from a random UUID.
func GenerateOrderCode(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:orderCodeLength]
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}
