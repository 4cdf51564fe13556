package util

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderCode(t *testing.T) {
	code := GenerateOrderCode("KS")
	assert.Regexp(t, regexp.MustCompile(`^KS-[0-9A-F]{6}$`), code)

	assert.Len(t, GenerateOrderCode(""), 6)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateOrderCode("KS")] = true
	}
	assert.Greater(t, len(seen), 90)
}
