package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	chrome := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	assert.Contains(t, Label(chrome), "Chrome")
	assert.Contains(t, Label(chrome), " on ")

	assert.Equal(t, "Unknown device", Label(""))
	assert.Equal(t, "Unknown device", Label("   "))
}
