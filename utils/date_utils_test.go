package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("2026-08-01"))
	assert.True(t, IsValidDate("2026-08-01T12:00:00Z"))
	assert.True(t, IsValidDate("2026-08-01T12:00:00-03:00"))

	assert.False(t, IsValidDate(""))
	assert.False(t, IsValidDate("01/08/2026"))
	assert.False(t, IsValidDate("ontem"))
}
