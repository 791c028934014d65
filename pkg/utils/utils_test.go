package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("oldpassword")
	require.NoError(t, err)
	assert.NotEqual(t, "oldpassword", h)
	assert.True(t, CheckPassword("oldpassword", h))
	assert.False(t, CheckPassword("newpassword123", h))
	assert.False(t, CheckPassword("oldpassword", "not-a-hash"))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}
