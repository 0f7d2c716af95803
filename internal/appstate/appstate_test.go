package appstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminSetContains(t *testing.T) {
	set := NewAdminSet([]string{"0xaa", "0xbb"})
	assert.True(t, set.Contains("0xaa"))
	assert.True(t, set.Contains("0xbb"))
	assert.False(t, set.Contains("0xcc"))
}

func TestNewAdminSetEmpty(t *testing.T) {
	set := NewAdminSet(nil)
	assert.False(t, set.Contains("0xaa"))
}
