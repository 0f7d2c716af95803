package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesUniqueDirectories(t *testing.T) {
	base := t.TempDir()

	d1, err := New(base, 1)
	require.NoError(t, err)
	defer d1.Remove()

	d2, err := New(base, 1)
	require.NoError(t, err)
	defer d2.Remove()

	assert.NotEqual(t, d1.Path, d2.Path)

	info, err := os.Stat(d1.Path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestJoin(t *testing.T) {
	base := t.TempDir()
	d, err := New(base, 7)
	require.NoError(t, err)
	defer d.Remove()

	assert.Equal(t, filepath.Join(d.Path, "program.json"), d.Join("program.json"))
}

func TestRemoveCleansUpAndIsIdempotent(t *testing.T) {
	base := t.TempDir()
	d, err := New(base, 3)
	require.NoError(t, err)

	require.NoError(t, d.Remove())
	_, err = os.Stat(d.Path)
	assert.True(t, os.IsNotExist(err))

	// Calling Remove again must not error.
	assert.NoError(t, d.Remove())
}
