package verify

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStubVerifier(t *testing.T, exitCode int) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binaries are POSIX shell scripts")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	path := filepath.Join(dir, "cpu_air_verifier")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestRunAcceptsValidProof(t *testing.T) {
	writeStubVerifier(t, 0)
	dir := t.TempDir()

	ok, err := Run(context.Background(), dir, `{"proof":"stub"}`)
	require.NoError(t, err)
	assert.True(t, ok)

	_, statErr := os.Stat(filepath.Join(dir, proofFileName))
	assert.True(t, os.IsNotExist(statErr), "scratch proof file should be removed")
}

func TestRunRejectsInvalidProof(t *testing.T) {
	writeStubVerifier(t, 1)
	dir := t.TempDir()

	ok, err := Run(context.Background(), dir, `{"proof":"bad"}`)
	require.NoError(t, err)
	assert.False(t, ok)

	_, statErr := os.Stat(filepath.Join(dir, proofFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCleansUpOnWriteSuccessEvenIfVerifierMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir()) // cpu_air_verifier not found
	dir := t.TempDir()

	ok, err := Run(context.Background(), dir, "proof-data")
	assert.False(t, ok)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, proofFileName))
	assert.True(t, os.IsNotExist(statErr))
}
