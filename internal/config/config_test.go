package config

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd() (*cobra.Command, *Config) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg := RegisterFlags(cmd)
	return cmd, cfg
}

func TestRegisterFlagsDefaults(t *testing.T) {
	cmd, cfg := newTestCmd()
	cmd.SetArgs([]string{"--jwt-secret-key", "s3cr3t"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMessageExpiry, cfg.MessageExpirationTime)
	assert.Equal(t, DefaultSessionExpiry, cfg.SessionExpirationTime)
	assert.Equal(t, DefaultNumWorkers, cfg.NumWorkers)
	assert.Equal(t, "s3cr3t", cfg.JWTSecretKey)
}

func TestRegisterFlagsParsesLists(t *testing.T) {
	cmd, cfg := newTestCmd()
	cmd.SetArgs([]string{
		"--jwt-secret-key", "s3cr3t",
		"--authorized-keys", "0xaa, 0xbb",
		"--admin-keys", "0xcc",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"0xaa", "0xbb"}, cfg.AuthorizedKeys)
	assert.Equal(t, []string{"0xcc"}, cfg.AdminKeys)
}

func TestValidateRequiresSecret(t *testing.T) {
	cmd, _ := newTestCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFlagDefaults(t *testing.T) {
	t.Setenv("PROVER_HOST", "127.0.0.1")
	t.Setenv("PROVER_NUM_WORKERS", "9")

	cmd, cfg := newTestCmd()
	cmd.SetArgs([]string{"--jwt-secret-key", "s3cr3t"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9, cfg.NumWorkers)
}

func TestLoadOverlayMergesMissingValues(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/overlay.yaml"
	require.NoError(t, os.WriteFile(path, []byte("admin_keys: [\"0xdd\", \"0xee\"]\n"), 0o600))

	cfg := &Config{Host: DefaultHost}
	require.NoError(t, LoadOverlay(path, cfg))

	assert.Equal(t, []string{"0xdd", "0xee"}, cfg.AdminKeys)
	assert.Equal(t, DefaultHost, cfg.Host)
}

func TestLoadOverlayMissingFileIsNotAnError(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, LoadOverlay("/nonexistent/overlay.yaml", cfg))
}
