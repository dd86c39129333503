package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/extension-host/internal/crx/crxtest"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() {
		idKeyPath = ""
		logLevel = "info"
	})

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

// TestIDCommand prints the id of an archive.
func TestIDCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.crx")
	require.NoError(t, os.WriteFile(path, crxtest.Build(bytes.Repeat([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}, 2)), 0o600))

	out, err := execute(t, "id", path)
	require.NoError(t, err)
	require.Equal(t, "abcdefghijklmnopabcdefghijklmnop\n", out)
}

// TestIDCommand_Arguments rejects ambiguous or missing sources.
func TestIDCommand_Arguments(t *testing.T) {
	_, err := execute(t, "id")
	require.ErrorIs(t, err, errIDSource)

	_, err = execute(t, "id", "a.crx", "--key", "a.pem")
	require.ErrorIs(t, err, errIDSource)
}

// TestLogLevelFlag rejects unknown levels before running a command.
func TestLogLevelFlag(t *testing.T) {
	_, err := execute(t, "id", "--log_level", "loud", "x.crx")
	require.ErrorIs(t, err, errUnknownLogLevel)
}
