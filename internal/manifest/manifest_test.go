package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "manifest_version": 3,
  "name": "Sample <dev>",
  "version": "1.0.2",
  "permissions": ["storage", "tabs"],
  "background": {"service_worker": "bg.js"}
}`

// TestManifest_PatchAndSave edits version and update_url and keeps other keys intact.
func TestManifest_PatchAndSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	version, err := m.Version()
	require.NoError(t, err)
	require.Equal(t, "1.0.2", version)
	require.Empty(t, m.UpdateURL())

	m.SetVersion("1.0.3")
	m.SetUpdateURL("http://127.0.0.1:8888/update_manifest.xml?x=1&y=2")
	require.NoError(t, m.Save(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "\n  \"version\": \"1.0.3\"")
	require.Contains(t, string(contents), "Sample <dev>")

	reloaded, err := Load(path)
	require.NoError(t, err)

	version, err = reloaded.Version()
	require.NoError(t, err)
	require.Equal(t, "1.0.3", version)
	require.Equal(t, "http://127.0.0.1:8888/update_manifest.xml?x=1&y=2", reloaded.UpdateURL())
	require.JSONEq(t, `["storage", "tabs"]`, string(reloaded.fields["permissions"]))
	require.JSONEq(t, `{"service_worker": "bg.js"}`, string(reloaded.fields["background"]))
}

// TestManifest_Errors covers missing files, bad JSON and a missing version.
func TestManifest_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse([]byte("{"))
	require.Error(t, err)

	m, err := Parse([]byte(`{"name": "x"}`))
	require.NoError(t, err)

	_, err = m.Version()
	require.ErrorIs(t, err, errMissingField)

	m, err = Parse([]byte(`{"version": 3}`))
	require.NoError(t, err)

	_, err = m.Version()
	require.Error(t, err)
}
