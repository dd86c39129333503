// Package browsertest provides a scripted stand-in for a browser's
// --pack-extension mode.
package browsertest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// script copies fixtures the way the browser writes <dir>.crx and <dir>.pem.
const script = `#!/bin/sh
dir=""
key=""
for arg in "$@"; do
  case "$arg" in
    --pack-extension=*) dir="${arg#--pack-extension=}" ;;
    --pack-extension-key=*) key="${arg#--pack-extension-key=}" ;;
  esac
done
echo "$@" >> %[1]q
cp %[2]q "$dir.crx" || exit 1
if [ -z "$key" ]; then
  cp %[3]q "$dir.pem" || exit 1
fi
`

// Fake is a fake browser executable.
type Fake struct {
	// Path is the executable to pass as browser path.
	Path string
	// LogPath receives one line of arguments per invocation.
	LogPath string
}

// New writes a fake browser that produces archive as the packed extension
// and key as a newly generated signing key.
func New(t *testing.T, archive, key []byte) *Fake {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake browser is a POSIX shell script")
	}

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "fixture.crx")
	keyPath := filepath.Join(dir, "fixture.pem")
	fake := &Fake{
		Path:    filepath.Join(dir, "fake-browser"),
		LogPath: filepath.Join(dir, "calls.log"),
	}

	write(t, archivePath, archive, 0o600)
	write(t, keyPath, key, 0o600)
	write(t, fake.Path, fmt.Appendf(nil, script, fake.LogPath, archivePath, keyPath), 0o700)

	return fake
}

// Calls returns the logged invocations.
func (f *Fake) Calls(t *testing.T) string {
	t.Helper()

	contents, err := os.ReadFile(f.LogPath)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read fake browser log: %v", err)
	}

	return string(contents)
}

func write(t *testing.T, path string, contents []byte, mode os.FileMode) {
	t.Helper()

	if err := os.WriteFile(path, contents, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
