package updatefeed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const existingFeed = `<?xml version='1.0' encoding='UTF-8'?>
<gupdate xmlns='http://www.google.com/update2/response' protocol='2.0' server='local'>
  <app appid='aaabacadaeafagahaiajakalamanaoap'>
    <updatecheck codebase='http://127.0.0.1:8888/first.crx' version='1.0.4' prodversionmin='90.0' />
  </app>
</gupdate>`

// TestLoad_Missing ensures a missing feed maps to ErrNotFound.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	feed, err := Load(filepath.Join(t.TempDir(), Filename))
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, feed)
}

// TestParse_ExistingFeed reads apps and their served versions.
func TestParse_ExistingFeed(t *testing.T) {
	t.Parallel()

	feed, err := Parse([]byte(existingFeed))
	require.NoError(t, err)
	require.Equal(t, Namespace, feed.Namespace)
	require.Equal(t, "2.0", feed.Protocol)
	require.Len(t, feed.Apps, 1)

	version, ok := feed.ServedVersion("aaabacadaeafagahaiajakalamanaoap")
	require.True(t, ok)
	require.Equal(t, "1.0.4", version)

	_, ok = feed.ServedVersion("pppppppppppppppppppppppppppppppp")
	require.False(t, ok)
	require.Nil(t, feed.Find("pppppppppppppppppppppppppppppppp"))

	_, err = Parse([]byte("<response/>"))
	require.Error(t, err)
}

// TestUpsert_UpdatesAndAppends updates an existing entry in place and appends a new one.
func TestUpsert_UpdatesAndAppends(t *testing.T) {
	t.Parallel()

	feed, err := Parse([]byte(existingFeed))
	require.NoError(t, err)

	feed.Upsert("aaabacadaeafagahaiajakalamanaoap", "http://127.0.0.1:8888/first.crx", "1.0.5")
	feed.Upsert("pppppppppppppppppppppppppppppppp", "http://127.0.0.1:8888/second.crx", "0.1")

	require.Len(t, feed.Apps, 2)
	require.Equal(t, "1.0.5", feed.Apps[0].UpdateCheck.Version)
	require.Equal(t, "http://127.0.0.1:8888/second.crx", feed.Apps[1].UpdateCheck.Codebase)
}

// TestSaveLoadRoundtrip persists a feed and reads it back, keeping unknown attributes.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	feed, err := Parse([]byte(existingFeed))
	require.NoError(t, err)

	feed.Upsert("pppppppppppppppppppppppppppppppp", "http://127.0.0.1:8888/second.crx", "0.1")

	path := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, feed.Save(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `<?xml version="1.0" encoding="UTF-8"?>`)
	require.Contains(t, string(contents), `<gupdate xmlns="http://www.google.com/update2/response" protocol="2.0" server="local">`)
	require.Contains(t, string(contents), `prodversionmin="90.0"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Apps, 2)

	version, ok := loaded.ServedVersion("pppppppppppppppppppppppppppppppp")
	require.True(t, ok)
	require.Equal(t, "0.1", version)
}

// TestNew_Marshal renders a fresh feed with the default namespace and protocol.
func TestNew_Marshal(t *testing.T) {
	t.Parallel()

	feed := New()
	feed.Upsert("aaabacadaeafagahaiajakalamanaoap", "http://localhost/x.crx", "1.0")

	contents, err := feed.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(contents)
	require.NoError(t, err)
	require.Equal(t, Namespace, parsed.Namespace)
	require.Equal(t, Protocol, parsed.Protocol)
	require.Equal(t, "http://localhost/x.crx", parsed.Apps[0].UpdateCheck.Codebase)
}
