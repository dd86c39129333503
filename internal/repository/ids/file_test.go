package ids

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_MissingFile verifies a missing registry is empty and Get reports ErrNotFound.
func TestFileRepository_MissingFile(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), DefaultFilename))

	id, err := repo.Get(context.Background(), "sample")
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, id)
}

// TestFileRepository_PutGet_Roundtrip ensures ids survive a fresh repository instance.
func TestFileRepository_PutGet_Roundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{"existing": "pppppppppppppppppppppppppppppppp"}`), 0o600))

	repo := NewFileRepository(path)
	require.NoError(t, repo.Put(context.Background(), "sample", "aaabacadaeafagahaiajakalamanaoap"))

	reopened := NewFileRepository(path)

	id, err := reopened.Get(context.Background(), "sample")
	require.NoError(t, err)
	require.Equal(t, "aaabacadaeafagahaiajakalamanaoap", id)

	id, err = reopened.Get(context.Background(), "existing")
	require.NoError(t, err)
	require.Equal(t, "pppppppppppppppppppppppppppppppp", id)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "\n  \"sample\": \"aaabacadaeafagahaiajakalamanaoap\"")
}

// TestFileRepository_Corrupt reports decode errors instead of overwriting the file.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte("[1, 2"), 0o600))

	repo := NewFileRepository(path)
	require.Error(t, repo.Put(context.Background(), "sample", "x"))

	_, err := repo.Get(context.Background(), "sample")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[1, 2", string(contents))
}
