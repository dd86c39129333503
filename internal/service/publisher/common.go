package publisher

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/extension-host/internal/logger"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// MarkerFilename marks a publish in progress inside the host directory.
	MarkerFilename = ".extension-host-publish.lock"

	// ArchiveFileMode is used for archives served by the host.
	ArchiveFileMode os.FileMode = 0o644

	// KeyFileMode is used for signing keys moved into the keys directory.
	KeyFileMode os.FileMode = 0o600

	// DefaultChecksumFunction verifies archives while they are installed.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// markerLifetime is the period after which a stale marker is ignored.
	markerLifetime = 5 * time.Minute

	// dirMode is used for host and keys directories created on demand.
	dirMode os.FileMode = 0o755
)

var (
	errPublishInProgress = errors.New("another publish is running for this host directory")
	errHashUnavailable   = errors.New("hash function unavailable")
)

// acquireMarker creates the publish marker in dir. A marker older than
// markerLifetime is treated as left over by a crashed run and replaced.
func acquireMarker(ctx context.Context, dir string) (func(), error) {
	path := filepath.Join(dir, MarkerFilename)

	for attempt := 0; attempt < 2; attempt++ {
		marker, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, KeyFileMode)
		if err == nil {
			_, _ = fmt.Fprintf(marker, "%d\n", os.Getpid())
			_ = marker.Close()

			return func() {
				_ = os.Remove(path)
			}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create publish marker: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) <= markerLifetime {
			return nil, fmt.Errorf("%w: remove %s if no publish is running", errPublishInProgress, path)
		}

		logger.WarnKV(ctx, "The publish marker is too old, removing it", "path", path)

		if err = os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale publish marker: %w", err)
		}
	}

	return nil, errPublishInProgress
}

// checksum returns the DefaultChecksumFunction digest of contents.
func checksum(contents []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// installArchive replaces target with the archive at source and removes source.
// go-update swaps the file in place, so a browser polling the host never
// downloads a half-written archive.
func installArchive(ctx context.Context, source, target string) error {
	contents, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	sum, err := checksum(contents)
	if err != nil {
		return err
	}

	// go-update renames the current target away first, so it has to exist.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		placeholder, err = os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, ArchiveFileMode)
		if err != nil {
			return fmt.Errorf("create archive placeholder: %w", err)
		}

		_ = placeholder.Close()
	}

	logger.DebugKV(ctx, "Installing archive", "source", source, "target", target)

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: ArchiveFileMode,
		Checksum:   sum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(contents), options); err != nil {
		return fmt.Errorf("install archive: %w", err)
	}

	if err = os.Remove(source); err != nil {
		logger.WarnKV(ctx, "Could not remove packed archive", "path", source, "error", err)
	}

	return nil
}

// moveFile renames source to target, copying when they are on different devices.
func moveFile(source, target string, mode os.FileMode) error {
	if err := os.Rename(source, target); err == nil {
		return nil
	}

	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		_ = in.Close()

		return err
	}

	_, err = io.Copy(out, in)

	_ = in.Close()

	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return err
	}

	return os.Remove(source)
}

// ensureDir creates dir when it is missing.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	return nil
}
