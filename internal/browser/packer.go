package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/extension-host/internal/logger"
)

const (
	// ArchiveExtension is appended to the extension directory by the browser.
	ArchiveExtension = ".crx"
	// KeyExtension is used for a freshly generated signing key.
	KeyExtension = ".pem"

	// waitDelay bounds how long output pipes may outlive a killed browser.
	waitDelay = 5 * time.Second
)

var (
	// ErrArchiveNotProduced is returned when the browser exits without writing the archive.
	ErrArchiveNotProduced = errors.New("browser did not produce an archive")
	// ErrKeyNotProduced is returned when a new key was expected but not written.
	ErrKeyNotProduced = errors.New("browser did not produce a signing key")
)

// Packer packs extension directories with a browser executable.
type Packer struct {
	// Path is the browser executable, looked up in PATH when not absolute.
	Path string
	// Timeout bounds a single packing run; zero means no limit.
	Timeout time.Duration
}

// Result lists the files the browser wrote next to the extension directory.
type Result struct {
	// ArchivePath is the packed and signed extension.
	ArchivePath string
	// NewKeyPath is set when the browser generated a new signing key.
	NewKeyPath string
}

// Pack runs the browser with --pack-extension. When keyPath is empty the
// browser generates a key and writes it next to the archive.
func (p *Packer) Pack(ctx context.Context, extensionDir, keyPath string) (*Result, error) {
	extensionDir = filepath.Clean(extensionDir)

	args := []string{"--pack-extension=" + extensionDir}
	if keyPath != "" {
		args = append(args, "--pack-extension-key="+keyPath)
	}

	args = append(args, "--no-message-box")

	if p.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	logger.DebugKV(ctx, "Running browser", "path", p.Path, "args", args)

	cmd := exec.CommandContext(ctx, p.Path, args...) //nolint:gosec // The browser path is operator configuration.
	cmd.WaitDelay = waitDelay

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}

		return nil, fmt.Errorf("run %s: %w: %s", p.Path, err, trimOutput(output.String()))
	}

	if out := trimOutput(output.String()); out != "" {
		logger.DebugKV(ctx, "Browser output", "output", out)
	}

	result := &Result{
		ArchivePath: extensionDir + ArchiveExtension,
	}

	if _, err := os.Stat(result.ArchivePath); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchiveNotProduced, result.ArchivePath, err)
	}

	if keyPath != "" {
		return result, nil
	}

	result.NewKeyPath = extensionDir + KeyExtension
	if _, err := os.Stat(result.NewKeyPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeyNotProduced, result.NewKeyPath, err)
	}

	return result, nil
}

// trimOutput keeps error messages readable when the browser is chatty.
func trimOutput(s string) string {
	const limit = 2048

	s = strings.TrimSpace(s)
	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}
