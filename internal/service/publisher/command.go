package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/extension-host/internal/browser"
	"github.com/oshokin/extension-host/internal/config"
	"github.com/oshokin/extension-host/internal/crx"
	"github.com/oshokin/extension-host/internal/logger"
	"github.com/oshokin/extension-host/internal/manifest"
	"github.com/oshokin/extension-host/internal/repository/ids"
	"github.com/oshokin/extension-host/internal/updatefeed"
)

// NoServedVersion is reported when the feed had no entry for the extension.
const NoServedVersion = "-1"

var (
	errExtensionNotFound = errors.New("could not find extension directory")
	errManifestNotFound  = errors.New("could not locate manifest")
	errBackupExists      = errors.New("a manifest backup from an interrupted run exists")
)

// Options contains inputs for the publish entry point.
// Empty overrides keep the values from the settings file.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// ExtensionPath is the unpacked extension directory.
	ExtensionPath string
	// HostURL overrides the update host base URL.
	HostURL string
	// BrowserPath overrides the browser executable.
	BrowserPath string
	// HostDir overrides the directory served by the host.
	HostDir string
	// KeysDir overrides the signing keys directory.
	KeysDir string
}

// Report summarizes a publish run.
type Report struct {
	// Name is the extension directory name.
	Name string
	// ExtensionID is the id browsers know the extension by.
	ExtensionID string
	// ManifestVersion is the version found in manifest.json.
	ManifestVersion string
	// PreviousVersion is the version the feed served before, or NoServedVersion.
	PreviousVersion string
	// Version is the version now served.
	Version string
}

// archivePacker packs an extension directory into a signed archive.
type archivePacker interface {
	Pack(ctx context.Context, extensionDir, keyPath string) (*browser.Result, error)
}

// publisher runs the publish workflow against one host.
// It is unexported—callers should use Run, which encapsulates setup and validation.
type publisher struct {
	// cfg holds host URL, browser and directories.
	cfg *config.Config
	// ids remembers extension ids across runs.
	ids ids.Repository
	// packer invokes the browser.
	packer archivePacker
	// runningInstances reports browser processes that would intercept packing.
	runningInstances func(path string) ([]int, error)
}

// extension holds paths derived from the extension directory.
type extension struct {
	dir          string
	name         string
	manifestPath string
	backupPath   string
	keyPath      string
	hasKey       bool
}

// Run executes the publish workflow.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "publish")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	p := newPublisher(cfg)

	report, err := p.Publish(ctx, opts.ExtensionPath)
	if err != nil {
		return nil, fmt.Errorf("publish failed: %w", err)
	}

	logger.InfoKV(ctx, "Extension published",
		"name", report.Name,
		"extension_id", report.ExtensionID,
		"manifest_version", report.ManifestVersion,
		"previous_version", report.PreviousVersion,
		"version", report.Version)

	return report, nil
}

// applyOverrides copies non-empty command line values over the settings.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.HostURL != "" {
		cfg.HostURL = opts.HostURL
	}

	if opts.BrowserPath != "" {
		cfg.BrowserPath = opts.BrowserPath
	}

	if opts.HostDir != "" {
		cfg.HostDir = opts.HostDir
	}

	if opts.KeysDir != "" {
		cfg.KeysDir = opts.KeysDir
	}
}

// newPublisher wires the browser packer and the id registry kept in the keys directory.
func newPublisher(cfg *config.Config) *publisher {
	return &publisher{
		cfg: cfg,
		ids: ids.NewFileRepository(filepath.Join(cfg.KeysDir, ids.DefaultFilename)),
		packer: &browser.Packer{
			Path:    cfg.BrowserPath,
			Timeout: cfg.PackTimeout,
		},
		runningInstances: browser.RunningInstances,
	}
}

// Publish packs the extension at path and points the feed at the new archive.
func (p *publisher) Publish(ctx context.Context, path string) (report *Report, err error) {
	ext, err := p.locate(path)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "extension", ext.name)

	for _, dir := range []string{p.cfg.HostDir, p.cfg.KeysDir} {
		if err = ensureDir(dir); err != nil {
			return nil, err
		}
	}

	release, err := acquireMarker(ctx, p.cfg.HostDir)
	if err != nil {
		return nil, err
	}

	defer release()

	knownID, err := p.knownID(ctx, ext)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(ext.manifestPath)
	if err != nil {
		return nil, err
	}

	manifestVersion, err := m.Version()
	if err != nil {
		return nil, err
	}

	feedPath := filepath.Join(p.cfg.HostDir, updatefeed.Filename)

	feed, err := loadFeed(ctx, feedPath)
	if err != nil {
		return nil, err
	}

	previousVersion, version, err := nextVersion(feed, knownID, manifestVersion)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Resolved version to serve",
		"manifest_version", manifestVersion, "previous_version", previousVersion, "version", version)

	restore, err := p.stampManifest(m, ext, version)
	if err != nil {
		return nil, err
	}

	defer func() {
		if restoreErr := restore(); restoreErr != nil {
			err = errors.Join(err, restoreErr)
		}
	}()

	archivePath, err := p.pack(ctx, ext)
	if err != nil {
		return nil, err
	}

	id, err := p.resolveID(ctx, ext, knownID, archivePath)
	if err != nil {
		return nil, err
	}

	feed.Upsert(id, p.cfg.ArchiveURL(ext.name), version)

	logger.InfoKV(ctx, "Saving update feed", "path", feedPath)

	if err = feed.Save(feedPath); err != nil {
		return nil, err
	}

	return &Report{
		Name:            ext.name,
		ExtensionID:     id,
		ManifestVersion: manifestVersion,
		PreviousVersion: previousVersion,
		Version:         version,
	}, nil
}

// locate validates the extension directory and derives the paths used by the run.
func (p *publisher) locate(path string) (*extension, error) {
	dir := filepath.Clean(strings.TrimRight(path, `/\`))

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errExtensionNotFound, path)
	}

	ext := &extension{
		dir:          dir,
		name:         filepath.Base(dir),
		manifestPath: filepath.Join(dir, manifest.Filename),
		backupPath:   filepath.Join(dir, manifest.BackupFilename),
	}

	if info, err = os.Stat(ext.manifestPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w at %s", errManifestNotFound, ext.manifestPath)
	}

	ext.keyPath = filepath.Join(p.cfg.KeysDir, ext.name+browser.KeyExtension)
	if info, err = os.Stat(ext.keyPath); err == nil && !info.IsDir() {
		ext.hasKey = true
	}

	return ext, nil
}

// knownID returns the registered id. It is only trusted while the signing
// key that produced it is still around.
func (p *publisher) knownID(ctx context.Context, ext *extension) (string, error) {
	if !ext.hasKey {
		logger.Info(ctx, "No signing key found, the browser will generate one")
		return "", nil
	}

	id, err := p.ids.Get(ctx, ext.name)
	if errors.Is(err, ids.ErrNotFound) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Found registered extension id", "extension_id", id)

	return id, nil
}

// loadFeed reads the update feed, starting a new one when it does not exist.
func loadFeed(ctx context.Context, path string) (*updatefeed.Feed, error) {
	feed, err := updatefeed.Load(path)
	if errors.Is(err, updatefeed.ErrNotFound) {
		logger.InfoKV(ctx, "Update feed not found, creating a new one", "path", path)
		return updatefeed.New(), nil
	}

	return feed, err
}

// nextVersion decides which version to serve. When the feed already serves
// the manifest version or a newer one, the served version is bumped so
// installed extensions see an update.
func nextVersion(feed *updatefeed.Feed, knownID, manifestVersion string) (previous, next string, err error) {
	if _, err = manifest.ParseVersion(manifestVersion); err != nil {
		return "", "", err
	}

	if knownID == "" {
		return NoServedVersion, manifestVersion, nil
	}

	served, ok := feed.ServedVersion(knownID)
	if !ok {
		return NoServedVersion, manifestVersion, nil
	}

	cmp, err := manifest.CompareVersions(served, manifestVersion)
	if err != nil {
		return "", "", fmt.Errorf("served version: %w", err)
	}

	if cmp < 0 {
		return served, manifestVersion, nil
	}

	next, err = manifest.IncrementVersion(served)
	if err != nil {
		return "", "", err
	}

	return served, next, nil
}

// stampManifest moves manifest.json aside and writes a copy carrying version
// and the feed URL. The returned function puts the original back.
func (p *publisher) stampManifest(m *manifest.Manifest, ext *extension, version string) (func() error, error) {
	if _, err := os.Stat(ext.backupPath); err == nil {
		return nil, fmt.Errorf("%w: restore %s to %s first", errBackupExists, ext.backupPath, ext.manifestPath)
	}

	if err := os.Rename(ext.manifestPath, ext.backupPath); err != nil {
		return nil, fmt.Errorf("back up manifest: %w", err)
	}

	restore := func() error {
		if err := os.Rename(ext.backupPath, ext.manifestPath); err != nil {
			return fmt.Errorf("restore manifest from %s: %w", ext.backupPath, err)
		}

		return nil
	}

	m.SetVersion(version)
	m.SetUpdateURL(p.cfg.FeedURL(updatefeed.Filename))

	if err := m.Save(ext.manifestPath); err != nil {
		return nil, errors.Join(err, restore())
	}

	return restore, nil
}

// pack runs the browser, keeps a newly generated key and installs the
// archive into the host directory. It returns the installed archive path.
func (p *publisher) pack(ctx context.Context, ext *extension) (string, error) {
	if pids, err := p.runningInstances(p.cfg.BrowserPath); err != nil {
		logger.DebugKV(ctx, "Could not list processes", "error", err)
	} else if len(pids) > 0 {
		logger.WarnKV(ctx, "The browser is already running and may ignore --pack-extension", "pids", pids)
	}

	keyPath := ""
	if ext.hasKey {
		keyPath = ext.keyPath
	}

	logger.InfoKV(ctx, "Packing extension", "browser", p.cfg.BrowserPath, "with_key", ext.hasKey)

	result, err := p.packer.Pack(ctx, ext.dir, keyPath)
	if err != nil {
		return "", fmt.Errorf("pack extension: %w", err)
	}

	if result.NewKeyPath != "" {
		logger.InfoKV(ctx, "Storing generated signing key", "path", ext.keyPath)

		if err = moveFile(result.NewKeyPath, ext.keyPath, KeyFileMode); err != nil {
			return "", fmt.Errorf("store signing key: %w", err)
		}
	}

	archivePath := filepath.Join(p.cfg.HostDir, ext.name+browser.ArchiveExtension)

	logger.InfoKV(ctx, "Installing archive", "path", archivePath)

	if err = installArchive(ctx, result.ArchivePath, archivePath); err != nil {
		return "", err
	}

	return archivePath, nil
}

// resolveID returns knownID or reads the id from the archive and registers it.
func (p *publisher) resolveID(ctx context.Context, ext *extension, knownID, archivePath string) (string, error) {
	if knownID != "" {
		return knownID, nil
	}

	id, err := crx.ReadExtensionID(archivePath)
	if err != nil {
		return "", fmt.Errorf("read extension id: %w", err)
	}

	if keyID, keyErr := crx.IDFromPEMFile(ext.keyPath); keyErr != nil {
		logger.DebugKV(ctx, "Could not derive id from signing key", "error", keyErr)
	} else if keyID != id {
		logger.WarnKV(ctx, "Archive id does not match the signing key", "archive_id", id, "key_id", keyID)
	}

	if err = p.ids.Put(ctx, ext.name, id); err != nil {
		return "", fmt.Errorf("store extension id: %w", err)
	}

	logger.InfoKV(ctx, "Registered extension id", "extension_id", id)

	return id, nil
}
