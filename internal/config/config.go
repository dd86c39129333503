package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the publish, id and serve commands.
type Config struct {
	// HostURL is the base URL browsers use to reach the update host.
	HostURL string `yaml:"host_url"`
	// BrowserPath is the browser executable used for --pack-extension.
	BrowserPath string `yaml:"browser_path"`
	// HostDir is the directory served by the update host.
	HostDir string `yaml:"host_dir"`
	// KeysDir stores signing keys and the extension id registry.
	KeysDir string `yaml:"keys_dir"`
	// ListenAddress overrides the address the host listens on.
	ListenAddress string `yaml:"listen_addr,omitempty"`
	// PackTimeout bounds a single browser packing run.
	PackTimeout time.Duration `yaml:"pack_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "extension-host-settings.yaml"

	// DefaultHostURL matches the address of a local development host.
	DefaultHostURL = "http://127.0.0.1:8888"

	// DefaultBrowserPath is looked up in PATH.
	DefaultBrowserPath = "google-chrome"

	// DefaultHostDir is the served directory.
	DefaultHostDir = "host"

	// DefaultKeysDir holds signing keys.
	DefaultKeysDir = "PEMs"

	// DefaultPackTimeout is the default limit for a browser packing run.
	DefaultPackTimeout = 2 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnsupportedScheme is returned for host URLs browsers cannot poll.
	errUnsupportedScheme = errors.New("host url must use http or https")
)

// Default returns settings populated with defaults.
func Default() *Config {
	return &Config{
		HostURL:     DefaultHostURL,
		BrowserPath: DefaultBrowserPath,
		HostDir:     DefaultHostDir,
		KeysDir:     DefaultKeysDir,
		PackTimeout: DefaultPackTimeout,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file is absent.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()

		return cfg, Validate(cfg)
	}

	return cfg, err
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills defaults for empty fields.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.HostURL == "" {
		settings.HostURL = DefaultHostURL
	}

	// A trailing slash would produce "//" in derived URLs.
	settings.HostURL = strings.TrimRight(settings.HostURL, "/")

	hostURL, err := url.ParseRequestURI(settings.HostURL)
	if err != nil {
		return fmt.Errorf("invalid host url: %w", err)
	}

	if hostURL.Scheme != "http" && hostURL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errUnsupportedScheme, settings.HostURL)
	}

	if settings.BrowserPath == "" {
		settings.BrowserPath = DefaultBrowserPath
	}

	if settings.HostDir == "" {
		settings.HostDir = DefaultHostDir
	}

	if settings.KeysDir == "" {
		settings.KeysDir = DefaultKeysDir
	}

	if settings.PackTimeout <= 0 {
		settings.PackTimeout = DefaultPackTimeout
	}

	if settings.ListenAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	return nil
}

// FeedURL returns the update_url written into packed manifests.
func (c *Config) FeedURL(feedFilename string) string {
	return c.HostURL + "/" + feedFilename
}

// ArchiveURL returns the codebase URL of an extension archive.
func (c *Config) ArchiveURL(name string) string {
	return c.HostURL + "/" + url.PathEscape(name) + ".crx"
}

// ResolveListenAddress returns ListenAddress, or ":<port>" taken from HostURL.
func (c *Config) ResolveListenAddress() string {
	if c.ListenAddress != "" {
		return c.ListenAddress
	}

	hostURL, err := url.Parse(c.HostURL)
	if err != nil || hostURL.Port() == "" {
		if hostURL != nil && hostURL.Scheme == "https" {
			return ":443"
		}

		return ":80"
	}

	return ":" + hostURL.Port()
}
