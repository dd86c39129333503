package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Filename is the manifest name inside an extension directory.
	Filename = "manifest.json"

	// BackupFilename keeps the untouched manifest while a patched copy is packed.
	BackupFilename = "manifest_orig.json"

	keyVersion   = "version"
	keyUpdateURL = "update_url"

	// fileMode is used for the temporary manifest.
	fileMode = 0o644
)

var errMissingField = errors.New("manifest field is missing")

// Manifest is a manifest.json object. Keys other than version and
// update_url are kept as raw JSON and written back untouched.
type Manifest struct {
	fields map[string]json.RawMessage
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(contents)
}

// Parse decodes manifest contents.
func Parse(contents []byte) (*Manifest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(contents, &fields); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	return &Manifest{fields: fields}, nil
}

// Version returns the manifest version string.
func (m *Manifest) Version() (string, error) {
	return m.stringField(keyVersion)
}

// UpdateURL returns update_url or an empty string when unset.
func (m *Manifest) UpdateURL() string {
	value, err := m.stringField(keyUpdateURL)
	if err != nil {
		return ""
	}

	return value
}

// SetVersion replaces the version.
func (m *Manifest) SetVersion(version string) {
	m.setString(keyVersion, version)
}

// SetUpdateURL points the browser at an autoupdate feed.
func (m *Manifest) SetUpdateURL(url string) {
	m.setString(keyUpdateURL, url)
}

// Marshal renders the manifest with two-space indentation.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(m.fields); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	contents, err := m.Marshal()
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(path), contents, fileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

func (m *Manifest) stringField(key string) (string, error) {
	raw, ok := m.fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", errMissingField, key)
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("manifest %s: %w", key, err)
	}

	return value, nil
}

func (m *Manifest) setString(key, value string) {
	// Marshalling a string cannot fail.
	raw, _ := json.Marshal(value) //nolint:errchkjson // See above.
	m.fields[key] = raw
}
