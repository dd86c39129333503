// Package config defines the settings used by the extension-host commands
// and provides helpers to load, validate and save them in YAML format.
//
// Config holds the update host URL, the browser used for packing and the
// directories for served files and signing keys.
package config
