// Package manifest edits an extension's manifest.json and handles the
// dotted version numbers browsers accept for extensions.
package manifest
