// Package browser drives a Chromium-based browser to pack and sign an
// extension directory with --pack-extension, and detects running browser
// instances that would swallow such a request.
package browser
