// Package publisher packs an extension directory with the browser and
// publishes the archive to the update host.
//
// It stamps the manifest with the next served version and the feed URL,
// keeps the signing key and the extension id across runs, installs the
// archive into the host directory and points the update feed at it. The
// original manifest.json is restored whatever the outcome.
package publisher
