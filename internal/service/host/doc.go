// Package host serves the update feed and extension archives over HTTP so
// browsers configured with the feed URL can fetch updates.
package host
