// Package version reports which extension-host build is running.
package version
