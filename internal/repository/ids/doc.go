// Package ids persists the extension ids assigned to packed extensions.
//
// The FileRepository keeps a JSON object mapping extension directory names
// to their ids next to the signing keys, so later runs can find an
// extension's feed entry before the archive is rebuilt.
package ids
