// Package crx reads the parts of a CRX3 archive needed to identify an extension.
//
// A CRX3 file starts with the "Cr24" magic and a format version, which are
// skipped, then a length-prefixed header block in protobuf wire format. Decode scans
// such a block with a caller-supplied field mapping, and ExtensionID walks
// signed_header_data down to the 16-byte crx_id and renders it with the
// a..p alphabet used by browsers for extension identifiers.
package crx
