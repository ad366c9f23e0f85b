// Package archive compresses the staging tree into the distributable zip and
// extracts the downloaded runtime redistributable into it.
//
// Extraction validates every entry name, so a malformed archive can never
// write outside the destination directory.
package archive
