// Package deb reads and writes Debian binary packages for repository indexing.
//
// The package operates on streams and plain files, with no dependency on
// dpkg or apt-ftparchive. Scan extracts the raw control stanza and the file
// checksums an APT Packages index needs; Builder produces a minimal valid
// .deb archive (debian-binary, control.tar.gz, data.tar.gz), which is useful
// for tooling and test fixtures.
package deb
