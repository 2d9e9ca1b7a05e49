// Package contactsync holds build-level metadata shared by the CLI and
// the release tooling.
package contactsync

// Version is the semantic version of the contactsync tool.
const Version = "0.3.0"
