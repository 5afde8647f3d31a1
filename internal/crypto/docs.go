// crypto package provides the payload encryption used for documents at rest (box.go),
// SHA-256 checksums and canonical JSON fingerprints.
//
// these are low level functions - the workflow package decides when documents are sealed and opened.
package crypto
