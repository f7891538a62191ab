// Package sqlite implements the document, fingerprint and embedding
// cache stores on a single SQLite database. Embeddings persist as
// fixed-width little-endian float32 blobs; chunk replacement for a
// document runs as one transaction so readers never observe a
// half-written index.
package sqlite
