// Package domain contains the core business entities for the paperlens
// indexing and retrieval engine: documents, sections, chunks, fingerprints
// and search results. It has no dependencies on adapters or services.
package domain
