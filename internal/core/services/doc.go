// Package services implements the core engine operations: structural
// analysis, chunking, fingerprinting, search and context optimisation.
// Services depend only on domain types and driven ports, so tests can
// run them against in-memory adapters.
package services
