// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, embedding generation and
// configuration.
package driven
