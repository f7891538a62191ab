// Package driving provides interfaces for primary/inbound ports: the
// operations the surrounding document service and API layer invoke.
package driving
