// Package ports defines interfaces for infrastructure operations.
// Host code depends on these abstractions; adapters under infrastructure/
// and application/ implement them.
package ports
