// Package domain defines the core business entities for marketsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - CatalogRecord: A marketplace product mirrored into the cache
//   - LocalRecord: A read-only view of the commerce store's product
//   - MutationCandidate: A proposed marketplace change and its dispatch state
//   - CycleReport: The aggregate outcome of a reconciliation cycle
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import the Go
// standard library and github.com/shopspring/decimal for money. All other
// packages depend on domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, shopspring/decimal
//   - Cannot Import: Any internal/ package
package domain
