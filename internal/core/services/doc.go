// Package services holds the reconciliation engine: the catalog fetcher,
// deletion reconciler, diff engine and batch dispatcher, the cycle that
// runs them in order, and the scheduler that repeats the cycle.
//
// Services reach infrastructure only through driven ports.
package services
