// Package sku allocates sequential product SKUs (PREFIX-YYYY-NNNN) backed by
// a JSON counter file in the data directory. Allocation is safe across
// goroutines and across processes via an advisory file lock, and a disk
// scanner can rebuild the counter from SKU-named artifacts when the state
// file is lost.
package sku
