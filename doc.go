// Package vectodb is an embeddable approximate-nearest-neighbor vector
// database for a single working directory. Clients add fixed-dimension
// float vectors tagged with 64-bit identifiers and later ask for the
// nearest neighbor of a query vector under a chosen distance metric.
//
// The database persists every added vector to an append-only base file
// and periodically materializes a trained ANN index file alongside it; on
// restart it reconstructs its in-memory working set from both files. The
// heavy lifting — training, adding to, and searching an index — is
// delegated to github.com/DataIntelligenceCrew/go-faiss; this package owns
// only the lifecycle around it: the base store, the trained-index/flat-tail
// split, the fused two-phase search, and the build/activate state machine
// that prepares a new index off the hot path and swaps it in atomically.
package vectodb
