// Package annkernel wraps the external ANN kernel (github.com/DataIntelligenceCrew/go-faiss)
// behind the narrow surface the core is allowed to depend on: factory, train,
// add, search, read/write, is_exact, and pass-through of the opaque
// query_params tuning string. Nothing else about the kernel leaks out of
// this package.
package annkernel

import (
	"fmt"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// Metric selects the kernel's distance function.
type Metric int

const (
	// MetricInnerProduct ranks larger scores as better matches.
	MetricInnerProduct Metric = 0
	// MetricL2 ranks smaller scores as better matches.
	MetricL2 Metric = 1
)

func (m Metric) faiss() int {
	if m == MetricInnerProduct {
		return faiss.MetricInnerProduct
	}
	return faiss.MetricL2
}

// Better reports whether distance a is a better match than distance b under m.
func (m Metric) Better(a, b float32) bool {
	if m == MetricInnerProduct {
		return a > b
	}
	return a < b
}

// Index is a trained or untrained kernel index plus the bookkeeping the
// core needs that the kernel itself does not expose.
type Index struct {
	idx      faiss.Index
	indexKey string
	metric   Metric
	dim      int
}

// Count returns the number of rows currently covered by the index.
func (i *Index) Count() int64 { return i.idx.Ntotal() }

// IsExact reports whether this index is a pure linear scan (the "Flat"
// family). The kernel exposes no such predicate; the core tracks it itself
// from the factory string it built the index with.
func (i *Index) IsExact() bool { return i.indexKey == "Flat" }

// Delete releases the kernel's native resources. Safe to call once.
func (i *Index) Delete() {
	if i.idx != nil {
		i.idx.Delete()
		i.idx = nil
	}
}

// Factory produces a fresh, empty index for the given dimension, factory
// string, and metric.
func Factory(dim int, indexKey string, metric Metric) (*Index, error) {
	idx, err := faiss.IndexFactory(dim, indexKey, metric.faiss())
	if err != nil {
		return nil, fmt.Errorf("kernel factory %q: %w", indexKey, err)
	}
	return &Index{idx: idx, indexKey: indexKey, metric: metric, dim: dim}, nil
}

// Train trains index on the first nt rows of x (nt*dim floats).
func Train(index *Index, nt int, x []float32) error {
	if index.indexKey == "Flat" {
		return nil
	}
	if err := index.idx.Train(x[:nt*index.dim]); err != nil {
		return fmt.Errorf("kernel train (nt=%d): %w", nt, err)
	}
	return nil
}

// Add appends nb rows (nb*dim floats) to index; index.Count() grows by nb.
func Add(index *Index, nb int, x []float32) error {
	if nb == 0 {
		return nil
	}
	if err := index.idx.Add(x[:nb*index.dim]); err != nil {
		return fmt.Errorf("kernel add (nb=%d): %w", nb, err)
	}
	return nil
}

// Search runs nq queries (nq*dim floats) against index, asking for k
// neighbors each. Returned ids are row indices within the index (-1 for an
// empty slot); distances are ordered best-first per the index's metric.
func Search(index *Index, nq int, q []float32, k int) (distances []float32, ids []int64, err error) {
	if nq == 0 || k == 0 {
		return nil, nil, nil
	}
	distances, ids, err = index.idx.Search(q[:nq*index.dim], int64(k))
	if err != nil {
		return nil, nil, fmt.Errorf("kernel search (nq=%d, k=%d): %w", nq, k, err)
	}
	return distances, ids, nil
}

// Write persists index to path.
func Write(index *Index, path string) error {
	if err := faiss.WriteIndex(index.idx, path); err != nil {
		return fmt.Errorf("kernel write %s: %w", path, err)
	}
	return nil
}

// Read restores an index previously written by Write. The caller supplies
// the indexKey/metric it was built with, since the kernel's on-disk format
// does not round-trip that bookkeeping in a form this package inspects.
func Read(path string, indexKey string, metric Metric, dim int) (*Index, error) {
	idx, err := faiss.ReadIndex(path, 0)
	if err != nil {
		return nil, fmt.Errorf("kernel read %s: %w", path, err)
	}
	return &Index{idx: idx, indexKey: indexKey, metric: metric, dim: dim}, nil
}

// ApplyQueryParams passes the opaque query_params tuning string through to
// the kernel's parameter space (e.g. "nprobe=32" for an IVF index). A blank
// params is a no-op.
func ApplyQueryParams(index *Index, params string) error {
	if params == "" {
		return nil
	}
	ps, err := faiss.NewParameterSpace()
	if err != nil {
		return fmt.Errorf("kernel parameter space: %w", err)
	}
	defer ps.Delete()
	if err := ps.SetIndexParameters(index.idx, params); err != nil {
		return fmt.Errorf("kernel set parameters %q: %w", params, err)
	}
	return nil
}
