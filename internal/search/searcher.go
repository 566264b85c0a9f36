// Package search implements the two-phase fused query: an ANN pass over
// the active index (refined to exact distances when the index is
// approximate) fused with an exact scan of the flat tail, merged under the
// declared metric.
package search

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/podcopic-labs/vectodb/internal/annkernel"
	"github.com/podcopic-labs/vectodb/internal/basestore"
)

// K is the internal ANN fan-out used for both the candidate pull and the
// flat-tail scan.
const K = 100

// refineConcurrency bounds how many per-query refinement passes run at
// once. This package does not set the kernel's own internal thread count;
// each kernel call runs with whatever threading the kernel defaults to.
const refineConcurrency = 8

// candidate is one phase's proposed answer for a single query.
type candidate struct {
	id   int64
	dist float32
	has  bool
}

// Searcher runs queries against a (possibly absent) active index plus the
// store's flat tail.
type Searcher struct {
	dim    int
	metric annkernel.Metric
}

// New returns a Searcher for the given dimension and metric.
func New(dim int, metric annkernel.Metric) *Searcher {
	return &Searcher{dim: dim, metric: metric}
}

// Search answers nq queries (nq*dim floats in q) against active (the
// currently-activated index, or nil if none) covering the first ntotal
// rows of store, fused with an exact scan of store's flat tail [ntotal, N).
//
// An empty result slot (neither phase produced a candidate) is returned as
// id -1 and distance 0.
func (s *Searcher) Search(store *basestore.Store, active *annkernel.Index, ntotal int, nq int, q []float32) ([]float32, []int64, error) {
	if nq == 0 {
		return nil, nil, nil
	}
	if len(q) != nq*s.dim {
		return nil, nil, fmt.Errorf("search: query has %d floats, want %d for nq=%d dim=%d", len(q), nq*s.dim, nq, s.dim)
	}

	base, n := store.SnapshotPtr(0)

	var phaseA, phaseB []candidate
	g := new(errgroup.Group)
	if active != nil && ntotal > 0 {
		g.Go(func() error {
			var err error
			phaseA, err = s.phaseA(active, base, n, nq, q)
			return err
		})
	}
	if ntotal < n {
		g.Go(func() error {
			var err error
			phaseB, err = s.phaseB(base, ntotal, n, nq, q)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}

	distances := make([]float32, nq)
	ids := make([]int64, nq)
	for i := 0; i < nq; i++ {
		var best candidate
		if phaseA != nil && phaseA[i].has {
			best = phaseA[i]
		}
		if phaseB != nil && phaseB[i].has {
			if !best.has || s.metric.Better(phaseB[i].dist, best.dist) {
				best = phaseB[i]
			}
		}
		if best.has {
			ids[i] = best.id
			distances[i] = best.dist
		} else {
			ids[i] = -1
			distances[i] = 0
		}
	}
	return distances, ids, nil
}

// phaseA asks active for the top-K per query, then refines to exact
// distances when active is not itself an exact index.
func (s *Searcher) phaseA(active *annkernel.Index, base []float32, n, nq int, q []float32) ([]candidate, error) {
	dists, annIDs, err := annkernel.Search(active, nq, q, K)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, nq)
	if active.IsExact() {
		for i := 0; i < nq; i++ {
			id := annIDs[i*K]
			if id < 0 {
				continue
			}
			out[i] = candidate{id: id, dist: dists[i*K], has: true}
		}
		return out, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(refineConcurrency)
	for i := 0; i < nq; i++ {
		i := i
		g.Go(func() error {
			c, err := s.refineQuery(base, n, annIDs[i*K:(i+1)*K], q[i*s.dim:(i+1)*s.dim])
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// refineQuery rebuilds a transient exact index over candIDs' rows and
// re-searches it, mapping the refined local position back to the original
// candidate row id.
func (s *Searcher) refineQuery(base []float32, n int, candIDs []int64, query []float32) (candidate, error) {
	ids := make([]int64, 0, len(candIDs))
	vecs := make([]float32, 0, len(candIDs)*s.dim)
	for _, id := range candIDs {
		if id < 0 || int(id) >= n {
			continue
		}
		ids = append(ids, id)
		vecs = append(vecs, base[int(id)*s.dim:(int(id)+1)*s.dim]...)
	}
	if len(ids) == 0 {
		return candidate{}, nil
	}

	idx, err := annkernel.Factory(s.dim, "Flat", s.metric)
	if err != nil {
		return candidate{}, err
	}
	defer idx.Delete()
	if err := annkernel.Add(idx, len(ids), vecs); err != nil {
		return candidate{}, err
	}

	dists, localIDs, err := annkernel.Search(idx, 1, query, len(ids))
	if err != nil {
		return candidate{}, err
	}
	if len(localIDs) == 0 || localIDs[0] < 0 {
		return candidate{}, nil
	}
	return candidate{id: ids[localIDs[0]], dist: dists[0], has: true}, nil
}

// phaseB builds one transient exact index over the flat tail [ntotal, n)
// and shares it across all nq queries in this call: built once per Search,
// not once per query.
func (s *Searcher) phaseB(base []float32, ntotal, n, nq int, q []float32) ([]candidate, error) {
	tailLen := n - ntotal
	if tailLen <= 0 {
		return nil, nil
	}
	tailVecs := base[ntotal*s.dim : n*s.dim]

	idx, err := annkernel.Factory(s.dim, "Flat", s.metric)
	if err != nil {
		return nil, err
	}
	defer idx.Delete()
	if err := annkernel.Add(idx, tailLen, tailVecs); err != nil {
		return nil, err
	}

	k := K
	if k > tailLen {
		k = tailLen
	}
	dists, localIDs, err := annkernel.Search(idx, nq, q, k)
	if err != nil {
		return nil, err
	}

	out := make([]candidate, nq)
	for i := 0; i < nq; i++ {
		local := localIDs[i*k]
		if local < 0 {
			continue
		}
		out[i] = candidate{id: local + int64(ntotal), dist: dists[i*k], has: true}
	}
	return out, nil
}
