// Package build produces a new (index, ntrain) pair from the current base
// snapshot without mutating any live state. Builds run entirely off the hot
// path: no lock is held while the kernel trains or adds.
package build

import (
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/podcopic-labs/vectodb/internal/annkernel"
	"github.com/podcopic-labs/vectodb/internal/basestore"
	"github.com/podcopic-labs/vectodb/internal/indexfile"
)

// MaxNtrain bounds how many rows a single build will ever train on.
const MaxNtrain = 160000

// Result is the outcome of a build: a fresh or reused index ready to
// activate, or a nil Index meaning "nothing to do".
type Result struct {
	Index  *annkernel.Index
	Ntrain int
}

// Builder builds candidate indexes for one database's working directory.
type Builder struct {
	dir         string
	dim         int
	indexKey    string
	queryParams string
	metric      annkernel.Metric

	sf singleflight.Group
}

// New returns a Builder for the given working directory and kernel config.
func New(dir string, dim int, indexKey, queryParams string, metric annkernel.Metric) *Builder {
	return &Builder{dir: dir, dim: dim, indexKey: indexKey, queryParams: queryParams, metric: metric}
}

// Snapshot is the read-only view of live state a build starts from.
type Snapshot struct {
	N             int
	NtotalCurrent int
	NtrainCurrent int
}

// Build decides, from the current snapshot, whether to reuse the active
// index as-is, extend it over a grown flat tail, or train fresh. Concurrent
// calls for the same Builder are coalesced via singleflight: only one
// kernel build runs at a time, and every caller waiting on it observes the
// same Result.
func (b *Builder) Build(store *basestore.Store, snap Snapshot) (*Result, error) {
	v, err, _ := b.sf.Do("build", func() (interface{}, error) {
		return b.build(store, snap)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// TryBuild is Build guarded by "N - ntotal_current > exhaustThreshold";
// otherwise it is a no-op returning the unchanged ntrain.
func (b *Builder) TryBuild(store *basestore.Store, snap Snapshot, exhaustThreshold int) (*Result, error) {
	if snap.N-snap.NtotalCurrent <= exhaustThreshold {
		return &Result{Index: nil, Ntrain: snap.NtrainCurrent}, nil
	}
	return b.Build(store, snap)
}

func (b *Builder) build(store *basestore.Store, snap Snapshot) (*Result, error) {
	n := snap.N
	if n == 0 {
		return &Result{Index: nil, Ntrain: snap.NtrainCurrent}, nil
	}

	if b.indexKey == "Flat" {
		idx, err := annkernel.Factory(b.dim, b.indexKey, b.metric)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		all, _ := store.SnapshotPtr(0)
		if err := annkernel.Add(idx, n, all); err != nil {
			idx.Delete()
			return nil, fmt.Errorf("build: %w", err)
		}
		return &Result{Index: idx, Ntrain: 0}, nil
	}

	nt := n / 10
	if nt < MaxNtrain {
		nt = MaxNtrain
	}
	if nt > n {
		nt = n
	}

	if nt == snap.NtrainCurrent && n == snap.NtotalCurrent {
		return &Result{Index: nil, Ntrain: nt}, nil
	}

	if nt == snap.NtrainCurrent && n > snap.NtotalCurrent {
		path := indexfile.PathFor(b.dir, b.indexKey, snap.NtrainCurrent)
		idx, err := annkernel.Read(path, b.indexKey, b.metric, b.dim)
		if err != nil {
			return nil, fmt.Errorf("build: reuse training: %w", err)
		}
		tail, tailN := store.SnapshotPtr(snap.NtotalCurrent)
		nb := tailN - snap.NtotalCurrent
		if err := annkernel.Add(idx, nb, tail); err != nil {
			idx.Delete()
			return nil, fmt.Errorf("build: reuse training: add tail: %w", err)
		}
		return &Result{Index: idx, Ntrain: nt}, nil
	}

	idx, err := annkernel.Factory(b.dim, b.indexKey, b.metric)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	all, allN := store.SnapshotPtr(0)
	if err := annkernel.Train(idx, nt, all); err != nil {
		idx.Delete()
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := annkernel.ApplyQueryParams(idx, b.queryParams); err != nil {
		idx.Delete()
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := annkernel.Add(idx, allN, all); err != nil {
		idx.Delete()
		return nil, fmt.Errorf("build: %w", err)
	}
	return &Result{Index: idx, Ntrain: nt}, nil
}
