package vectodb

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/podcopic-labs/vectodb/internal/annkernel"
	"github.com/podcopic-labs/vectodb/internal/basestore"
	"github.com/podcopic-labs/vectodb/internal/build"
	"github.com/podcopic-labs/vectodb/internal/indexfile"
	"github.com/podcopic-labs/vectodb/internal/manifest"
	"github.com/podcopic-labs/vectodb/internal/metrics"
	"github.com/podcopic-labs/vectodb/internal/search"
)

// Metric selects the kernel's distance function.
type Metric = annkernel.Metric

const (
	// MetricInnerProduct ranks larger scores as better matches.
	MetricInnerProduct = annkernel.MetricInnerProduct
	// MetricL2 ranks smaller scores as better matches.
	MetricL2 = annkernel.MetricL2
)

const lockFileName = ".vectodb.lock"

// BuildResult is an opaque handle to a candidate (index, ntrain) pair
// produced by BuildIndex/TryBuildIndex, ready to hand to ActivateIndex. A
// nil Index inside (Empty() == true) means "nothing to do".
type BuildResult struct {
	index  *annkernel.Index
	ntrain int
}

// Empty reports whether res carries no candidate index.
func (res *BuildResult) Empty() bool { return res == nil || res.index == nil }

// Ntrain returns the training size this result represents (0 for "Flat" or
// for an index that has not been trained yet).
func (res *BuildResult) Ntrain() int {
	if res == nil {
		return 0
	}
	return res.ntrain
}

// DB is an open vectodb database. The zero value is not usable; construct
// one with Open.
type DB struct {
	dir         string
	dim         int
	metric      annkernel.Metric
	indexKey    string
	queryParams string

	store    *basestore.Store
	builder  *build.Builder
	searcher *search.Searcher
	lock     *flock.Flock
	logger   *log.Logger
	metrics  *metrics.Metrics

	// mu guards index/ntrain/ntotal and, transitively, store's in-memory
	// mirror: AddWithIds and ActivateIndex take it exclusively, Search
	// takes it shared for the full duration of the query so the base
	// never gets reallocated under a reader mid-search.
	mu     sync.RWMutex
	index  *annkernel.Index
	ntrain int
	ntotal int

	closeOnce sync.Once
}

// Open opens (creating if absent) a vectodb database rooted at workDir.
//
// dim is the fixed vector width, immutable for the life of the directory.
// metric selects the distance function. indexKey is an opaque kernel
// factory string (e.g. "Flat", "IVF256,Flat"); queryParams is an opaque
// kernel tuning string applied whenever a non-Flat index is (re)trained.
// Both pass through to the kernel untouched.
func Open(workDir string, dim int, metric Metric, indexKey, queryParams string, opts ...Option) (*DB, error) {
	if dim <= 0 {
		return nil, newErr(InvalidArgument, "dim must be positive", nil)
	}
	if metric != MetricInnerProduct && metric != MetricL2 {
		return nil, newErr(InvalidArgument, "unknown metric", nil)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, newErr(IoError, "mkdir work dir", err)
	}

	lk := flock.New(filepath.Join(workDir, lockFileName))
	locked, err := lk.TryLock()
	if err != nil {
		return nil, newErr(IoError, "lock work dir", err)
	}
	if !locked {
		return nil, newErr(IoError, "work dir already open by another process", nil)
	}

	db, err := open(workDir, dim, metric, indexKey, queryParams, o)
	if err != nil {
		lk.Unlock()
		return nil, err
	}
	db.lock = lk
	return db, nil
}

func open(workDir string, dim int, metric Metric, indexKey, queryParams string, o *options) (*DB, error) {
	m, err := manifest.Load(workDir)
	if err != nil {
		return nil, newErr(IoError, "load manifest", err)
	}
	if m == nil {
		if err := manifest.Save(workDir, &manifest.Manifest{Dim: dim, Metric: int(metric), IndexKey: indexKey, QueryParams: queryParams}); err != nil {
			return nil, newErr(IoError, "save manifest", err)
		}
	} else if !m.Matches(dim, int(metric)) {
		return nil, newErr(InvalidArgument, "work dir was created with different dim/metric", nil)
	}

	store, err := basestore.Open(workDir, dim)
	if err != nil {
		if _, ok := err.(*basestore.LengthMismatchError); ok {
			return nil, newErr(BaseLengthMismatch, "base store", err)
		}
		return nil, newErr(IoError, "open base store", err)
	}

	db := &DB{
		dir:         workDir,
		dim:         dim,
		metric:      metric,
		indexKey:    indexKey,
		queryParams: queryParams,
		store:       store,
		builder:     build.New(workDir, dim, indexKey, queryParams, metric),
		searcher:    search.New(dim, metric),
		logger:      o.logger,
		metrics:     metrics.New(o.metrics),
	}

	n := store.Size()
	ntrainDisk, err := indexfile.DiscoverLatest(workDir, indexKey)
	if err != nil {
		store.Close()
		return nil, newErr(IoError, "discover index files", err)
	}

	switch {
	case n >= ntrainDisk && ntrainDisk > 0:
		path := indexfile.PathFor(workDir, indexKey, ntrainDisk)
		idx, err := annkernel.Read(path, indexKey, metric, dim)
		if err != nil {
			store.Close()
			return nil, newErr(IoError, "read index file", err)
		}
		db.index = idx
		db.ntrain = ntrainDisk
		db.ntotal = int(idx.Count())
	case indexKey == "Flat":
		idx, err := annkernel.Factory(dim, indexKey, metric)
		if err != nil {
			store.Close()
			return nil, newErr(KernelError, "build initial flat index", err)
		}
		if n > 0 {
			all, _ := store.SnapshotPtr(0)
			if err := annkernel.Add(idx, n, all); err != nil {
				idx.Delete()
				store.Close()
				return nil, newErr(KernelError, "build initial flat index", err)
			}
		}
		db.index = idx
		db.ntrain = 0
		db.ntotal = n
	default:
		db.index = nil
		db.ntrain = 0
		db.ntotal = 0
	}

	db.metrics.ObserveState(db.ntrain, db.ntotal, n)
	return db, nil
}

// AddWithIds appends nb vectors (xb has nb*dim floats) tagged with ids to
// the base store. nb == 0 is a no-op. Duplicate ids are accepted; later
// occurrences simply shadow earlier ones in id-to-row lookups.
func (db *DB) AddWithIds(ids []int64, xb []float32) error {
	nb := len(ids)
	if nb == 0 {
		return nil
	}
	if len(xb) != nb*db.dim {
		return newErr(InvalidArgument, "xb length does not match ids*dim", nil)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.store.Append(ids, xb); err != nil {
		return newErr(IoError, "append", err)
	}
	db.metrics.ObserveAdd(nb)
	db.metrics.ObserveState(db.ntrain, db.ntotal, db.store.Size())
	return nil
}

// snapshot takes the read-only view of live state a build starts from.
func (db *DB) snapshot() build.Snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return build.Snapshot{N: db.store.Size(), NtotalCurrent: db.ntotal, NtrainCurrent: db.ntrain}
}

// BuildIndex produces a new candidate (index, ntrain) pair from the current
// base snapshot without mutating any live state. The kernel work happens
// entirely outside any lock, so it never blocks AddWithIds or Search.
func (db *DB) BuildIndex() (*BuildResult, error) {
	start := time.Now()
	res, err := db.builder.Build(db.store, db.snapshot())
	if err != nil {
		return nil, newErr(KernelError, "build index", err)
	}
	db.metrics.ObserveBuild(start)
	return &BuildResult{index: res.Index, ntrain: res.Ntrain}, nil
}

// TryBuildIndex is BuildIndex guarded by "N - ntotal > exhaustThreshold";
// it is intended for a caller's periodic maintenance loop and does no
// kernel work at all when the flat tail hasn't grown enough to justify it.
func (db *DB) TryBuildIndex(exhaustThreshold int) (*BuildResult, error) {
	start := time.Now()
	res, err := db.builder.TryBuild(db.store, db.snapshot(), exhaustThreshold)
	if err != nil {
		return nil, newErr(KernelError, "try build index", err)
	}
	if res.Index != nil {
		db.metrics.ObserveBuild(start)
	}
	return &BuildResult{index: res.Index, ntrain: res.Ntrain}, nil
}

// ActivateIndex atomically swaps res into the live IndexState. A nil or
// Empty res is a no-op. The new index file is persisted before the
// in-memory swap, and any file superseded by this activation is removed
// only after the new one is safely on disk — so a crash between write and
// swap is recoverable via DiscoverLatest on the next Open, and a failure
// after the write never leaves a partial file for DiscoverLatest to trip
// over.
func (db *DB) ActivateIndex(res *BuildResult) error {
	if res.Empty() {
		return nil
	}

	if db.indexKey != "Flat" {
		path := indexfile.PathFor(db.dir, db.indexKey, res.ntrain)
		if err := annkernel.Write(res.index, path); err != nil {
			return newErr(IoError, "activate: write index file", err)
		}

		db.mu.RLock()
		oldNtrain := db.ntrain
		db.mu.RUnlock()

		if oldNtrain != 0 && oldNtrain != res.ntrain {
			oldPath := indexfile.PathFor(db.dir, db.indexKey, oldNtrain)
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				os.Remove(path)
				return newErr(IoError, "activate: remove superseded index file", err)
			}
		}
	}

	db.mu.Lock()
	old := db.index
	db.index = res.index
	db.ntrain = res.ntrain
	db.ntotal = int(res.index.Count())
	n := db.store.Size()
	db.mu.Unlock()

	if old != nil {
		old.Delete()
	}
	db.metrics.ObserveActivate(res.ntrain, int(res.index.Count()), n)
	db.logger.Printf("vectodb: activated index %s ntrain=%d ntotal=%d", db.indexKey, res.ntrain, int(res.index.Count()))
	return nil
}

// Stats is a point-in-time snapshot of a database's live state.
type Stats struct {
	Dim      int
	IndexKey string
	Ntrain   int
	Ntotal   int
	N        int
}

// Stats reports the database's current dimension, kernel factory string,
// training size, trained-index row count, and total base store size.
func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return Stats{Dim: db.dim, IndexKey: db.indexKey, Ntrain: db.ntrain, Ntotal: db.ntotal, N: db.store.Size()}
}

// Search answers nq queries (nq*dim floats in xq) and returns, per query,
// the row index within the base store of its best match plus that match's
// distance under this database's metric. An empty database (or a query
// slot with no candidate from either search phase) returns id -1 and
// distance 0 for that slot.
func (db *DB) Search(nq int, xq []float32) ([]float32, []int64, error) {
	if nq <= 0 {
		return nil, nil, newErr(InvalidArgument, "nq must be positive", nil)
	}
	if len(xq) != nq*db.dim {
		return nil, nil, newErr(InvalidArgument, "xq length does not match nq*dim", nil)
	}

	start := time.Now()
	db.mu.RLock()
	defer db.mu.RUnlock()

	distances, ids, err := db.searcher.Search(db.store, db.index, db.ntotal, nq, xq)
	if err != nil {
		return nil, nil, newErr(KernelError, "search", err)
	}
	db.metrics.ObserveSearch(start)
	return distances, ids, nil
}

// Close releases the database's resources. Safe to call more than once.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		db.logger.Println("vectodb: closing database...")
		db.mu.Lock()
		if db.index != nil {
			db.index.Delete()
			db.index = nil
		}
		db.mu.Unlock()

		if cerr := db.store.Close(); cerr != nil {
			err = newErr(IoError, "close base store", cerr)
		}
		if db.lock != nil {
			if uerr := db.lock.Unlock(); uerr != nil && err == nil {
				err = newErr(IoError, "unlock work dir", uerr)
			}
		}
	})
	return err
}

// ClearWorkDir removes base.fvecs and every persisted index file under
// path. The caller must ensure no DB is currently open on path.
func ClearWorkDir(path string) error {
	if err := indexfile.Clear(path); err != nil {
		return newErr(IoError, "clear work dir", err)
	}
	manifestPath := filepath.Join(path, "manifest.json")
	if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
		return newErr(IoError, "clear work dir: remove manifest", err)
	}
	return nil
}
