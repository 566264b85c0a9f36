package search

import (
	"testing"

	"github.com/podcopic-labs/vectodb/internal/annkernel"
	"github.com/podcopic-labs/vectodb/internal/basestore"
)

func mustStore(t *testing.T, dim int, ids []int64, xb []float32) *basestore.Store {
	t.Helper()
	s, err := basestore.Open(t.TempDir(), dim)
	if err != nil {
		t.Fatalf("basestore.Open: %v", err)
	}
	if err := s.Append(ids, xb); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return s
}

func mustFlatIndex(t *testing.T, dim int, metric annkernel.Metric, nb int, xb []float32) *annkernel.Index {
	t.Helper()
	idx, err := annkernel.Factory(dim, "Flat", metric)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if err := annkernel.Add(idx, nb, xb); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return idx
}

func TestSearchExactActiveIndexNoTail(t *testing.T) {
	xb := []float32{0, 0, 3, 4, 1, 1}
	store := mustStore(t, 2, []int64{10, 11, 12}, xb)
	idx := mustFlatIndex(t, 2, annkernel.MetricL2, 3, xb)
	defer idx.Delete()

	s := New(2, annkernel.MetricL2)
	dists, ids, err := s.Search(store, idx, 3, 1, []float32{3, 4})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != 1 || dists[0] != 0 {
		t.Fatalf("Search = (ids=%v, dists=%v), want (ids=[1], dists=[0])", ids, dists)
	}
}

func TestSearchFlatTailOnlyNoActiveIndex(t *testing.T) {
	xb := []float32{0, 0, 3, 4, 1, 1}
	store := mustStore(t, 2, []int64{10, 11, 12}, xb)

	s := New(2, annkernel.MetricL2)
	dists, ids, err := s.Search(store, nil, 0, 1, []float32{1, 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != 2 || dists[0] != 0 {
		t.Fatalf("Search = (ids=%v, dists=%v), want (ids=[2], dists=[0])", ids, dists)
	}
}

func TestSearchMergePrefersFlatTailWhenBetter(t *testing.T) {
	// Active index only covers row 0; row 1 (the flat tail) is the true
	// nearest neighbor and must win the merge.
	xb := []float32{100, 100, 0, 0}
	store := mustStore(t, 2, []int64{1, 2}, xb)
	idx := mustFlatIndex(t, 2, annkernel.MetricL2, 1, xb[:2])
	defer idx.Delete()

	s := New(2, annkernel.MetricL2)
	dists, ids, err := s.Search(store, idx, 1, 1, []float32{0, 0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != 1 || dists[0] != 0 {
		t.Fatalf("Search = (ids=%v, dists=%v), want (ids=[1], dists=[0]) (tail must win)", ids, dists)
	}
}

func TestSearchOnEmptyDatabaseReturnsSentinel(t *testing.T) {
	store := mustStore(t, 2, nil, nil)
	s := New(2, annkernel.MetricL2)
	dists, ids, err := s.Search(store, nil, 0, 1, []float32{1, 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != -1 || dists[0] != 0 {
		t.Fatalf("Search on empty db = (ids=%v, dists=%v), want (ids=[-1], dists=[0])", ids, dists)
	}
}

func TestSearchRejectsWrongQueryLength(t *testing.T) {
	store := mustStore(t, 2, []int64{1}, []float32{0, 0})
	s := New(2, annkernel.MetricL2)
	if _, _, err := s.Search(store, nil, 0, 1, []float32{0, 0, 0}); err == nil {
		t.Fatal("Search with mismatched query length: want error, got nil")
	}
}

func TestSearchRefinesApproximateIndex(t *testing.T) {
	dim := 4
	ids := make([]int64, 50)
	xb := make([]float32, 50*dim)
	for i := range ids {
		ids[i] = int64(i)
		for j := 0; j < dim; j++ {
			xb[i*dim+j] = float32(i)
		}
	}
	store := mustStore(t, dim, ids, xb)

	idx, err := annkernel.Factory(dim, "IVF4,Flat", annkernel.MetricL2)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	defer idx.Delete()
	if err := annkernel.Train(idx, 50, xb); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := annkernel.Add(idx, 50, xb); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s := New(dim, annkernel.MetricL2)
	query := make([]float32, dim)
	for j := range query {
		query[j] = 10
	}
	_, ids2, err := s.Search(store, idx, 50, 1, query)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids2[0] < 0 || ids2[0] >= 50 {
		t.Fatalf("Search refine returned out-of-range id %d", ids2[0])
	}
}
