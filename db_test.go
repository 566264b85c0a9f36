package vectodb

import (
	"math/rand"
	"os"
	"testing"
)

// S1/S2: Flat index, L2 metric, exact nearest neighbor by row index.
func TestFlatL2NearestNeighbor(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 2, MetricL2, "Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ids := []int64{10, 11, 12}
	xb := []float32{0, 0, 3, 4, 1, 1}
	if err := db.AddWithIds(ids, xb); err != nil {
		t.Fatalf("AddWithIds: %v", err)
	}

	dists, resIDs, err := db.Search(1, []float32{0, 0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resIDs[0] != 0 || dists[0] != 0.0 {
		t.Fatalf("Search([0,0]) = (ids=%v, dists=%v), want (ids=[0], dists=[0])", resIDs, dists)
	}

	dists, resIDs, err = db.Search(1, []float32{3, 4})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resIDs[0] != 1 || dists[0] != 0.0 {
		t.Fatalf("Search([3,4]) = (ids=%v, dists=%v), want (ids=[1], dists=[0])", resIDs, dists)
	}
}

// S3: Flat index, inner product metric.
func TestFlatInnerProduct(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 2, MetricInnerProduct, "Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.AddWithIds([]int64{1, 2}, []float32{1, 0, 0, 1}); err != nil {
		t.Fatalf("AddWithIds: %v", err)
	}

	dists, ids, err := db.Search(1, []float32{2, 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != 0 || dists[0] != 2.0 {
		t.Fatalf("Search([2,1]) = (ids=%v, dists=%v), want (ids=[0], dists=[2])", ids, dists)
	}
}

// S4: restart durability — a truncated tail must be rejected at reopen.
func TestRestartDurabilityRejectsTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 2, MetricL2, "Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.AddWithIds([]int64{1}, []float32{5, 6}); err != nil {
		t.Fatalf("AddWithIds: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := dir + "/base.fvecs"
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	_, err = Open(dir, 2, MetricL2, "Flat", "")
	if err == nil {
		t.Fatal("Open on truncated base file: want error, got nil")
	}
	if !IsKind(err, BaseLengthMismatch) {
		t.Fatalf("Open error kind = %v, want BaseLengthMismatch", err)
	}
}

func TestAddWithIdsRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 3, MetricL2, "Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	err = db.AddWithIds([]int64{1}, []float32{1, 2})
	if err == nil || !IsKind(err, InvalidArgument) {
		t.Fatalf("AddWithIds with wrong-length xb: got %v, want InvalidArgument", err)
	}
}

func TestSearchOnEmptyDatabaseReturnsSentinel(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 2, MetricL2, "IVF256,Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	dists, ids, err := db.Search(1, []float32{1, 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ids[0] != -1 || dists[0] != 0 {
		t.Fatalf("Search on empty db = (ids=%v, dists=%v), want (ids=[-1], dists=[0])", ids, dists)
	}
}

func TestClearWorkDirResetsDirectory(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, 2, MetricL2, "Flat", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.AddWithIds([]int64{1}, []float32{1, 2}); err != nil {
		t.Fatalf("AddWithIds: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := ClearWorkDir(dir); err != nil {
		t.Fatalf("ClearWorkDir: %v", err)
	}

	db2, err := Open(dir, 2, MetricL2, "Flat", "")
	if err != nil {
		t.Fatalf("reopen after clear: %v", err)
	}
	defer db2.Close()
	if _, ids, err := db2.Search(1, []float32{1, 2}); err != nil || ids[0] != -1 {
		t.Fatalf("search after clear = (%v, %v), want empty-db sentinel", ids, err)
	}
}

// S5/S6: build/activate cycle and flat-tail correctness at scale. Skipped
// under -short since it trains an IVF index over 200,000 vectors.
func TestBuildActivateCycleAndFlatTail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large build/activate scenario in -short mode")
	}

	dir := t.TempDir()
	const dim = 8
	db, err := Open(dir, dim, MetricL2, "IVF256,Flat", "nprobe=8")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	rng := rand.New(rand.NewSource(1))
	const n = 200000
	const batch = 2000
	for start := 0; start < n; start += batch {
		ids := make([]int64, batch)
		xb := make([]float32, batch*dim)
		for i := 0; i < batch; i++ {
			ids[i] = int64(start + i)
			for j := 0; j < dim; j++ {
				xb[i*dim+j] = rng.Float32()
			}
		}
		if err := db.AddWithIds(ids, xb); err != nil {
			t.Fatalf("AddWithIds at %d: %v", start, err)
		}
	}

	res, err := db.TryBuildIndex(0)
	if err != nil {
		t.Fatalf("TryBuildIndex: %v", err)
	}
	if res.Empty() {
		t.Fatal("TryBuildIndex: want a candidate, got none")
	}
	if res.Ntrain() != 160000 {
		t.Fatalf("Ntrain() = %d, want 160000", res.Ntrain())
	}
	if err := db.ActivateIndex(res); err != nil {
		t.Fatalf("ActivateIndex: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	matches := 0
	for _, e := range entries {
		if e.Name() == "IVF256,Flat.160000.index" {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("found %d files named IVF256,Flat.160000.index, want 1", matches)
	}

	// S6: add 100 far-outlier rows into the flat tail; each must win its
	// own search even though the ANN index has never seen them.
	tailIDs := make([]int64, 100)
	tailVecs := make([]float32, 100*dim)
	for i := 0; i < 100; i++ {
		tailIDs[i] = int64(n + i)
		tailVecs[i*dim] = 1e6
		for j := 1; j < dim; j++ {
			tailVecs[i*dim+j] = float32(i)
		}
	}
	if err := db.AddWithIds(tailIDs, tailVecs); err != nil {
		t.Fatalf("AddWithIds tail: %v", err)
	}

	for i := 0; i < 100; i++ {
		query := tailVecs[i*dim : (i+1)*dim]
		_, ids, err := db.Search(1, query)
		if err != nil {
			t.Fatalf("Search tail row %d: %v", i, err)
		}
		wantRow := int64(n + i)
		if ids[0] != wantRow {
			t.Fatalf("Search tail row %d = %d, want %d", i, ids[0], wantRow)
		}
	}
}
