// Package uidindex provides an in-memory ordered index from external vector
// id to row number. It keeps no on-disk file of its own: the base store it
// indexes is itself the durable copy, and the index is rebuilt from it at
// open time.
package uidindex

import (
	"sync"

	"github.com/google/btree"
)

// item is a single (id -> row) entry ordered by id.
type item struct {
	id  int64
	row int
}

func (i item) Less(other btree.Item) bool {
	return i.id < other.(item).id
}

// Index maps external ids to row numbers. Duplicate ids are accepted; the
// latest Put for a given id wins.
type Index struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// New returns an empty index.
func New() *Index {
	return &Index{tree: btree.New(2)}
}

// Put records that id now lives at row. If id already exists, its row is
// overwritten (the latest occurrence wins).
func (x *Index) Put(id int64, row int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.tree.ReplaceOrInsert(item{id: id, row: row})
}

// Lookup returns the row for id, and whether id is present.
func (x *Index) Lookup(id int64) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	found := x.tree.Get(item{id: id})
	if found == nil {
		return 0, false
	}
	return found.(item).row, true
}

// Len returns the number of distinct ids indexed.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.tree.Len()
}

// AscendRange calls f for every id in [lo, hi) in ascending order, stopping
// early if f returns false.
func (x *Index) AscendRange(lo, hi int64, f func(id int64, row int) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	x.tree.AscendRange(item{id: lo, row: 0}, item{id: hi, row: 0}, func(bi btree.Item) bool {
		it := bi.(item)
		return f(it.id, it.row)
	})
}
