// Package basestore implements the append-only on-disk vector record file
// and its in-memory mirror described by the core's data model: a
// contiguous base.fvecs of (int64 id, float32[dim] vec) records, fully
// mirrored in memory as base[]/uids[]/uid2num.
package basestore

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/podcopic-labs/vectodb/internal/uidindex"
)

const baseFileName = "base.fvecs"

// LengthMismatchError is returned by Open when base.fvecs's size is not a
// multiple of the per-record length.
type LengthMismatchError struct {
	Path       string
	Size       int64
	RecordSize int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("basestore: %s size %d is not a multiple of record size %d", e.Path, e.Size, e.RecordSize)
}

// Store is the append-only base file plus its in-memory mirror.
type Store struct {
	dim        int
	recordSize int

	file *os.File
	path string

	// appendMu serializes Append with itself and with Open's initial replay.
	appendMu sync.Mutex

	// base/uids/uid2num form the in-memory mirror. Callers that need N
	// non-decreasing and base not reallocated under a reader hold their own
	// lock around SnapshotPtr/Size/Lookup and Append; Store itself only
	// guarantees append-vs-append and append-vs-open mutual exclusion.
	base []float32
	uids []int64
	uid2 *uidindex.Index
}

// Open creates dir if absent, creates base.fvecs if absent, and replays any
// existing records into the in-memory mirror.
func Open(dir string, dim int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("basestore: dim must be positive, got %d", dim)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("basestore: mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, baseFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("basestore: open %s: %w", path, err)
	}

	recordSize := 8 + 4*dim
	s := &Store{
		dim:        dim,
		recordSize: recordSize,
		file:       f,
		path:       path,
		uid2:       uidindex.New(),
	}

	if err := s.replay(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// replay validates the file length and loads every existing record into
// the in-memory mirror. Implementers may round a truncated tail down to
// the last full record at open; this one rejects it outright so a partial
// append is never silently accepted.
func (s *Store) replay() error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("basestore: stat %s: %w", s.path, err)
	}
	size := info.Size()
	if size%int64(s.recordSize) != 0 {
		return &LengthMismatchError{Path: s.path, Size: size, RecordSize: s.recordSize}
	}
	n := int(size / int64(s.recordSize))
	if n == 0 {
		return nil
	}

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("basestore: seek %s: %w", s.path, err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(s.file, buf); err != nil {
		return fmt.Errorf("basestore: read %s: %w", s.path, err)
	}
	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("basestore: seek %s: %w", s.path, err)
	}

	s.base = make([]float32, 0, n*s.dim)
	s.uids = make([]int64, 0, n)
	for row := 0; row < n; row++ {
		rec := buf[row*s.recordSize : (row+1)*s.recordSize]
		id := int64(binary.LittleEndian.Uint64(rec[0:8]))
		s.uids = append(s.uids, id)
		s.uid2.Put(id, row)
		for i := 0; i < s.dim; i++ {
			s.base = append(s.base, math.Float32frombits(binary.LittleEndian.Uint32(rec[8+i*4:])))
		}
	}
	return nil
}

// Append serializes nb records to a single contiguous buffer, writes it in
// one I/O, fsyncs, then extends the in-memory mirror. nb==0 is a no-op.
// ids extend uids and xb extends base, in that correspondence.
func (s *Store) Append(ids []int64, xb []float32) error {
	nb := len(ids)
	if nb == 0 {
		return nil
	}
	if len(xb) != nb*s.dim {
		return fmt.Errorf("basestore: append: xb has %d floats, want %d for nb=%d dim=%d", len(xb), nb*s.dim, nb, s.dim)
	}

	buf := make([]byte, nb*s.recordSize)
	for i := 0; i < nb; i++ {
		rec := buf[i*s.recordSize : (i+1)*s.recordSize]
		binary.LittleEndian.PutUint64(rec[0:8], uint64(ids[i]))
		vec := xb[i*s.dim : (i+1)*s.dim]
		for j, v := range vec {
			binary.LittleEndian.PutUint32(rec[8+j*4:], math.Float32bits(v))
		}
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	if _, err := s.file.Write(buf); err != nil {
		return fmt.Errorf("basestore: write %s: %w", s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("basestore: sync %s: %w", s.path, err)
	}

	startRow := len(s.uids)
	s.base = append(s.base, xb...)
	s.uids = append(s.uids, ids...)
	for i, id := range ids {
		s.uid2.Put(id, startRow+i)
	}
	return nil
}

// Size returns N, the number of rows currently in the store.
func (s *Store) Size() int { return len(s.uids) }

// Dim returns the fixed vector dimension this store was opened with.
func (s *Store) Dim() int { return s.dim }

// SnapshotPtr returns a read-only view of base[offset*dim : N*dim) plus N.
// The returned slice aliases live memory; callers must hold whatever lock
// their layer uses to guarantee base is not reallocated concurrently
// (Store itself makes no such promise beyond append/open serialization).
func (s *Store) SnapshotPtr(offset int) ([]float32, int) {
	n := len(s.uids)
	if offset >= n {
		return nil, n
	}
	return s.base[offset*s.dim : n*s.dim], n
}

// Lookup returns the row index of id, and whether id is present.
func (s *Store) Lookup(id int64) (int, bool) { return s.uid2.Lookup(id) }

// Uids returns the full ordered slice of ids, parallel to the rows in base.
// The caller must not mutate the returned slice.
func (s *Store) Uids() []int64 { return s.uids }

// Close closes the underlying file.
func (s *Store) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("basestore: close %s: %w", s.path, err)
	}
	return nil
}
