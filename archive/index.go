package archive

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/meigma/nif/archive/internal/fb"
)

// indexVersion is the index format version written by Create.
const indexVersion = 1

// index provides lookups over a FlatBuffers-encoded entry list.
type index struct {
	data []byte
	root *fb.Index
}

// loadIndex parses a FlatBuffers-encoded index.
//
// The provided data is retained by the index; callers must not modify it
// after calling loadIndex.
func loadIndex(data []byte) (idx *index, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx = nil
			err = fmt.Errorf("%w: %v", ErrCorruptIndex, r)
		}
	}()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty index", ErrCorruptIndex)
	}

	root := fb.GetRootAsIndex(data, 0)
	if root.Version() != indexVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCorruptIndex, root.Version())
	}

	idx = &index{data: data, root: root}
	// Touch every entry once so corrupt offsets fail here instead of in a lookup.
	var prev []byte
	var e fb.Entry
	for i := range root.EntriesLength() {
		if !root.Entries(&e, i) {
			return nil, errors.New("archive: missing entries vector")
		}
		name := e.Name()
		if i > 0 && bytes.Compare(prev, name) >= 0 {
			return nil, fmt.Errorf("%w: entries not sorted at %d", ErrCorruptIndex, i)
		}
		prev = name
	}
	return idx, nil
}

// Len returns the number of entries.
func (idx *index) Len() int {
	return idx.root.EntriesLength()
}

// DataSize returns the size of the payload region.
func (idx *index) DataSize() uint64 {
	return idx.root.DataSize()
}

// lookup returns the entry with the normalized name.
func (idx *index) lookup(name string) (Entry, bool) {
	key := []byte(name)
	n := idx.root.EntriesLength()
	var e fb.Entry
	i := sort.Search(n, func(i int) bool {
		if !idx.root.Entries(&e, i) {
			return false
		}
		return bytes.Compare(e.Name(), key) >= 0
	})
	if i >= n || !idx.root.Entries(&e, i) || !bytes.Equal(e.Name(), key) {
		return Entry{}, false
	}
	return entryFromFlatBuffers(&e), true
}

// entries returns an iterator over all entries in name order.
func (idx *index) entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		var e fb.Entry
		for i := range idx.root.EntriesLength() {
			if !idx.root.Entries(&e, i) {
				return
			}
			if !yield(entryFromFlatBuffers(&e)) {
				return
			}
		}
	}
}
