package index

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Index is a HeaderNumber -> offset sidecar index for one stream.
type Index struct {
	db *pebble.DB
}

// Open opens (creating if absent) the pebble index rooted at dir.
func Open(dir string) (*Index, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

func encodeKey(headerNumber int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(headerNumber))
	return b[:]
}

func encodeValue(offset int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(offset))
	return b[:]
}

// Put records that headerNumber's document begins at offset.
func (idx *Index) Put(headerNumber, offset int64) error {
	return idx.db.Set(encodeKey(headerNumber), encodeValue(offset), pebble.Sync)
}

// Get returns the offset recorded for headerNumber, if any.
func (idx *Index) Get(headerNumber int64) (int64, bool, error) {
	v, closer, err := idx.db.Get(encodeKey(headerNumber))
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	offset := int64(binary.BigEndian.Uint64(v))
	return offset, true, closer.Close()
}

// Nearest returns the offset of the largest recorded HeaderNumber <= headerNumber,
// for resuming a scan without replaying the whole stream from zero.
func (idx *Index) Nearest(headerNumber int64) (foundHeaderNumber, offset int64, ok bool, err error) {
	it, err := idx.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, 0, false, err
	}
	defer it.Close()

	if !it.SeekLT(encodeKey(headerNumber + 1)) {
		return 0, 0, false, nil
	}
	foundHeaderNumber = int64(binary.BigEndian.Uint64(it.Key()))
	offset = int64(binary.BigEndian.Uint64(it.Value()))
	return foundHeaderNumber, offset, true, nil
}

// Close releases the underlying pebble handle.
func (idx *Index) Close() error { return idx.db.Close() }
