package journal

import (
	"github.com/ValentinKolb/wiredoc/journal/cluster"
	"github.com/ValentinKolb/wiredoc/journal/index"
)

// Stream pairs a replicated cluster.Journal with its index.Index sidecar,
// keeping the index's HeaderNumber bookkeeping alongside every Append so a
// reader can later resume a scan without replaying from offset 0.
type Stream struct {
	Journal *cluster.Journal
	Index   *index.Index

	nextHeaderNumber int64
}

// NewStream wraps an already-open Journal and Index. nextHeaderNumber is the
// stream's next unused HeaderNumber, typically recovered by scanning the
// index once at startup (see Resume).
func NewStream(j *cluster.Journal, idx *index.Index, nextHeaderNumber int64) *Stream {
	return &Stream{Journal: j, Index: idx, nextHeaderNumber: nextHeaderNumber}
}

// Append proposes payload, then records its offset against the next
// HeaderNumber in the sidecar index.
func (s *Stream) Append(payload []byte) (headerNumber int64, offset int64, err error) {
	offset, err = s.Journal.Append(payload)
	if err != nil {
		return 0, 0, err
	}
	headerNumber = s.nextHeaderNumber
	if err := s.Index.Put(headerNumber, offset); err != nil {
		return headerNumber, offset, err
	}
	s.nextHeaderNumber++
	return headerNumber, offset, nil
}

// Resume returns the byte offset to start scanning from in order to pick
// up right after afterHeaderNumber, using the index to skip any documents
// already seen instead of rescanning the whole stream.
func (s *Stream) Resume(afterHeaderNumber int64) (offset int64, err error) {
	if afterHeaderNumber < 0 {
		return 0, nil
	}
	found, off, ok, err := s.Index.Nearest(afterHeaderNumber)
	if err != nil {
		return 0, err
	}
	if !ok || found != afterHeaderNumber {
		return 0, nil
	}
	_, next, present, err := s.Journal.ReadAt(off, true)
	if err != nil || !present {
		return 0, err
	}
	return next, nil
}
