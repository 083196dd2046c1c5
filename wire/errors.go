package wire

import "errors"

// Error kinds from spec.md §7. Each is a distinct sentinel checked with
// errors.Is; framing/codec errors wrap these rather than minting new types
// per call site.
var (
	// ErrIllegalArgument is raised for length/range violations.
	ErrIllegalArgument = errors.New("wire: illegal argument")
	// ErrNotEnoughSpace is raised when the store cannot fit a requested
	// reservation.
	ErrNotEnoughSpace = errors.New("wire: not enough space")
	// ErrTimeout is raised when a Pauser's wait budget is exhausted.
	ErrTimeout = errors.New("wire: timeout")
	// ErrEndOfStream is raised when EndOfData is encountered while
	// scanning forward for a free slot.
	ErrEndOfStream = errors.New("wire: end of stream")
	// ErrStreamCorrupted is raised on header mismatches, data written
	// past a document's declared end, or a malformed first header.
	ErrStreamCorrupted = errors.New("wire: stream corrupted")
	// ErrLengthMismatch is raised when a committed body exceeds its
	// reservation.
	ErrLengthMismatch = errors.New("wire: length mismatch")
	// ErrReentrant is raised when a Wire attempts to reserve a header
	// while already inside one.
	ErrReentrant = errors.New("wire: reentrant header reservation")
	// ErrInUse is raised when a Wire already owned by one goroutine/
	// thread is used from another without an intervening EndUse.
	ErrInUse = errors.New("wire: in use by another owner")
	// ErrSchemaMismatch is raised when a requested read is incompatible
	// with the value kind actually present.
	ErrSchemaMismatch = errors.New("wire: schema mismatch")
)
