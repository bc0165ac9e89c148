package bptree

import "errors"

// Sentinel errors for the tree's error taxonomy, checked with errors.Is so
// callers can branch on what went wrong rather than parse error strings.
var (
	// ErrPageAllocFail is returned when the buffer manager cannot hand out a
	// new page (NewPage failed) mid-operation.
	ErrPageAllocFail = errors.New("bptree: failed to allocate a new page")

	// ErrNodeFull is returned when a single entry cannot be made to fit on a
	// node even after a split attempt, e.g. a key close to the page size.
	ErrNodeFull = errors.New("bptree: entry does not fit on a node")

	// ErrKeyNotFound is returned by Delete and Search when no entry exists
	// for the given key.
	ErrKeyNotFound = errors.New("bptree: key not found")

	// ErrKeyTooLarge is returned by Insert when the key exceeds config.MaxKeySize.
	ErrKeyTooLarge = errors.New("bptree: key exceeds maximum key size")

	// ErrStructuralInvariantViolated is returned by Verify when the tree's
	// on-disk structure is found to be inconsistent. A checksum mismatch on
	// Pin is reported separately, as pager.ErrPageCorrupted.
	ErrStructuralInvariantViolated = errors.New("bptree: structural invariant violated")

	// ErrInvalidRange is returned by OpenScan when lowKey is greater than highKey.
	ErrInvalidRange = errors.New("bptree: low key is greater than high key")
)
