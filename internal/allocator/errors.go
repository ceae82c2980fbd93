package allocator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the allocator's process-wide error indicator.
// Every operation that can fail reports one of exactly these two; there
// is no exception-like propagation, and the allocator never retries on
// either.
var (
	// ErrInvalidSize is reported for a zero-byte request or an arithmetic
	// overflow while normalizing or multiplying a requested size.
	ErrInvalidSize = errors.New("allocator: invalid size")

	// ErrOutOfMemory is reported when the OS refuses a mapping request or
	// the region table has reached its maxRegions capacity.
	ErrOutOfMemory = errors.New("allocator: out of memory")
)

// errWrap wraps cause under sentinel so errors.Is(result, sentinel) holds
// while still surfacing the underlying OS error text.
func errWrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %v", sentinel, cause)
}
