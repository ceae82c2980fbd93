package mmalloc

import "github.com/orizon-lang/mmalloc/internal/allocator"

// ErrInvalidSize and ErrOutOfMemory are the two error kinds this module
// ever reports: every failing operation sets LastError to one of these
// (wrapped with more detail where the cause is known). Use errors.Is to
// test for them.
var (
	ErrInvalidSize = allocator.ErrInvalidSize
	ErrOutOfMemory = allocator.ErrOutOfMemory
)
