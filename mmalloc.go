// Package mmalloc is a drop-in-style memory allocator: four operations
// (Malloc, Calloc, Realloc, Free) backed directly by anonymous OS memory
// mappings, opaque to whatever the caller stores in the returned bytes.
//
// The free-block management engine — segregated size buckets, boundary-tag
// coalescing, region bookkeeping — lives in internal/allocator; this file
// is the thin entry-wrapper surface plus the single package-level Heap
// instance: a process-wide allocator with lazy, non-reentrant,
// non-thread-safe initialization on first use.
package mmalloc

import (
	"unsafe"

	"github.com/orizon-lang/mmalloc/internal/allocator"
	"github.com/orizon-lang/mmalloc/internal/mallocconfig"
)

// defaultHeap is lazily constructed by the first call into this package.
// There is no lock guarding heap: concurrent entry into any two of these
// functions — including the first two calls that race to initialize
// defaultHeap — is undefined.
var defaultHeap *allocator.Heap

func heap() *allocator.Heap {
	if defaultHeap == nil {
		defaultHeap = allocator.NewHeap()
	}

	return defaultHeap
}

// Malloc allocates n bytes and returns an 8-byte-aligned address, or nil
// with LastError set to ErrInvalidSize (n == 0 or overflow) or
// ErrOutOfMemory.
func Malloc(n uintptr) unsafe.Pointer {
	return heap().Allocate(n)
}

// Calloc allocates num*size bytes, zero-filled, or nil with LastError set
// to ErrInvalidSize if the multiplication overflows.
func Calloc(num, size uintptr) unsafe.Pointer {
	return heap().ZeroAllocate(num, size)
}

// Realloc resizes the allocation at ptr to n bytes, preserving the
// min(old usable size, n) leading bytes, and returns the (possibly new)
// 8-byte-aligned address. ptr == nil behaves like Malloc(n); n == 0
// behaves like Free(ptr) and returns nil. Unlike POSIX realloc, if growing
// fails the old block is still freed: Realloc returns nil and ptr is no
// longer valid.
func Realloc(ptr unsafe.Pointer, n uintptr) unsafe.Pointer {
	return heap().Resize(ptr, n)
}

// Free returns the block at ptr to the allocator. A nil ptr is a no-op.
func Free(ptr unsafe.Pointer) {
	heap().Release(ptr)
}

// LastError returns the error set by the most recently failing operation
// on the default heap, or nil.
func LastError() error {
	return heap().LastError()
}

// WatchDebugConfig hot-reloads the default heap's debug-tracing flag from
// the JSON config file at path, applying every schema-compatible rewrite
// as it happens. The returned Watcher's Close stops the watch; callers
// that never want hot-reload can ignore this entirely and use
// allocator.WithDebug at Heap-construction time instead.
func WatchDebugConfig(path string) (*mallocconfig.Watcher, error) {
	h := heap()

	if cfg, err := mallocconfig.Load(path); err == nil {
		h.SetDebug(cfg.Debug)
	}

	return mallocconfig.NewWatcher(path, func(cfg mallocconfig.DebugConfig) {
		h.SetDebug(cfg.Debug)
	})
}
