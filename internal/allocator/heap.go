// Package allocator implements the free-block management engine: a
// segregated set of size-indexed free lists ("buckets") over memory
// obtained directly from the OS via anonymous mmap, with boundary-tagged
// blocks enabling O(1) coalescing. It is the core of this repository; the
// root mmalloc package is a thin set of entry wrappers around a single
// package-level Heap.
//
// The engine is single-threaded and uninstrumented by design: no thread
// safety, no statistics API, no release of memory back to the OS —
// callers wanting those properties must build them on top, not expect
// this package to provide them.
package allocator

import "unsafe"

// Heap is one allocator instance: a region table plus the 166 segregated
// free-list buckets that index every free block across all of its
// regions. It carries no internal locking; concurrent calls into any two
// Heap operations are undefined.
type Heap struct {
	cfg     *Config
	buckets [numBuckets]bucketList
	regions regionTable
	lastErr error
}

// NewHeap constructs a Heap. Initialization itself is cheap and eager —
// unlike the process-wide global exposed by the root package, a Heap
// value has no lazy first-call step of its own.
func NewHeap(opts ...Option) *Heap {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.MinAlloc < minAllocDefault {
		cfg.MinAlloc = minAllocDefault
	}

	return &Heap{cfg: cfg}
}

// LastError returns the error recorded by the most recent failing
// operation, or nil if the last operation (or no operation yet) succeeded.
func (h *Heap) LastError() error { return h.lastErr }

func (h *Heap) setErr(err error) {
	h.lastErr = err

	if h.cfg.EnableDebug {
		h.cfg.Logger.Printf("error: %v", err)
	}
}

func (h *Heap) clearErr() { h.lastErr = nil }

// SetDebug flips debug tracing on or off after construction, letting a
// caller (such as internal/mallocconfig's hot-reload watcher) toggle it
// without rebuilding the Heap.
func (h *Heap) SetDebug(enabled bool) {
	h.cfg.EnableDebug = enabled
}

func (h *Heap) debugf(format string, args ...interface{}) {
	if h.cfg.EnableDebug {
		h.cfg.Logger.Printf(format, args...)
	}
}

// Allocate normalizes the request, searches the free lists for a best
// fit, falls back to the OS on a miss, splits the chosen block if the
// remainder is worth keeping, and hands back the payload address. Returns
// nil and records ErrInvalidSize or ErrOutOfMemory on failure.
func (h *Heap) Allocate(n uintptr) unsafe.Pointer {
	if n == 0 {
		h.setErr(ErrInvalidSize)
		return nil
	}

	size, ok := normalize(uint64(n), h.cfg.MinAlloc)
	if !ok {
		h.setErr(ErrInvalidSize)
		return nil
	}

	addr := h.searchBucket(size)
	if addr != 0 {
		h.removeFromBucket(addr)
	} else {
		addr = h.acquireFromOS(size)
		if addr == 0 {
			return nil // setErr already called by acquireFromOS
		}
	}

	addr, _ = h.splitIfWorthwhile(addr, size)
	setBlockFree(addr, false)
	h.clearErr()

	return unsafe.Pointer(payloadAddr(addr))
}

// ZeroAllocate overflow-checks num*size, allocates the result and
// zero-fills it.
func (h *Heap) ZeroAllocate(num, size uintptr) unsafe.Pointer {
	total, ok := mulChecked(uint64(num), uint64(size))
	if !ok || total == 0 {
		h.setErr(ErrInvalidSize)
		return nil
	}

	ptr := h.Allocate(uintptr(total))
	if ptr == nil {
		return nil
	}

	zeroBytes(uintptr(ptr), total)

	return ptr
}

// Release reinserts the block into its bucket, then attempts forward and
// backward boundary coalescing with managed neighbors. A nil pointer is
// silently ignored apart from clearing the last error.
func (h *Heap) Release(ptr unsafe.Pointer) {
	if ptr == nil {
		h.clearErr()
		return
	}

	addr := headerFromPayload(uintptr(ptr))

	h.insertIntoBucket(addr)
	addr = h.tryCoalesceForward(addr)
	h.tryCoalesceBackward(addr)
	h.clearErr()
}

// Resize: a nil pointer or zero count degrades to release-then-allocate.
// Shrinking re-splits the existing block in place; growing allocates
// fresh, copies the old usable bytes, and releases the old block — even
// if the new allocation failed, a deliberate divergence from POSIX
// realloc (see DESIGN.md).
func (h *Heap) Resize(ptr unsafe.Pointer, n uintptr) unsafe.Pointer {
	if ptr == nil || n == 0 {
		h.Release(ptr)
		return h.Allocate(n)
	}

	addr := headerFromPayload(uintptr(ptr))
	usable := blockSize(addr) - (headerSize + footerSize)

	if uint64(n) <= usable {
		size, ok := normalize(uint64(n), h.cfg.MinAlloc)
		if !ok {
			h.setErr(ErrInvalidSize)
			return nil
		}

		newAddr, tail := h.splitIfWorthwhile(addr, size)
		if tail != 0 {
			h.tryCoalesceForward(tail)
		}

		h.clearErr()

		return unsafe.Pointer(payloadAddr(newAddr))
	}

	newPtr := h.Allocate(n)
	if newPtr != nil {
		copyBytes(uintptr(newPtr), uintptr(ptr), usable)
	}

	h.Release(ptr)

	return newPtr
}

// splitIfWorthwhile carves a free tail off the block at addr if the
// remainder after shrinking it to s would be at least MinAlloc bytes; the
// tail is inserted into its bucket and its address is returned as the
// second result. Otherwise the block is returned unchanged (second result
// 0) and the extra bytes are absorbed as internal fragmentation.
//
// The caller decides whether the tail needs a forward coalesce: addr
// arriving already free (the Allocate path) can never have a free right
// neighbor, since that would itself violate the no-adjacent-frees
// invariant before the split; addr arriving in-use (the Resize shrink
// path) carries no such guarantee, since an in-use block's neighbors are
// unconstrained.
func (h *Heap) splitIfWorthwhile(addr uintptr, s uint64) (uintptr, uintptr) {
	size := blockSize(addr)
	if size-s < h.cfg.MinAlloc {
		return addr, 0
	}

	region := blockRegion(addr)
	tail := addr + uintptr(s)
	tailSize := size - s

	initBlock(tail, tailSize, region, true)
	h.insertIntoBucket(tail)
	setBlockSize(addr, s)

	h.debugf("split block %#x: head=%d tail=%#x(%d)", addr, s, tail, tailSize)

	return addr, tail
}

// acquireFromOS rounds the request up to a multiple of MmapUnit, maps it
// anonymously, folds it into the region table (merging with the previous
// region if it lands exactly at that region's current end), and seeds
// one maximal free block spanning the new segment.
func (h *Heap) acquireFromOS(size uint64) uintptr {
	reqSize, ok := roundUpChecked(size, h.cfg.MmapUnit)
	if !ok {
		h.setErr(ErrOutOfMemory)
		return 0
	}

	mem, err := mmapAnon(int(reqSize))
	if err != nil {
		h.setErr(errWrap(ErrOutOfMemory, err))
		return 0
	}

	base := addrOf(mem)
	end := base + uintptr(reqSize)

	regionID, ok := h.regions.acquire(base, end, mem)
	if !ok {
		h.setErr(ErrOutOfMemory)
		return 0
	}

	initBlock(base, reqSize, regionID, true)
	h.debugf("acquired region %d [%#x,%#x) size=%d", regionID, base, end, reqSize)

	return base
}

// coalesce merges lo and hi — which must be adjacent, both currently
// linked into their buckets — into a single free block starting at lo.
func (h *Heap) coalesce(lo, hi uintptr) uintptr {
	h.removeFromBucket(lo)
	h.removeFromBucket(hi)

	newSize := blockSize(lo) + blockSize(hi)
	region := blockRegion(lo)

	initBlock(lo, newSize, region, true)
	h.insertIntoBucket(lo)

	h.debugf("coalesced %#x+%#x -> %#x(%d)", lo, hi, lo, newSize)

	return lo
}

// tryCoalesceForward merges addr with its right neighbor when that
// neighbor exists within the same region and is free.
func (h *Heap) tryCoalesceForward(addr uintptr) uintptr {
	region := blockRegion(addr)
	end := h.regions.endOf(region)
	right := addr + uintptr(blockSize(addr))

	if right < end && blockFree(right) {
		return h.coalesce(addr, right)
	}

	return addr
}

// tryCoalesceBackward merges addr with its left neighbor when one exists
// within the same region and is free. The left neighbor's size is read
// from the boundary tag (footer) immediately preceding addr.
func (h *Heap) tryCoalesceBackward(addr uintptr) uintptr {
	region := blockRegion(addr)
	base := h.regions.baseOf(region)

	if addr <= base {
		return addr
	}

	prevSize := loadU64(addr - footerSize)
	left := addr - uintptr(prevSize)

	if blockFree(left) {
		return h.coalesce(left, addr)
	}

	return addr
}
