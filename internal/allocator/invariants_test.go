package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// checkInvariants asserts the allocator's structural invariants hold for
// h's entire state: bucket lists are non-decreasing in size, every managed
// block's header/footer agree and are well-formed, no two adjacent blocks
// within a region are both free, and each region's blocks exactly tile it.
func checkInvariants(t *testing.T, h *Heap) {
	t.Helper()

	for i := 0; i < numBuckets; i++ {
		prevSize := uint64(0)
		for cur := h.buckets[i].head; cur != 0; cur = getNext(cur) {
			size := blockSize(cur)
			require.GreaterOrEqualf(t, size, prevSize, "bucket %d not sorted ascending", i)
			require.True(t, blockFree(cur), "bucket %d contains a non-free block", i)
			prevSize = size
		}
	}

	for regionID, r := range h.regions.regions {
		addr := r.base
		prevFree := false
		var total uint64

		for addr < r.end {
			size := blockSize(addr)
			footer := loadU64(footerAddr(addr, size))

			require.Equal(t, size, footer, "header/footer size mismatch at %#x", addr)
			require.Zero(t, size%memUnit, "block size %d not a multiple of %d", size, memUnit)
			require.GreaterOrEqual(t, size, h.cfg.MinAlloc, "block size %d below MinAlloc", size)
			require.Equal(t, uint16(regionID), blockRegion(addr), "block %#x region id mismatch", addr)

			free := blockFree(addr)
			require.False(t, prevFree && free, "adjacent free blocks at %#x within region %d", addr, regionID)

			total += size
			prevFree = free
			addr += uintptr(size)
		}

		require.Equal(t, r.end-r.base, uintptr(total), "region %d blocks do not tile [base,end)", regionID)
	}
}
