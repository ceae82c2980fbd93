package allocator

import (
	"math"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func writePattern(ptr unsafe.Pointer, n int) {
	s := unsafe.Slice((*byte)(ptr), n)
	for i := range s {
		s[i] = byte(i % 251)
	}
}

func checkPattern(t *testing.T, ptr unsafe.Pointer, n int) {
	t.Helper()

	s := unsafe.Slice((*byte)(ptr), n)
	for i := range s {
		require.Equalf(t, byte(i%251), s[i], "pattern mismatch at byte %d", i)
	}
}

func TestAllocateBoundaries(t *testing.T) {
	h := NewHeap()

	require.Nil(t, h.Allocate(0))
	require.ErrorIs(t, h.LastError(), ErrInvalidSize)

	require.Nil(t, h.Allocate(math.MaxUint64))
	require.ErrorIs(t, h.LastError(), ErrInvalidSize)
}

func TestReleaseNilIsNoop(t *testing.T) {
	h := NewHeap()
	h.Release(nil)
	checkInvariants(t, h)
}

func TestZeroAllocate(t *testing.T) {
	h := NewHeap()

	ptr := h.ZeroAllocate(10, 10)
	require.NotNil(t, ptr)
	require.NoError(t, h.LastError())
	require.Zero(t, uintptr(ptr)%memUnit, "payload not 8-aligned")

	s := unsafe.Slice((*byte)(ptr), 100)
	for i, b := range s {
		require.Zerof(t, b, "byte %d not zeroed", i)
	}

	checkInvariants(t, h)
}

func TestZeroAllocateOverflow(t *testing.T) {
	h := NewHeap()
	ptr := h.ZeroAllocate(math.MaxUint64, 2)
	require.Nil(t, ptr)
	require.ErrorIs(t, h.LastError(), ErrInvalidSize)
}

func TestResizeGrowPreservesData(t *testing.T) {
	h := NewHeap()

	p := h.Allocate(100)
	require.NotNil(t, p)
	writePattern(p, 100)

	grown := h.Resize(p, 10000)
	require.NotNil(t, grown)
	checkPattern(t, grown, 100)

	checkInvariants(t, h)
}

func TestResizeToSameReturnsSamePointer(t *testing.T) {
	h := NewHeap()

	p := h.Allocate(200)
	require.NotNil(t, p)

	same := h.Resize(p, 200)
	require.Equal(t, p, same)

	checkInvariants(t, h)
}

func TestResizeNilIsAllocate(t *testing.T) {
	h := NewHeap()

	p := h.Resize(nil, 64)
	require.NotNil(t, p)

	checkInvariants(t, h)
}

func TestResizeToZeroIsRelease(t *testing.T) {
	h := NewHeap()

	p := h.Allocate(64)
	require.NotNil(t, p)

	r := h.Resize(p, 0)
	require.Nil(t, r)
	require.ErrorIs(t, h.LastError(), ErrInvalidSize)

	checkInvariants(t, h)
}

func TestFreeThenAllocateIdempotence(t *testing.T) {
	h := NewHeap()

	p := h.Allocate(128)
	require.NotNil(t, p)
	h.Release(p)

	q := h.Allocate(128)
	require.NotNil(t, q)
	require.Zero(t, uintptr(q)%memUnit)

	checkInvariants(t, h)
}

// Two same-size blocks, released in order, must boundary-coalesce into
// one block in the bucket for their combined size. The mmap unit is
// pinned to exactly the two blocks' combined size so the region contains
// nothing else to interfere with the coalesce.
func TestScenarioCoalesceOnRelease(t *testing.T) {
	h := NewHeap(WithMmapUnit(80))

	a := h.Allocate(24)
	require.NotNil(t, a)
	b := h.Allocate(24)
	require.NotNil(t, b)

	aAddr := headerFromPayload(uintptr(a))
	require.Equal(t, uint64(40), blockSize(aAddr))

	h.Release(a)
	h.Release(b)

	require.Equal(t, uintptr(0), h.buckets[5].head, "bucket 5 should be empty after coalescing")

	coalesced := h.buckets[10].head
	require.NotZero(t, coalesced, "bucket 10 should hold the coalesced block")
	require.Equal(t, uint64(80), blockSize(coalesced))

	checkInvariants(t, h)
}

// Freeing the middle of three same-size blocks then requesting a
// slightly smaller size is a best-fit hit against that freed block, with
// its remainder split off.
func TestScenarioBestFitReuseWithSplit(t *testing.T) {
	h := NewHeap()

	a := h.Allocate(1000)
	b := h.Allocate(1000)
	c := h.Allocate(1000)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	h.Release(b)

	d := h.Allocate(900)
	require.NotNil(t, d)
	require.Equal(t, b, d, "best fit should reuse the block freed by b")

	checkInvariants(t, h)
}

func TestScenarioPathologicalLoop(t *testing.T) {
	h := NewHeap()
	rng := rand.New(rand.NewSource(1))

	const n = 256

	ptrs := make([]unsafe.Pointer, 0, n)

	for i := 0; i < n; i++ {
		p := h.Allocate(uintptr(1 + rng.Intn(4095)))
		require.NotNil(t, p)
		ptrs = append(ptrs, p)
		checkInvariants(t, h)
	}

	for i := range ptrs {
		np := h.Resize(ptrs[i], uintptr(1+rng.Intn(4095)))
		require.NotNil(t, np)
		ptrs[i] = np
		checkInvariants(t, h)
	}

	for _, p := range ptrs {
		h.Release(p)
		checkInvariants(t, h)
	}
}

func TestRegionMerge(t *testing.T) {
	h := NewHeap(WithMmapUnit(4096))

	// Force several OS acquisitions; on a typical system consecutive
	// anonymous mmaps tend to land adjacently, exercising the
	// merge-on-adjacency path in regionTable.acquire. This is
	// best-effort: we only assert the table never exceeds what it should
	// given how many acquisitions actually occurred, not that a merge
	// happened.
	for i := 0; i < 8; i++ {
		p := h.Allocate(8000)
		require.NotNil(t, p)
	}

	require.LessOrEqual(t, h.regions.count(), 8)
	checkInvariants(t, h)
}
