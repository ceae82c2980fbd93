package allocator

import "unsafe"

// Blocks live inside OS-mapped memory obtained from acquire (region.go);
// addresses are plain uintptr values into that mapping, not Go-managed
// pointers. Reading and writing header/footer/link words is done through
// unsafe.Pointer casts over that raw memory, the same pattern any arena
// allocator built on a byte slice needs.

func loadU64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr)) //nolint:govet
}

func storeU64(addr uintptr, v uint64) {
	*(*uint64)(unsafe.Pointer(addr)) = v //nolint:govet
}

func footerAddr(addr uintptr, size uint64) uintptr {
	return addr + uintptr(size) - footerSize
}

func nextLinkAddr(addr uintptr) uintptr { return addr + headerSize }
func prevLinkAddr(addr uintptr) uintptr { return addr + headerSize + 8 }

func blockHeaderWord(addr uintptr) uint64 { return loadU64(addr) }

func blockSize(addr uintptr) uint64   { return unpackSize(blockHeaderWord(addr)) }
func blockRegion(addr uintptr) uint16 { return unpackRegion(blockHeaderWord(addr)) }
func blockFree(addr uintptr) bool     { return unpackFree(blockHeaderWord(addr)) }

// payloadAddr returns the address handed back to the caller for a block
// whose header starts at addr.
func payloadAddr(addr uintptr) uintptr { return addr + metadataOffset }

// headerFromPayload recovers a block's header address from a payload
// pointer previously returned by payloadAddr.
func headerFromPayload(p uintptr) uintptr { return p - metadataOffset }

// initBlock stamps a brand-new block spanning exactly size bytes, in the
// given region, with the given free flag. Both header and footer are
// written so the size stays in sync at the block's two boundary tags.
func initBlock(addr uintptr, size uint64, region uint16, free bool) {
	storeU64(addr, packHeader(size, region, free))
	storeU64(footerAddr(addr, size), size)
}

// setBlockSize rewrites a block's size in place, preserving its region id
// and free flag, and keeps header/footer consistent.
func setBlockSize(addr uintptr, size uint64) {
	h := blockHeaderWord(addr)
	storeU64(addr, packHeader(size, unpackRegion(h), unpackFree(h)))
	storeU64(footerAddr(addr, size), size)
}

// setBlockFree flips the free flag in place without touching size/region.
func setBlockFree(addr uintptr, free bool) {
	h := blockHeaderWord(addr)
	storeU64(addr, packHeader(unpackSize(h), unpackRegion(h), free))
}

func getNext(addr uintptr) uintptr { return uintptr(loadU64(nextLinkAddr(addr))) }
func getPrev(addr uintptr) uintptr { return uintptr(loadU64(prevLinkAddr(addr))) }
func setNext(addr uintptr, v uintptr) { storeU64(nextLinkAddr(addr), uint64(v)) }
func setPrev(addr uintptr, v uintptr) { storeU64(prevLinkAddr(addr), uint64(v)) }

// zeroBytes zeroes n bytes starting at addr. Used by ZeroAllocate.
func zeroBytes(addr uintptr, n uint64) {
	if n == 0 {
		return
	}

	s := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(n))
	for i := range s {
		s[i] = 0
	}
}

// copyBytes copies n bytes from src to dst, both raw payload addresses.
func copyBytes(dst, src uintptr, n uint64) {
	if n == 0 {
		return
	}

	dstSlice := unsafe.Slice((*byte)(unsafe.Pointer(dst)), int(n))
	srcSlice := unsafe.Slice((*byte)(unsafe.Pointer(src)), int(n))
	copy(dstSlice, srcSlice)
}
