package allocator

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// region records one contiguous span of bytes obtained from the OS. chunks
// keeps the backing mmap'd slices reachable for as long as the process
// runs — this allocator never calls munmap, so the slices exist purely to
// document provenance rather than to anchor anything against the garbage
// collector (mmap'd pages are not Go-heap memory and are never collected).
type region struct {
	base   uintptr
	end    uintptr
	chunks [][]byte
}

// regionTable is the append-only set of regions this heap has obtained
// from the OS, indexed by region id (the 15-bit field packed into every
// block header).
type regionTable struct {
	regions []region
}

func (rt *regionTable) baseOf(id uint16) uintptr { return rt.regions[id].base }
func (rt *regionTable) endOf(id uint16) uintptr  { return rt.regions[id].end }
func (rt *regionTable) count() int               { return len(rt.regions) }

// acquire records a newly mapped [base, end) span. If it begins exactly
// where the last region ends, the last region is extended in place rather
// than creating a new entry — regions are append-only and merge on
// adjacency. Returns the region id and true, or false if the table is
// already at its maxRegions capacity — in which case a diagnostic is
// printed to stderr.
func (rt *regionTable) acquire(base, end uintptr, mem []byte) (uint16, bool) {
	if n := len(rt.regions); n > 0 {
		last := &rt.regions[n-1]
		if last.end == base {
			last.end = end
			last.chunks = append(last.chunks, mem)

			return uint16(n - 1), true
		}
	}

	if len(rt.regions) >= maxRegions {
		fmt.Fprintf(os.Stderr, "mmalloc: region table overflow: reached maximum of %d memory regions\n", maxRegions)

		return 0, false
	}

	rt.regions = append(rt.regions, region{base: base, end: end, chunks: [][]byte{mem}})

	return uint16(len(rt.regions) - 1), true
}

// mmapAnon requests an anonymous, private, readable-writable mapping of
// size bytes from the OS.
func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// addrOf returns the address of a freshly mapped slice's first byte.
func addrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(&mem[0]))
}
