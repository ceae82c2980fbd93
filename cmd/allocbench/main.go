// Command allocbench runs the calloc/realloc/free cycle the reference
// implementation's own benchmark harness ran, against this module's
// allocator, and reports wall-clock time the same way that harness did.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"github.com/orizon-lang/mmalloc"
)

func asPointer(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

func main() {
	var (
		numPointers = flag.Int("pointers", 1<<10, "live pointers held per cycle")
		numCycles   = flag.Int("cycles", 1<<10, "calloc/realloc/free cycles to run")
		maxBlock    = flag.Int("max-block", 1<<12, "upper bound (inclusive) on block size in bytes")
		seed        = flag.Int64("seed", 1, "PRNG seed for block sizes")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs a calloc/realloc/free cycle benchmark against mmalloc.\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *numPointers <= 0 || *numCycles <= 0 || *maxBlock <= 0 {
		fmt.Fprintln(os.Stderr, "pointers, cycles and max-block must all be positive")
		os.Exit(1)
	}

	elapsed := benchmark(*numPointers, *numCycles, *maxBlock, *seed)
	fmt.Printf("Completed %d cycles x %d pointers in %s\n", *numCycles, *numPointers, elapsed)
}

func benchmark(numPointers, numCycles, maxBlock int, seed int64) time.Duration {
	rng := rand.New(rand.NewSource(seed))
	pointers := make([]uintptr, numPointers)

	start := time.Now()

	for i := 0; i < numCycles; i++ {
		for j := 0; j < numPointers; j++ {
			p := mmalloc.Calloc(1, uintptr(rng.Intn(maxBlock)+1))
			pointers[j] = uintptr(p)
		}

		for j := 0; j < numPointers; j++ {
			p := mmalloc.Realloc(asPointer(pointers[j]), uintptr(rng.Intn(maxBlock)+1))
			pointers[j] = uintptr(p)
		}

		for j := 0; j < numPointers; j++ {
			mmalloc.Free(asPointer(pointers[j]))
		}
	}

	return time.Since(start)
}
