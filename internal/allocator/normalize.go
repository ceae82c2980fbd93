package allocator

import "math"

// roundUpChecked rounds n up to the next multiple of align, reporting
// false if doing so would overflow a uint64.
func roundUpChecked(n, align uint64) (uint64, bool) {
	if n > math.MaxUint64-(align-1) {
		return 0, false
	}

	return (n + align - 1) / align * align, true
}

// addChecked adds a and b, reporting false on overflow.
func addChecked(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}

	return a + b, true
}

// mulChecked multiplies a and b, reporting false on overflow. Used by
// ZeroAllocate's m*n overflow check.
func mulChecked(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	if a > math.MaxUint64/b {
		return 0, false
	}

	return a * b, true
}

// normalize rounds n up to a multiple of memUnit, adds header+footer
// overhead, and clamps the result to minAlloc. Fails with false if n is
// zero or the arithmetic overflows.
func normalize(n, minAlloc uint64) (uint64, bool) {
	if n == 0 {
		return 0, false
	}

	rounded, ok := roundUpChecked(n, memUnit)
	if !ok {
		return 0, false
	}

	total, ok := addChecked(rounded, headerSize+footerSize)
	if !ok {
		return 0, false
	}

	if total < minAlloc {
		total = minAlloc
	}

	return total, true
}
