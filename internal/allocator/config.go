package allocator

import (
	"log"
	"os"
)

// Config holds the tunables for a Heap: the OS-acquisition rounding
// unit, the minimum managed block size, and a debug logging hook for
// split/coalesce/region tracing. It follows the functional-options
// pattern common to configurable components throughout this codebase.
type Config struct {
	// MmapUnit is MMAP_UNIT: every OS acquisition is rounded up to a
	// multiple of this many bytes. Defaults to 32 * the system page size.
	MmapUnit uint64

	// MinAlloc is MIN_ALLOC: the smallest block this heap will ever manage.
	// Must be at least headerSize+16+footerSize (32 on a 64-bit target);
	// NewHeap clamps anything smaller.
	MinAlloc uint64

	// EnableDebug turns on Logger tracing of region acquisition, splits and
	// coalesces. Off by default — this allocator has no statistics API, so
	// this is strictly a debugging aid, never consulted by the allocation
	// path itself.
	EnableDebug bool

	// Logger receives debug trace lines when EnableDebug is set. Defaults
	// to a logger writing to stderr.
	Logger *log.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithMmapUnit overrides the OS-acquisition rounding unit.
func WithMmapUnit(bytes uint64) Option {
	return func(c *Config) { c.MmapUnit = bytes }
}

// WithMinAlloc overrides the minimum managed block size. Values below the
// structural floor (header + two link words + footer) are clamped by
// NewHeap.
func WithMinAlloc(bytes uint64) Option {
	return func(c *Config) { c.MinAlloc = bytes }
}

// WithDebug enables or disables debug tracing.
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.EnableDebug = enabled }
}

// WithLogger overrides the debug trace sink.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() *Config {
	return &Config{
		MmapUnit:    uint64(32 * os.Getpagesize()),
		MinAlloc:    minAllocDefault,
		EnableDebug: false,
		Logger:      log.New(os.Stderr, "allocator: ", 0),
	}
}
