package api

import "unsafe"

// Mallocer interface for custom memory management.
type Mallocer interface {
	// Alloc allocate a chunk of `n` bytes. Allocated memory is always
	// 16-byte aligned. Returns nil if the request cannot be satisfied.
	Alloc(n int64) unsafe.Pointer

	// Free a chunk previously obtained from this mallocer. Returns
	// false, without mutating any state, if the pointer is not owned
	// by this mallocer or was already freed.
	Free(ptr unsafe.Pointer) bool

	// Release mallocer and all its resources.
	Release()

	// Info of memory accounting for this mallocer.
	Info() (capacity, used, free int64)
}

// ObjectPooler interface to recycle a fixed population of objects.
// Element type is fixed per pool instance, refer to pool.Pool.
type ObjectPooler interface {
	// Freecount number of objects ready to be acquired.
	Freecount() int64

	// Usedcount number of objects currently issued to callers.
	Usedcount() int64

	// Peakused highest Usedcount observed since construction.
	Peakused() int64

	// Capacity number of objects constructed so far.
	Capacity() int64
}
