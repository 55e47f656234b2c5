// Package mempool implement a tiered memory allocator and companion
// object pool, along with necessary tools and libraries.
//
// api:
//
// Interface specification to access mempool allocators.
//
// malloc:
//
// Custom memory management over mmapped arenas. Each arena is carved
// into chunks prefixed by an in-arena header, allocation is first-fit
// with chunk splitting and eager coalescing of free neighbours. A
// Manager routes allocations across three size-class tiers of arenas.
//
// pool:
//
// Generic object recycler for a fixed population of pre-constructed
// objects, growing on demand upto a hard capacity.
package mempool
