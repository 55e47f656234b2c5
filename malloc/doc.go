// Package malloc supplies custom memory management over mmapped
// arenas, with a limited scope:
//
//   - Arenas are fixed size, allocated from the OS once at
//     construction and returned to the OS only on Release.
//   - Each arena is carved into chunks, every chunk is prefixed by an
//     in-arena header carrying a magic tag, payload size, free flag
//     and links to its arena-order neighbours.
//   - Allocation is first-fit over the chunk list, splitting the
//     picked chunk when the remainder is big enough to be useful.
//   - Freeing a chunk eagerly coalesces it with free neighbours, so
//     no two adjacent chunks are ever both free.
//   - A Manager routes allocation requests across three size-class
//     tiers (small/medium/large) of arenas, resolves pointers back to
//     their owning arena and aggregates statistics.
//
// Every detected misuse, a double free, a pointer from elsewhere, an
// oversized request, is reported via return value and leaves headers,
// free lists and counters untouched.
package malloc
