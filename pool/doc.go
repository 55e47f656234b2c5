// Package pool supplies a generic object recycler, with a limited
// scope:
//
//   - Objects are constructed once, either eagerly at construction or
//     on demand upto a hard capacity, and live until the pool is
//     garbage collected.
//   - Release recycles an object without resetting its state, callers
//     shall reinitialize fields after Acquire.
//   - Acquire never blocks, an exhausted pool reports nil and the
//     caller is expected to fall back or retry later.
package pool
