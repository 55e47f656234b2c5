package pool

import "sync"

import hm "github.com/dustin/go-humanize"

// Pool recycles a population of *T. Element type is fixed per pool
// instance, no dynamic dispatch is involved. All methods are safe for
// concurrent use, one pool wide mutex serializes acquire and release.
type Pool[T any] struct {
	free        []*T
	used        map[*T]struct{}
	currentsize int64 // objects constructed so far, <= maxcapacity
	peakused    int64
	maxcapacity int64
	mutex       sync.Mutex
}

// NewPool pre-construct `initial` objects, growing on demand upto
// `max`. Panics on an invalid capacity pair.
func NewPool[T any](initial, max int64) *Pool[T] {
	if max <= 0 {
		panicerr("max capacity should be positive, got %v", max)
	} else if initial > max {
		panicerr("initial %v exceeds max capacity %v", initial, max)
	}
	pool := &Pool[T]{
		free:        make([]*T, 0, initial),
		used:        make(map[*T]struct{}),
		maxcapacity: max,
	}
	for i := int64(0); i < initial; i++ {
		pool.free = append(pool.free, new(T))
	}
	pool.currentsize = initial
	return pool
}

//---- operations

// Acquire an object from the pool, constructing a fresh one while the
// population is below max capacity. Returns nil when the pool is
// exhausted. Recycled objects keep their previous state, callers shall
// reinitialize fields.
func (pool *Pool[T]) Acquire() *T {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	var obj *T
	if len(pool.free) > 0 {
		obj = pool.free[0]
		pool.free = pool.free[1:]
	} else if pool.currentsize < pool.maxcapacity {
		obj = new(T)
		pool.currentsize++
	} else {
		return nil
	}
	pool.used[obj] = struct{}{}
	if n := int64(len(pool.used)); n > pool.peakused {
		pool.peakused = n
	}
	return obj
}

// Release an object back to the pool. Returns false, without mutating
// any state, when obj is not currently issued by this pool.
func (pool *Pool[T]) Release(obj *T) bool {
	if obj == nil {
		return false
	}

	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if _, ok := pool.used[obj]; !ok {
		return false
	}
	delete(pool.used, obj)
	pool.free = append(pool.free, obj)
	return true
}

//---- statistics

// Freecount implement api.ObjectPooler{} interface.
func (pool *Pool[T]) Freecount() int64 {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	return int64(len(pool.free))
}

// Usedcount implement api.ObjectPooler{} interface.
func (pool *Pool[T]) Usedcount() int64 {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	return int64(len(pool.used))
}

// Peakused implement api.ObjectPooler{} interface.
func (pool *Pool[T]) Peakused() int64 {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	return pool.peakused
}

// Capacity implement api.ObjectPooler{} interface, number of objects
// constructed so far.
func (pool *Pool[T]) Capacity() int64 {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	return pool.currentsize
}

// Maxcapacity hard limit on the population.
func (pool *Pool[T]) Maxcapacity() int64 {
	return pool.maxcapacity
}

// Logstats dump a single line of pool statistics.
func (pool *Pool[T]) Logstats() {
	pool.mutex.Lock()
	free, used := int64(len(pool.free)), int64(len(pool.used))
	peak, size := pool.peakused, pool.currentsize
	pool.mutex.Unlock()

	fmsg := "pool: free:%v used:%v peak:%v capacity:%v/%v\n"
	infof(fmsg, hm.Comma(free), hm.Comma(used), hm.Comma(peak),
		hm.Comma(size), hm.Comma(pool.maxcapacity))
}
