package malloc

import "sync"
import "sync/atomic"
import "unsafe"

import hm "github.com/dustin/go-humanize"

// Block is a single fixed size arena carved into chunks. All exported
// methods are safe for concurrent use, the block owns a private mutex
// guarding its chunk list, while usedsize and the max-free hint are
// atomics readable without the mutex.
type Block struct {
	// 64-bit aligned stats.
	usedsize      int64
	cachedmaxfree int64

	arena     []byte // mmapped backing memory
	base      uintptr
	totalsize int64
	first     uintptr // head of the chunk list, arena order
	mutex     sync.Mutex
}

// NewBlock allocate a `size` byte arena from the OS and format it as
// one free chunk spanning the whole arena.
func NewBlock(size int64) *Block {
	if size <= headersize+Minchunksize {
		panicerr("block size %v too small", size)
	} else if size > Maxblocksize {
		panicerr("block size %v exceeds %v", size, Maxblocksize)
	}
	arena := osmalloc(size)
	block := &Block{
		arena:     arena,
		base:      uintptr(unsafe.Pointer(&arena[0])),
		totalsize: size,
	}
	hdr := headerat(block.base)
	hdr.magic, hdr.size = Magicnumber, uint32(size-headersize)
	hdr.isfree, hdr.padding = 1, 0
	hdr.next, hdr.prev = 0, 0
	block.first = block.base
	block.cachedmaxfree = size - headersize
	return block
}

//---- operations

// Alloc implement api.Mallocer{} interface. First-fit scan for a free
// chunk of atleast `size` bytes rounded up to Alignment, splitting the
// picked chunk when the remainder is large enough to be useful.
// Returns nil when no single free chunk can hold the request.
func (block *Block) Alloc(size int64) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	aligned := Alignup(size, Alignment)
	// fast reject on the lockless hint, a stale value can only cause
	// an unnecessary miss, never a wrong allocation.
	if atomic.LoadInt64(&block.cachedmaxfree) < aligned {
		return nil
	}

	block.mutex.Lock()
	defer block.mutex.Unlock()

	if block.arena == nil {
		panicerr("block released")
	}
	hdr := block.findfree(aligned)
	if hdr == nil {
		return nil
	}
	if int64(hdr.size) > aligned+headersize+Minchunksize {
		block.split(hdr, aligned)
	}
	hdr.isfree = 0
	hdr.padding = uint32(aligned - size)
	atomic.AddInt64(&block.usedsize, int64(hdr.size))
	block.recomputemaxfree()
	return hdr.payload()
}

// Free implement api.Mallocer{} interface. Marks the chunk free and
// eagerly merges it with free neighbours. Returns false on a pointer
// that does not carry a valid header and on a double free, leaving the
// chunk list untouched.
func (block *Block) Free(ptr unsafe.Pointer) bool {
	if ptr == nil {
		return false
	}

	block.mutex.Lock()
	defer block.mutex.Unlock()

	if block.arena == nil {
		panicerr("block released")
	}
	p := uintptr(ptr)
	if p < block.base+uintptr(headersize) || p >= block.base+uintptr(block.totalsize) {
		return false // header would fall outside the arena
	}
	hdr := headerat(p - uintptr(headersize))
	if hdr.magic != Magicnumber {
		return false // not a chunk of ours
	} else if hdr.isfree == 1 {
		warnf("malloc: double free of chunk %p\n", ptr)
		return false
	}
	hdr.isfree = 1
	atomic.AddInt64(&block.usedsize, -int64(hdr.size))
	block.merge(hdr)
	block.recomputemaxfree()
	return true
}

// Release implement api.Mallocer{} interface, returns the arena to the
// OS. Block shall not be used after Release.
func (block *Block) Release() {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	if block.arena == nil {
		return
	}
	osfree(block.arena)
	block.arena, block.base, block.first = nil, 0, 0
	atomic.StoreInt64(&block.usedsize, 0)
	atomic.StoreInt64(&block.cachedmaxfree, 0)
}

//---- statistics and maintenance

// Compact merge every run of adjacent free chunks in a single sweep.
// Free already coalesces eagerly, Compact is useful after bursts of
// frees interleaved with splits.
func (block *Block) Compact() {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	if block.arena == nil {
		panicerr("block released")
	}
	hdr := block.headfirst()
	for hdr != nil && hdr.next != 0 {
		next := hdr.nextheader()
		if hdr.isfree == 1 && next.isfree == 1 {
			block.absorbnext(hdr)
			continue // recheck the grown chunk against its new next
		}
		hdr = next
	}
	block.recomputemaxfree()
}

// Fragmentation ratio in percent, the fraction of free space that is
// not part of the single largest free chunk. Zero when the block has
// one free chunk or none, there is nothing to defragment then.
func (block *Block) Fragmentation() int64 {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	totalfree, maxfree, freechunks := int64(0), int64(0), int64(0)
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.isfree == 1 {
			totalfree += int64(hdr.size)
			freechunks++
			if int64(hdr.size) > maxfree {
				maxfree = int64(hdr.size)
			}
		}
	}
	if freechunks <= 1 || totalfree == 0 {
		return 0
	}
	return (totalfree - maxfree) * 100 / totalfree
}

// Totalsize of the arena, fixed at construction.
func (block *Block) Totalsize() int64 {
	return block.totalsize
}

// Usedsize sum of payload sizes of chunks currently handed out.
func (block *Block) Usedsize() int64 {
	return atomic.LoadInt64(&block.usedsize)
}

// Freespace sum of payload sizes over all free chunks.
func (block *Block) Freespace() int64 {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	freespace := int64(0)
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.isfree == 1 {
			freespace += int64(hdr.size)
		}
	}
	return freespace
}

// Maxfreechunk size of the largest single free chunk, ground truth
// behind the cached hint.
func (block *Block) Maxfreechunk() int64 {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	maxfree := int64(0)
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.isfree == 1 && int64(hdr.size) > maxfree {
			maxfree = int64(hdr.size)
		}
	}
	return maxfree
}

// Cachedmaxfree lockless upper bound on Maxfreechunk, used by the
// Manager to skip blocks without taking their mutex.
func (block *Block) Cachedmaxfree() int64 {
	return atomic.LoadInt64(&block.cachedmaxfree)
}

// Contains check whether ptr falls inside this block's arena.
func (block *Block) Contains(ptr unsafe.Pointer) bool {
	p := uintptr(ptr)
	return p >= block.base && p < block.base+uintptr(block.totalsize)
}

// Utilization percentage of the arena handed out to callers.
func (block *Block) Utilization() float64 {
	if block.totalsize == 0 {
		return 0
	}
	used := atomic.LoadInt64(&block.usedsize)
	return float64(used) / float64(block.totalsize) * 100
}

// Chunkcount number of chunks in the arena and how many of them are
// free.
func (block *Block) Chunkcount() (chunks, freechunks int64) {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		chunks++
		if hdr.isfree == 1 {
			freechunks++
		}
	}
	return chunks, freechunks
}

// Info implement api.Mallocer{} interface.
func (block *Block) Info() (capacity, used, free int64) {
	return block.totalsize, block.Usedsize(), block.Freespace()
}

// Logstats dump a single line of block statistics.
func (block *Block) Logstats() {
	capacity, used, free := block.Info()
	chunks, freechunks := block.Chunkcount()
	fmsg := "block %v used:%v free:%v chunks:%v(free %v) frag:%v%%\n"
	infof(
		fmsg, hm.Bytes(uint64(capacity)), hm.Bytes(uint64(used)),
		hm.Bytes(uint64(free)), chunks, freechunks, block.Fragmentation())
}

//---- local functions

func (block *Block) headfirst() *chunkheader {
	if block.first == 0 {
		return nil
	}
	return headerat(block.first)
}

// first-fit scan, caller holds block.mutex.
func (block *Block) findfree(size int64) *chunkheader {
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.isfree == 1 && int64(hdr.size) >= size {
			return hdr
		}
	}
	return nil
}

// shrink hdr to `size` payload bytes and splice a new free chunk over
// the remainder, caller holds block.mutex.
func (block *Block) split(hdr *chunkheader, size int64) {
	newaddr := hdr.addr() + uintptr(headersize) + uintptr(size)
	newhdr := headerat(newaddr)
	newhdr.magic = Magicnumber
	newhdr.size = hdr.size - uint32(size) - uint32(headersize)
	newhdr.isfree, newhdr.padding = 1, 0
	newhdr.next, newhdr.prev = hdr.next, hdr.addr()

	hdr.size = uint32(size)
	hdr.next = newaddr
	if next := newhdr.nextheader(); next != nil {
		next.prev = newaddr
	}
}

// merge hdr with its next then its previous neighbour when they are
// free, caller holds block.mutex.
func (block *Block) merge(hdr *chunkheader) {
	if next := hdr.nextheader(); next != nil && next.isfree == 1 {
		block.absorbnext(hdr)
	}
	if prev := hdr.prevheader(); prev != nil && prev.isfree == 1 {
		block.absorbnext(prev)
	}
}

// absorb hdr's successor into hdr, caller holds block.mutex.
func (block *Block) absorbnext(hdr *chunkheader) {
	next := hdr.nextheader()
	hdr.size += uint32(headersize) + next.size
	hdr.next = next.next
	if next := hdr.nextheader(); next != nil {
		next.prev = hdr.addr()
	}
}

// re-derive the max-free hint from ground truth, caller holds
// block.mutex.
func (block *Block) recomputemaxfree() {
	maxfree := int64(0)
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.isfree == 1 && int64(hdr.size) > maxfree {
			maxfree = int64(hdr.size)
		}
	}
	atomic.StoreInt64(&block.cachedmaxfree, maxfree)
}
