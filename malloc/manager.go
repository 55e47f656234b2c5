package malloc

import "sync/atomic"
import "unsafe"

import s "github.com/bnclabs/gosettings"
import hm "github.com/dustin/go-humanize"

// Statistics aggregated across every block in every tier.
type Statistics struct {
	Totalallocated int64   // sum of all tiers' block sizes, constant
	Totalused      int64   // live payload bytes across blocks
	Fragmentation  int64   // mean fragmentation over blocks in use
	Blockcount     int64   // number of blocks across tiers
	Avgutilization float64 // Totalused / Totalallocated * 100
	Allocations    int64   // successful Alloc calls
	Deallocations  int64   // successful Free calls
}

// Manager routes allocation requests across three size-class tiers of
// blocks. Tier layout is immutable after construction, so routing and
// pointer resolution take no manager level lock, the per-block mutex
// is the only lock on the allocation path.
type Manager struct {
	// 64-bit aligned counters.
	allocations   int64
	deallocations int64

	small  []*Block
	medium []*Block
	large  []*Block

	// configuration
	smallsize  int64
	mediumsize int64
	largesize  int64
	pertier    int64
}

// NewManager eagerly allocate every tier's blocks as per settings,
// refer to Defaultsettings() for the parameter catalog. Panics on an
// invalid configuration.
func NewManager(setts s.Settings) *Manager {
	mgr := &Manager{
		smallsize:  setts.Int64("block.small"),
		mediumsize: setts.Int64("block.medium"),
		largesize:  setts.Int64("block.large"),
		pertier:    setts.Int64("blocks.pertier"),
	}
	if mgr.pertier <= 0 {
		panicerr("blocks.pertier should be positive, got %v", mgr.pertier)
	} else if mgr.smallsize >= mgr.mediumsize || mgr.mediumsize >= mgr.largesize {
		panicerr(
			"tier sizes should be ascending, got %v %v %v",
			mgr.smallsize, mgr.mediumsize, mgr.largesize)
	}

	footprint := (mgr.smallsize + mgr.mediumsize + mgr.largesize) * mgr.pertier
	if _, _, free := getsysmem(); uint64(footprint) > free {
		warnf("malloc: footprint %v exceeds free system memory %v\n",
			hm.Bytes(uint64(footprint)), hm.Bytes(free))
	}

	for i := int64(0); i < mgr.pertier; i++ {
		mgr.small = append(mgr.small, NewBlock(mgr.smallsize))
		mgr.medium = append(mgr.medium, NewBlock(mgr.mediumsize))
		mgr.large = append(mgr.large, NewBlock(mgr.largesize))
	}
	infof("malloc: manager with %v blocks per tier, %v reserved\n",
		mgr.pertier, hm.Bytes(uint64(footprint)))
	return mgr
}

//---- operations

// Alloc implement api.Mallocer{} interface. Picks the smallest tier
// whose per-block payload can hold the request, then falls over to
// larger tiers, probing blocks in fixed order and skipping via each
// block's lockless max-free hint. Returns nil when the size exceeds
// the largest tier's payload or no block has room.
func (mgr *Manager) Alloc(size int64) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	tiers := mgr.tiersfor(size)
	if tiers == nil {
		errorf("malloc: alloc size %v exceeds tier payload %v\n",
			size, payloadsize(mgr.largesize))
		return nil
	}
	aligned := Alignup(size, Alignment)
	for _, tier := range tiers {
		for _, block := range tier {
			if block.Cachedmaxfree() < aligned {
				continue
			}
			if ptr := block.Alloc(size); ptr != nil {
				atomic.AddInt64(&mgr.allocations, 1)
				return ptr
			}
		}
	}
	return nil
}

// Free implement api.Mallocer{} interface. Resolves the owning block
// by address containment across tiers in fixed order. Returns false,
// leaving all state untouched, when no block claims the pointer or the
// owning block refuses it.
func (mgr *Manager) Free(ptr unsafe.Pointer) bool {
	if ptr == nil {
		return false
	}
	block := mgr.findblock(ptr)
	if block == nil {
		warnf("malloc: free of unknown pointer %p\n", ptr)
		return false
	}
	if block.Free(ptr) {
		atomic.AddInt64(&mgr.deallocations, 1)
		return true
	}
	return false
}

// Release implement api.Mallocer{} interface, returns every arena in
// every tier to the OS.
func (mgr *Manager) Release() {
	for _, tier := range [][]*Block{mgr.small, mgr.medium, mgr.large} {
		for _, block := range tier {
			block.Release()
		}
	}
	infof("malloc: manager released\n")
}

//---- statistics and maintenance

// Stats aggregate statistics across all blocks. Idle blocks are left
// out of the fragmentation mean, unused capacity is not fragmentation.
func (mgr *Manager) Stats() Statistics {
	stats := Statistics{
		Totalallocated: (mgr.smallsize + mgr.mediumsize + mgr.largesize) * mgr.pertier,
		Blockcount:     3 * mgr.pertier,
		Allocations:    atomic.LoadInt64(&mgr.allocations),
		Deallocations:  atomic.LoadInt64(&mgr.deallocations),
	}
	fragmentation, inuse := int64(0), int64(0)
	for _, tier := range [][]*Block{mgr.small, mgr.medium, mgr.large} {
		for _, block := range tier {
			used := block.Usedsize()
			stats.Totalused += used
			if used > 0 {
				fragmentation += block.Fragmentation()
				inuse++
			}
		}
	}
	if inuse > 0 {
		stats.Fragmentation = fragmentation / inuse
	}
	if stats.Totalallocated > 0 {
		stats.Avgutilization =
			float64(stats.Totalused) / float64(stats.Totalallocated) * 100
	}
	return stats
}

// CompactAll compact every block in every tier, sequentially. Each
// compaction holds only that one block's mutex, this is a sequence of
// short pauses, not a global pause.
func (mgr *Manager) CompactAll() {
	for _, tier := range [][]*Block{mgr.small, mgr.medium, mgr.large} {
		for _, block := range tier {
			block.Compact()
		}
	}
}

// ResetStats zero the allocation and deallocation counters.
func (mgr *Manager) ResetStats() {
	atomic.StoreInt64(&mgr.allocations, 0)
	atomic.StoreInt64(&mgr.deallocations, 0)
}

// Info implement api.Mallocer{} interface.
func (mgr *Manager) Info() (capacity, used, free int64) {
	stats := mgr.Stats()
	capacity, used = stats.Totalallocated, stats.Totalused
	return capacity, used, capacity - used
}

// Logstats dump manager totals followed by one line per block.
func (mgr *Manager) Logstats() {
	stats := mgr.Stats()
	fmsg := "malloc: allocated:%v used:%v utilization:%.2f%% " +
		"frag:%v%% allocs:%v frees:%v\n"
	infof(
		fmsg, hm.Bytes(uint64(stats.Totalallocated)),
		hm.Bytes(uint64(stats.Totalused)), stats.Avgutilization,
		stats.Fragmentation, stats.Allocations, stats.Deallocations)
	names := []string{"small", "medium", "large"}
	for i, tier := range [][]*Block{mgr.small, mgr.medium, mgr.large} {
		infof("malloc: --- %v tier ---\n", names[i])
		for _, block := range tier {
			block.Logstats()
		}
	}
}

//---- local functions

// largest payload a block of `size` can serve while leaving room for
// the header and a minimum sized chunk.
func payloadsize(size int64) int64 {
	return size - headersize - Minchunksize
}

// tiers eligible for `size` in probe order, smallest sufficient tier
// first, nil when even the large tier cannot hold it.
func (mgr *Manager) tiersfor(size int64) [][]*Block {
	switch {
	case size <= payloadsize(mgr.smallsize):
		return [][]*Block{mgr.small, mgr.medium, mgr.large}
	case size <= payloadsize(mgr.mediumsize):
		return [][]*Block{mgr.medium, mgr.large}
	case size <= payloadsize(mgr.largesize):
		return [][]*Block{mgr.large}
	}
	return nil
}

func (mgr *Manager) findblock(ptr unsafe.Pointer) *Block {
	for _, tier := range [][]*Block{mgr.small, mgr.medium, mgr.large} {
		for _, block := range tier {
			if block.Contains(ptr) {
				return block
			}
		}
	}
	return nil
}
