package malloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Alignment allocation sizes are rounded up to this boundary and
// returned pointers are aligned to it, sized for SIMD friendly access.
const Alignment = int64(16)

// Magicnumber tags every chunk header, validates that a pointer handed
// to Free actually originates from this allocator.
const Magicnumber = uint32(0xDEADBEEF)

// Minchunksize chunks smaller than this are never created by a split.
const Minchunksize = int64(64)

// Maxblocksize maximum size of a single memory block.
const Maxblocksize = int64(1024 * 1024 * 1024) // 1GB

// Defaultsettings for Manager,
//
// "block.small" (int64, default: 256KB)
//		Size of each block in the small tier.
//
// "block.medium" (int64, default: 1MB)
//		Size of each block in the medium tier.
//
// "block.large" (int64, default: 4MB)
//		Size of each block in the large tier.
//
// "blocks.pertier" (int64, default: 10)
//		Number of blocks pre-allocated in every tier.
func Defaultsettings() s.Settings {
	return s.Settings{
		"block.small":    int64(256 * 1024),
		"block.medium":   int64(1024 * 1024),
		"block.large":    int64(4 * 1024 * 1024),
		"blocks.pertier": int64(10),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}
