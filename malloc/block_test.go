package malloc

import "fmt"
import "testing"
import "unsafe"

var _ = fmt.Sprintf("dummy")

func TestNewblock(t *testing.T) {
	size := int64(64 * 1024)
	block := NewBlock(size)
	if x := block.Totalsize(); x != size {
		t.Errorf("expected %v, got %v", size, x)
	} else if x := block.Usedsize(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	} else if x := block.Cachedmaxfree(); x != size-headersize {
		t.Errorf("expected %v, got %v", size-headersize, x)
	}
	if chunks, freechunks := block.Chunkcount(); chunks != 1 {
		t.Errorf("expected %v, got %v", 1, chunks)
	} else if freechunks != 1 {
		t.Errorf("expected %v, got %v", 1, freechunks)
	}
	checkconservation(t, block)
	block.Release()

	// panic cases
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewBlock(headersize + Minchunksize)
	}()
	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		NewBlock(Maxblocksize + 1)
	}()
}

func TestBlockAlloc(t *testing.T) {
	block := NewBlock(64 * 1024)
	ptrs := make([]unsafe.Pointer, 0, 16)
	for i := 0; i < 16; i++ {
		ptr := block.Alloc(100)
		if ptr == nil {
			t.Errorf("unexpected allocation failure")
		} else if x := uintptr(ptr) % uintptr(Alignment); x != 0 {
			t.Errorf("pointer %p not %v byte aligned", ptr, Alignment)
		}
		ptrs = append(ptrs, ptr)
		checkconservation(t, block)
	}
	// 100 aligns up to 112
	if x, y := block.Usedsize(), int64(16*112); x != y {
		t.Errorf("expected %v, got %v", y, x)
	}
	if chunks, freechunks := block.Chunkcount(); chunks != 17 {
		t.Errorf("expected %v, got %v", 17, chunks)
	} else if freechunks != 1 {
		t.Errorf("expected %v, got %v", 1, freechunks)
	}

	// invalid sizes
	if ptr := block.Alloc(0); ptr != nil {
		t.Errorf("expected nil for zero size")
	} else if ptr := block.Alloc(-1); ptr != nil {
		t.Errorf("expected nil for negative size")
	}
	// exceeding the largest free chunk
	if ptr := block.Alloc(block.Maxfreechunk() + 1); ptr != nil {
		t.Errorf("expected allocation failure")
	}

	for _, ptr := range ptrs {
		if block.Free(ptr) == false {
			t.Errorf("unexpected free failure")
		}
		checkconservation(t, block)
	}
	block.Release()
}

func TestBlockExhaust(t *testing.T) {
	block := NewBlock(4 * 1024)
	ptrs := make([]unsafe.Pointer, 0, 8)
	for {
		ptr := block.Alloc(512)
		if ptr == nil {
			break
		}
		ptrs = append(ptrs, ptr)
	}
	if len(ptrs) == 0 {
		t.Errorf("expected atleast one allocation")
	}
	// hint reflects the dearth
	if x := block.Cachedmaxfree(); x >= 512 {
		t.Errorf("unexpected hint %v", x)
	}
	for _, ptr := range ptrs {
		block.Free(ptr)
	}
	if x := block.Freespace(); x != block.Totalsize()-headersize {
		t.Errorf("expected %v, got %v", block.Totalsize()-headersize, x)
	}
	block.Release()
}

func TestBlockRoundtrip(t *testing.T) {
	block := NewBlock(64 * 1024)
	before := block.Freespace()
	ptr := block.Alloc(1000)
	if ptr == nil {
		t.Errorf("unexpected allocation failure")
	}
	if block.Free(ptr) == false {
		t.Errorf("unexpected free failure")
	}
	if x := block.Freespace(); x != before {
		t.Errorf("expected %v, got %v", before, x)
	}
	if chunks, _ := block.Chunkcount(); chunks != 1 {
		t.Errorf("expected %v, got %v", 1, chunks)
	}
	checkconservation(t, block)
	block.Release()
}

func TestBlockDoublefree(t *testing.T) {
	block := NewBlock(64 * 1024)
	ptr := block.Alloc(256)
	if block.Free(ptr) == false {
		t.Errorf("expected first free to succeed")
	}
	if block.Free(ptr) == true {
		t.Errorf("expected double free to fail")
	}
	checkconservation(t, block)
	// block remains usable with correct bookkeeping
	if ptr = block.Alloc(256); ptr == nil {
		t.Errorf("unexpected allocation failure")
	} else if x := block.Usedsize(); x != 256 {
		t.Errorf("expected %v, got %v", 256, x)
	}
	block.Release()
}

func TestBlockForeignfree(t *testing.T) {
	block := NewBlock(64 * 1024)
	ptr := block.Alloc(256)
	used, free := block.Usedsize(), block.Freespace()

	// in-arena address that is not a chunk payload
	foreign := unsafe.Pointer(uintptr(ptr) + 64)
	if block.Free(foreign) == true {
		t.Errorf("expected foreign free to fail")
	}
	if block.Free(nil) == true {
		t.Errorf("expected nil free to fail")
	}
	if x := block.Usedsize(); x != used {
		t.Errorf("expected %v, got %v", used, x)
	} else if x := block.Freespace(); x != free {
		t.Errorf("expected %v, got %v", free, x)
	}
	checkconservation(t, block)
	block.Release()
}

func TestBlockCoalesce(t *testing.T) {
	block := NewBlock(64 * 1024)
	ptrs := make([]unsafe.Pointer, 0, 32)
	for i := 0; i < 32; i++ {
		ptrs = append(ptrs, block.Alloc(512))
	}
	// free in an interleaved order, then the rest
	for i := 0; i < 32; i += 2 {
		block.Free(ptrs[i])
		checknoadjacentfree(t, block)
	}
	for i := 1; i < 32; i += 2 {
		block.Free(ptrs[i])
		checknoadjacentfree(t, block)
	}
	if chunks, freechunks := block.Chunkcount(); chunks != 1 {
		t.Errorf("expected %v, got %v", 1, chunks)
	} else if freechunks != 1 {
		t.Errorf("expected %v, got %v", 1, freechunks)
	}
	checkconservation(t, block)
	block.Release()
}

func TestBlockCompact(t *testing.T) {
	block := NewBlock(64 * 1024)
	a := block.Alloc(1024)
	b := block.Alloc(1024)
	c := block.Alloc(1024)
	block.Free(a)
	block.Free(c)

	// freeing c already absorbed the tail, leaving [free][used][free],
	// compact must not merge across b
	block.Compact()
	if chunks, freechunks := block.Chunkcount(); chunks != 3 {
		t.Errorf("expected %v, got %v", 3, chunks)
	} else if freechunks != 2 {
		t.Errorf("expected %v, got %v", 2, freechunks)
	}
	checkconservation(t, block)

	block.Free(b)
	block.Compact()
	if chunks, _ := block.Chunkcount(); chunks != 1 {
		t.Errorf("expected %v, got %v", 1, chunks)
	}
	if x := block.Cachedmaxfree(); x != block.Totalsize()-headersize {
		t.Errorf("expected %v, got %v", block.Totalsize()-headersize, x)
	}
	block.Release()

	// fabricate an adjacent free/free run, bypassing the eager merge
	// in Free, compact alone must clean it up
	block = NewBlock(8 * 1024)
	p1, p2 := block.Alloc(512), block.Alloc(512)
	h1 := headerat(uintptr(p1) - uintptr(headersize))
	h2 := headerat(uintptr(p2) - uintptr(headersize))
	h1.isfree, h2.isfree = 1, 1
	block.Compact()
	if chunks, freechunks := block.Chunkcount(); chunks != 1 {
		t.Errorf("expected %v, got %v", 1, chunks)
	} else if freechunks != 1 {
		t.Errorf("expected %v, got %v", 1, freechunks)
	}
	if x := block.Cachedmaxfree(); x != block.Totalsize()-headersize {
		t.Errorf("expected %v, got %v", block.Totalsize()-headersize, x)
	}
	block.Release()
}

func TestBlockFragmentation(t *testing.T) {
	block := NewBlock(64 * 1024)
	if x := block.Fragmentation(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	a := block.Alloc(1024)
	b := block.Alloc(1024)
	block.Free(a)
	// [free 1024][used][free tail], some free space is stranded
	if x := block.Fragmentation(); x <= 0 {
		t.Errorf("expected positive fragmentation, got %v", x)
	} else if x >= 100 {
		t.Errorf("unexpected fragmentation %v", x)
	}
	block.Free(b)
	if x := block.Fragmentation(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	block.Release()
}

func TestBlockUtilization(t *testing.T) {
	block := NewBlock(64 * 1024)
	if x := block.Utilization(); x != 0 {
		t.Errorf("expected %v, got %v", 0.0, x)
	}
	block.Alloc(16 * 1024)
	if x := block.Utilization(); x <= 0 || x >= 100 {
		t.Errorf("unexpected utilization %v", x)
	}
	block.Release()
}

func TestBlockContains(t *testing.T) {
	block := NewBlock(64 * 1024)
	ptr := block.Alloc(100)
	if block.Contains(ptr) == false {
		t.Errorf("expected ptr to be contained")
	}
	var local int64
	if block.Contains(unsafe.Pointer(&local)) == true {
		t.Errorf("unexpected containment of a stack address")
	}
	block.Release()
}

//---- test helpers

func checkconservation(t *testing.T, block *Block) {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	sum := int64(0)
	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if hdr.magic != Magicnumber {
			t.Errorf("corrupted magic in chunk %#x", hdr.addr())
		}
		sum += int64(hdr.size) + headersize
	}
	if sum != block.totalsize {
		t.Errorf("conservation broken, expected %v, got %v", block.totalsize, sum)
	}
}

func checknoadjacentfree(t *testing.T, block *Block) {
	block.mutex.Lock()
	defer block.mutex.Unlock()

	for hdr := block.headfirst(); hdr != nil; hdr = hdr.nextheader() {
		if next := hdr.nextheader(); next != nil {
			if hdr.isfree == 1 && next.isfree == 1 {
				t.Errorf("adjacent free chunks at %#x", hdr.addr())
			}
		}
	}
}
