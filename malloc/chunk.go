package malloc

import "unsafe"

// chunkheader prefixes every chunk inside a block's arena. Headers are
// overlaid in place over arena bytes, they are never Go heap objects,
// hence the uintptr links are stable and invisible to the collector.
type chunkheader struct {
	magic   uint32
	size    uint32  // payload bytes, excluding this header
	isfree  uint32
	padding uint32  // alignment padding recorded at allocation time
	next    uintptr // arena-order successor, 0 for none
	prev    uintptr // arena-order predecessor, 0 for none
}

// headersize is 32 bytes on 64-bit platforms, a multiple of Alignment,
// payload following a 16-byte aligned header stays 16-byte aligned.
var headersize = int64(unsafe.Sizeof(chunkheader{}))

func headerat(addr uintptr) *chunkheader {
	return (*chunkheader)(unsafe.Pointer(addr))
}

func (hdr *chunkheader) addr() uintptr {
	return uintptr(unsafe.Pointer(hdr))
}

// payload points just past the header.
func (hdr *chunkheader) payload() unsafe.Pointer {
	return unsafe.Pointer(hdr.addr() + uintptr(headersize))
}

func (hdr *chunkheader) nextheader() *chunkheader {
	if hdr.next == 0 {
		return nil
	}
	return headerat(hdr.next)
}

func (hdr *chunkheader) prevheader() *chunkheader {
	if hdr.prev == 0 {
		return nil
	}
	return headerat(hdr.prev)
}
