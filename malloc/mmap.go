package malloc

import "golang.org/x/sys/unix"

// osmalloc reserves `size` bytes of anonymous private memory from the
// OS. The returned slice is page aligned and lives outside the Go heap.
func osmalloc(size int64) []byte {
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	prot := unix.PROT_READ | unix.PROT_WRITE
	mem, err := unix.Mmap(-1, 0, int(size), prot, flags)
	if err != nil {
		panicerr("mmap %v bytes: %v", size, err)
	}
	return mem
}

// osfree returns memory obtained via osmalloc back to the OS.
func osfree(mem []byte) {
	if err := unix.Munmap(mem); err != nil {
		errorf("munmap: %v\n", err)
	}
}
