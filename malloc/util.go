package malloc

import "fmt"

// Alignup round `size` up to the next multiple of `alignment`,
// alignment shall be a power of 2.
func Alignup(size, alignment int64) int64 {
	return (size + alignment - 1) &^ (alignment - 1)
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
