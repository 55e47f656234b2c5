package api

import "errors"

// ErrorOutofMemory allocation cannot succeed because no arena has a
// large enough contiguous free chunk.
var ErrorOutofMemory = errors.New("outofMemory")

// ErrorInvalidPointer operation cannot succeed because the supplied
// pointer is not owned by the allocator.
var ErrorInvalidPointer = errors.New("invalidPointer")

// ErrorDoubleFree operation cannot succeed because the chunk was
// already freed.
var ErrorDoubleFree = errors.New("doubleFree")

// ErrorPoolExhausted acquire cannot succeed because the pool reached
// its maximum capacity and no object is free.
var ErrorPoolExhausted = errors.New("poolExhausted")
