package bounce

import "fmt"

// BodyID is an opaque handle to a body in the world's registry. It stays
// valid from the Add call that produced it until DestroyBody; a destroyed
// handle is never reused (the generation half changes when a slot is reused).
type BodyID uint64

// InvalidBodyID is the zero handle; no live body ever has it.
const InvalidBodyID BodyID = 0

func makeBodyID(index uint32, generation uint32) BodyID {
	return BodyID(uint64(generation)<<32 | uint64(index))
}

func (id BodyID) index() uint32 {
	return uint32(id)
}

func (id BodyID) generation() uint32 {
	return uint32(id >> 32)
}

func (id BodyID) String() string {
	return fmt.Sprintf("body(%d:%d)", id.index(), id.generation())
}
