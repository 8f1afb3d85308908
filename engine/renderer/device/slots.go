package device

import "github.com/spaghettifunk/gravity/engine/renderer"

// pendingDestroy pairs a doomed slot with the timeline value at which the
// GPU is guaranteed to be done with it.
type pendingDestroy struct {
	index      uint32
	fenceValue uint64
}

// A slot is in exactly one of four states: loading (shader modules only),
// loaded/alive, destroying (generation already bumped, on the pending
// list) or free (on the free list).

type bufferSlot struct {
	object     interface{}
	size       uint64
	index      uint32
	generation uint32
}

type imageSlot struct {
	object     interface{}
	index      uint32
	generation uint32
}

type samplerSlot struct {
	object     interface{}
	index      uint32
	generation uint32
}

type shaderModuleSlot struct {
	object   interface{}
	stage    renderer.ShaderStage
	cacheKey uint64

	index      uint32
	generation uint32

	referenceCounter int

	loading bool
	loaded  bool
}

// popFreeIndex pops from the free list, or grows storage by calling
// grow(), and returns the slot index to use.
func popFreeIndex(freeList *[]uint32, grow func() uint32) uint32 {
	if n := len(*freeList); n > 0 {
		index := (*freeList)[n-1]
		*freeList = (*freeList)[:n-1]
		return index
	}
	return grow()
}
