package resources

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/resources/loaders"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

// loadWaitPoll is how long a cache-hit waiter sleeps between checks of a
// slot's loading flag.
const loadWaitPoll = 50 * time.Microsecond

// resourceContext is the per-type storage: slots, the descriptor cache and
// the free list. Each context is owned by its type's strand; all access
// goes through short tasks on that lane.
type resourceContext struct {
	slots    []resourceSlot
	cache    map[ResourceDescriptor]ResourceHandle
	freeList []uint32
}

// ResourceManager caches file-backed blobs keyed by descriptor. Each
// resource type gets its own strand so per-type state needs no locks, and
// at most one concurrent load runs per key.
type ResourceManager struct {
	sched    *scheduler.Scheduler
	strands  *scheduler.Group[ResourceType]
	basePath string

	contexts [resourceTypeCount]resourceContext
	loaders  [resourceTypeCount]loaders.Loader
}

func NewResourceManager(sched *scheduler.Scheduler, basePath string) *ResourceManager {
	rm := &ResourceManager{
		sched:    sched,
		strands:  scheduler.MakeStrands(sched, "resources", resourceTypeCount),
		basePath: basePath,
	}

	for i := range rm.contexts {
		rm.contexts[i].cache = make(map[ResourceDescriptor]ResourceHandle)
	}

	rm.RegisterLoader(ResourceTypeShader, loaders.ShaderLoader{})
	rm.RegisterLoader(ResourceTypeImage, loaders.ImageLoader{})
	rm.RegisterLoader(ResourceTypeMesh, loaders.BinaryLoader{})
	rm.RegisterLoader(ResourceTypeMaterial, loaders.BinaryLoader{})

	return rm
}

// RegisterLoader replaces the loader for a resource type. Call before any
// acquire for that type is in flight.
func (rm *ResourceManager) RegisterLoader(resourceType ResourceType, loader loaders.Loader) {
	rm.loaders[resourceType] = loader
}

// AcquireResource returns a lease on the blob behind descriptor, loading
// it on a cache miss. Concurrent acquires of the same descriptor trigger a
// single file read; the rest wait on the loading flag.
func (rm *ResourceManager) AcquireResource(descriptor ResourceDescriptor) (*ResourceLease, error) {
	strand := rm.strands.Lane(descriptor.Type)

	core.LogDebug("acquiring resource; type: %s, path: %s", descriptor.Type, descriptor.Path)

	var (
		hit       bool
		slotIndex uint32
		handle    ResourceHandle
	)

	strand.Do(func() {
		context := &rm.contexts[descriptor.Type]

		if cached, ok := context.cache[descriptor]; ok {
			if cached.Generation != context.slots[cached.Index].generation {
				panic("resource cache handle does not match slot generation")
			}
			context.slots[cached.Index].referenceCounter++
			hit = true
			slotIndex = cached.Index
			handle = cached
			return
		}

		// reserve a slot and publish the loading entry before any await
		if n := len(context.freeList); n > 0 {
			slotIndex = context.freeList[n-1]
			context.freeList = context.freeList[:n-1]
		} else {
			context.slots = append(context.slots, resourceSlot{})
			slotIndex = uint32(len(context.slots) - 1)
		}

		slot := &context.slots[slotIndex]
		slot.index = slotIndex
		slot.descriptor = descriptor
		slot.loading = true

		handle = ResourceHandle{
			Type:       descriptor.Type,
			Index:      slotIndex,
			Generation: slot.generation,
		}
		context.cache[descriptor] = handle
	})

	if hit {
		return rm.waitForLoad(strand, descriptor, handle)
	}

	data, err := rm.readFile(descriptor.Path)
	if err == nil {
		data, err = rm.loaders[descriptor.Type].Load(descriptor.Path, data)
	}

	var lease *ResourceLease
	strand.Do(func() {
		// the storage may have been reallocated during the read; go back
		// through the index
		context := &rm.contexts[descriptor.Type]
		slot := &context.slots[slotIndex]

		if err != nil {
			core.LogError("resource load failed; path: %s, error: %v", descriptor.Path, err)
			slot.loading = false
			delete(context.cache, descriptor)
			if slot.referenceCounter == 0 {
				context.freeList = append(context.freeList, slotIndex)
			}
			return
		}

		slot.resource = &Resource{
			Data: data,
			Hash: core.CalculateDigest(data),
		}
		slot.loaded = true
		slot.loading = false
		slot.referenceCounter++

		core.LogDebug("resource loaded; path: %s, index: %d, generation: %d",
			descriptor.Path, slot.index, slot.generation)

		lease = &ResourceLease{manager: rm, handle: handle}
	})

	if err != nil {
		return nil, err
	}
	return lease, nil
}

// waitForLoad polls the loading flag of a cache-hit slot until the loader
// clears it. The waiter has already taken its reference.
func (rm *ResourceManager) waitForLoad(strand *scheduler.Strand, descriptor ResourceDescriptor, handle ResourceHandle) (*ResourceLease, error) {
	for {
		loading := scheduler.Sync(strand, func() bool {
			return rm.contexts[descriptor.Type].slots[handle.Index].loading
		})
		if !loading {
			break
		}
		time.Sleep(loadWaitPoll)
	}

	loaded := scheduler.Sync(strand, func() bool {
		return rm.contexts[descriptor.Type].slots[handle.Index].loaded
	})
	if !loaded {
		// the load this waiter piggybacked on was rolled back
		core.LogError("resource not loaded after wait; path: %s", descriptor.Path)
		rm.ReleaseResource(handle)
		return nil, core.Internalf("resource %s failed to load", descriptor.Path)
	}

	core.LogDebug("resource cache hit; type: %s, path: %s", descriptor.Type, descriptor.Path)
	return &ResourceLease{manager: rm, handle: handle}, nil
}

// ReleaseResource decrements the reference counter. On the last release
// the slot is evicted: cache entry erased, generation bumped, blob
// dropped, index returned to the free list.
func (rm *ResourceManager) ReleaseResource(handle ResourceHandle) {
	rm.strands.Lane(handle.Type).Do(func() {
		context := &rm.contexts[handle.Type]
		slot := &context.slots[handle.Index]

		if slot.generation != handle.Generation {
			core.LogError("release with stale resource handle; index: %d, handle generation: %d, slot generation: %d",
				handle.Index, handle.Generation, slot.generation)
			return
		}
		if slot.referenceCounter <= 0 {
			core.LogError("release of unreferenced resource slot; index: %d", handle.Index)
			return
		}

		slot.referenceCounter--
		if slot.referenceCounter > 0 {
			return
		}

		core.LogDebug("releasing resource; path: %s, index: %d", slot.descriptor.Path, slot.index)

		delete(context.cache, slot.descriptor)
		slot.generation++
		slot.resource = nil
		slot.loaded = false
		context.freeList = append(context.freeList, handle.Index)
	})
}

// GetResource resolves a lease to its blob on the owning lane. The pointer
// is valid while the lease is held.
func (rm *ResourceManager) GetResource(lease *ResourceLease) (*Resource, error) {
	if lease == nil || lease.manager == nil {
		return nil, core.FailedPreconditionf("resolving a released resource lease")
	}
	handle := lease.handle

	var resource *Resource
	rm.strands.Lane(handle.Type).Do(func() {
		slot := &rm.contexts[handle.Type].slots[handle.Index]
		if slot.generation == handle.Generation && slot.loaded {
			resource = slot.resource
		}
	})

	if resource == nil {
		return nil, core.Internalf("lease points at an unloaded slot; index: %d", handle.Index)
	}
	return resource, nil
}

// CachedCount reports how many descriptors of a type are resident. Used by
// diagnostics and tests.
func (rm *ResourceManager) CachedCount(resourceType ResourceType) int {
	return scheduler.Sync(rm.strands.Lane(resourceType), func() int {
		return len(rm.contexts[resourceType].cache)
	})
}

// readFile reads path (relative to the base path) on the worker pool.
func (rm *ResourceManager) readFile(path string) ([]byte, error) {
	full := path
	if rm.basePath != "" && !filepath.IsAbs(path) {
		full = filepath.Join(rm.basePath, path)
	}

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)

	rm.sched.Submit(func() {
		data, err := os.ReadFile(full)
		ch <- result{data: data, err: err}
	})

	res := <-ch
	if res.err != nil {
		if errors.Is(res.err, fs.ErrNotExist) {
			return nil, core.NotFoundf("resource file %s", full)
		}
		return nil, core.WrapInternal(res.err, "reading resource %s", full)
	}
	return res.data, nil
}
