package device

import (
	"time"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

const loadWaitPoll = 50 * time.Microsecond

// CreateShaderModule returns a handle for the (stage, content-hash) key,
// creating the device module only on a cache miss. Repeated creates with
// the same descriptor share the slot and bump its reference counter.
func (d *Device) CreateShaderModule(descriptor renderer.ShaderModuleDescriptor) (renderer.ShaderModuleHandle, error) {
	strand := d.strands.Lane(LaneShader)
	cacheKey := descriptor.CacheKey()

	var (
		hit       bool
		slotIndex uint32
		handle    renderer.ShaderModuleHandle
	)

	strand.Do(func() {
		if cached, ok := d.shaderModuleCache[cacheKey]; ok {
			if cached.Generation != d.shaderModules[cached.Index].generation {
				panic("shader module cache handle does not match slot generation")
			}
			d.shaderModules[cached.Index].referenceCounter++
			hit = true
			handle = cached
			return
		}

		slotIndex = popFreeIndex(&d.shaderModuleFreeList, func() uint32 {
			d.shaderModules = append(d.shaderModules, shaderModuleSlot{})
			return uint32(len(d.shaderModules) - 1)
		})

		slot := &d.shaderModules[slotIndex]
		slot.index = slotIndex
		slot.stage = descriptor.Stage
		slot.cacheKey = cacheKey
		slot.loading = true

		handle = renderer.ShaderModuleHandle{Index: slotIndex, Generation: slot.generation}
		d.shaderModuleCache[cacheKey] = handle

		core.LogDebug("create shader; stage: %s, shader_module_allocator_size: %d",
			descriptor.Stage, len(d.shaderModules))
	})

	if hit {
		return d.waitForShaderModule(strand, descriptor, handle)
	}

	object, err := d.driver.CreateShaderModule(descriptor)

	strand.Do(func() {
		// re-derive the slot; the storage may have grown during the create
		slot := &d.shaderModules[slotIndex]

		if err != nil {
			core.LogError("create shader failed; stage: %s, error: %v", descriptor.Stage, err)
			slot.loading = false
			delete(d.shaderModuleCache, cacheKey)
			if slot.referenceCounter == 0 {
				d.shaderModuleFreeList = append(d.shaderModuleFreeList, slotIndex)
			}
			return
		}

		slot.object = object
		slot.referenceCounter++
		slot.loaded = true
		slot.loading = false

		core.LogDebug("created shader; stage: %s, index: %d, generation: %d",
			descriptor.Stage, slot.index, slot.generation)
	})

	if err != nil {
		return renderer.ShaderModuleHandle{}, core.WrapInternal(err, "creating shader module")
	}
	return handle, nil
}

// waitForShaderModule polls a cache-hit slot until the creator clears the
// loading flag. The waiter has already taken its reference.
func (d *Device) waitForShaderModule(strand *scheduler.Strand, descriptor renderer.ShaderModuleDescriptor, handle renderer.ShaderModuleHandle) (renderer.ShaderModuleHandle, error) {
	for {
		loading := scheduler.Sync(strand, func() bool {
			return d.shaderModules[handle.Index].loading
		})
		if !loading {
			break
		}
		time.Sleep(loadWaitPoll)
	}

	loaded := scheduler.Sync(strand, func() bool {
		return d.shaderModules[handle.Index].loaded
	})
	if !loaded {
		core.LogError("shader module not loaded after wait; stage: %s", descriptor.Stage)
		if err := d.DestroyShaderModule(handle); err != nil {
			core.LogError("releasing stale shader module handle failed: %v", err)
		}
		return renderer.ShaderModuleHandle{}, core.Internalf("shader module for stage %s failed to load", descriptor.Stage)
	}

	core.LogDebug("create shader cache hit; stage: %s, index: %d, generation: %d",
		descriptor.Stage, handle.Index, handle.Generation)
	return handle, nil
}

// DestroyShaderModule drops one reference. When the count reaches zero the
// handle generation is bumped and the module joins the pending-destroy
// list to be released once the timeline catches up.
func (d *Device) DestroyShaderModule(handle renderer.ShaderModuleHandle) error {
	var err error
	d.strands.Lane(LaneShader).Do(func() {
		if int(handle.Index) >= len(d.shaderModules) {
			err = core.InvalidArgumentf("shader module handle index %d out of range", handle.Index)
			return
		}
		slot := &d.shaderModules[handle.Index]

		if slot.generation != handle.Generation {
			err = core.InvalidArgumentf("stale shader module handle; index: %d, handle generation: %d, slot generation: %d",
				handle.Index, handle.Generation, slot.generation)
			return
		}
		if slot.referenceCounter <= 0 {
			err = core.FailedPreconditionf("destroy of unreferenced shader module; index: %d", handle.Index)
			return
		}

		core.LogDebug("destroy shader; index: %d, generation: %d, current_timeline_value: %d",
			handle.Index, handle.Generation, d.timelineValue.Load())

		slot.referenceCounter--
		if slot.referenceCounter > 0 {
			return
		}

		delete(d.shaderModuleCache, slot.cacheKey)
		slot.generation++
		slot.loaded = false

		if slot.object == nil {
			// the module was never created (rolled-back load); the slot can
			// be recycled without waiting on the timeline
			d.shaderModuleFreeList = append(d.shaderModuleFreeList, handle.Index)
			return
		}

		d.pendingDestroyShaderModules = append(d.pendingDestroyShaderModules,
			pendingDestroy{index: handle.Index, fenceValue: d.timelineValue.Load()})
	})
	return err
}
