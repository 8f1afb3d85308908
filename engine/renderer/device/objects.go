package device

import (
	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

// CreateBuffer allocates a device buffer and returns its handle. Runs on
// the Buffer lane.
func (d *Device) CreateBuffer(descriptor renderer.BufferDescriptor) (renderer.BufferHandle, error) {
	core.LogDebug("create buffer; size: %d, usage: %#x, visibility: %s",
		descriptor.Size, uint16(descriptor.Usage), descriptor.Visibility)

	object, err := d.driver.CreateBuffer(descriptor)
	if err != nil {
		core.LogError("create buffer failed; size: %d, error: %v", descriptor.Size, err)
		return renderer.BufferHandle{}, core.WrapInternal(err, "creating buffer")
	}

	var (
		handle        renderer.BufferHandle
		allocatorSize int
	)
	d.strands.Lane(LaneBuffer).Do(func() {
		index := popFreeIndex(&d.bufferFreeList, func() uint32 {
			d.buffers = append(d.buffers, bufferSlot{})
			return uint32(len(d.buffers) - 1)
		})

		slot := &d.buffers[index]
		slot.index = index
		slot.object = object
		slot.size = descriptor.Size

		handle = renderer.BufferHandle{Index: index, Generation: slot.generation}
		allocatorSize = len(d.buffers)
	})

	core.LogDebug("created buffer; index: %d, generation: %d, buffer_allocator_size: %d",
		handle.Index, handle.Generation, allocatorSize)
	return handle, nil
}

// DestroyBuffer invalidates the handle immediately and defers the Vulkan
// destruction until the timeline passes the current value.
func (d *Device) DestroyBuffer(handle renderer.BufferHandle) error {
	var err error
	d.strands.Lane(LaneBuffer).Do(func() {
		if int(handle.Index) >= len(d.buffers) {
			err = core.InvalidArgumentf("buffer handle index %d out of range", handle.Index)
			return
		}
		slot := &d.buffers[handle.Index]

		if slot.object == nil {
			core.LogTrace("destroy buffer; index %d already destroyed", handle.Index)
			return
		}
		if slot.generation != handle.Generation {
			err = core.InvalidArgumentf("stale buffer handle; index: %d, handle generation: %d, slot generation: %d",
				handle.Index, handle.Generation, slot.generation)
			return
		}

		core.LogDebug("destroy buffer; index: %d, generation: %d, current_timeline_value: %d",
			handle.Index, handle.Generation, d.timelineValue.Load())

		slot.generation++
		d.pendingDestroyBuffers = append(d.pendingDestroyBuffers,
			pendingDestroy{index: handle.Index, fenceValue: d.timelineValue.Load()})
	})
	return err
}

// CreateImage allocates a device image with its view. Images share the
// Buffer lane.
func (d *Device) CreateImage(descriptor renderer.ImageDescriptor) (renderer.ImageHandle, error) {
	object, err := d.driver.CreateImage(descriptor)
	if err != nil {
		core.LogError("create image failed; extent: %dx%d, error: %v",
			descriptor.Extent.Width, descriptor.Extent.Height, err)
		return renderer.ImageHandle{}, core.WrapInternal(err, "creating image")
	}

	var handle renderer.ImageHandle
	d.strands.Lane(LaneBuffer).Do(func() {
		index := popFreeIndex(&d.imageFreeList, func() uint32 {
			d.images = append(d.images, imageSlot{})
			return uint32(len(d.images) - 1)
		})

		slot := &d.images[index]
		slot.index = index
		slot.object = object

		handle = renderer.ImageHandle{Index: index, Generation: slot.generation}
	})
	return handle, nil
}

func (d *Device) DestroyImage(handle renderer.ImageHandle) error {
	var err error
	d.strands.Lane(LaneBuffer).Do(func() {
		if int(handle.Index) >= len(d.images) {
			err = core.InvalidArgumentf("image handle index %d out of range", handle.Index)
			return
		}
		slot := &d.images[handle.Index]

		if slot.object == nil {
			core.LogTrace("destroy image; index %d already destroyed", handle.Index)
			return
		}
		if slot.generation != handle.Generation {
			err = core.InvalidArgumentf("stale image handle; index: %d, handle generation: %d, slot generation: %d",
				handle.Index, handle.Generation, slot.generation)
			return
		}

		core.LogDebug("destroy image; index: %d, generation: %d, current_timeline_value: %d",
			handle.Index, handle.Generation, d.timelineValue.Load())

		slot.generation++
		d.pendingDestroyImages = append(d.pendingDestroyImages,
			pendingDestroy{index: handle.Index, fenceValue: d.timelineValue.Load()})
	})
	return err
}

// CreateSampler validates anisotropy against device capabilities, clamps
// the requested level to the device limit and allocates the sampler on the
// Sampler lane.
func (d *Device) CreateSampler(descriptor renderer.SamplerDescriptor) (renderer.SamplerHandle, error) {
	capabilities := d.driver.Capabilities()

	if descriptor.AnisotropyEnabled {
		if !capabilities.SamplerAnisotropy {
			return renderer.SamplerHandle{}, core.FeatureNotSupportedf("sampler anisotropy not supported by this device")
		}
		if descriptor.MaxAnisotropy > capabilities.MaxSamplerAnisotropy {
			descriptor.MaxAnisotropy = capabilities.MaxSamplerAnisotropy
		}
	}

	object, err := d.driver.CreateSampler(descriptor)
	if err != nil {
		core.LogError("create sampler failed: %v", err)
		return renderer.SamplerHandle{}, core.WrapInternal(err, "creating sampler")
	}

	var handle renderer.SamplerHandle
	d.strands.Lane(LaneSampler).Do(func() {
		index := popFreeIndex(&d.samplerFreeList, func() uint32 {
			d.samplers = append(d.samplers, samplerSlot{})
			return uint32(len(d.samplers) - 1)
		})

		slot := &d.samplers[index]
		slot.index = index
		slot.object = object

		handle = renderer.SamplerHandle{Index: index, Generation: slot.generation}
	})
	return handle, nil
}

func (d *Device) DestroySampler(handle renderer.SamplerHandle) error {
	var err error
	d.strands.Lane(LaneSampler).Do(func() {
		if int(handle.Index) >= len(d.samplers) {
			err = core.InvalidArgumentf("sampler handle index %d out of range", handle.Index)
			return
		}
		slot := &d.samplers[handle.Index]

		if slot.object == nil {
			core.LogTrace("destroy sampler; index %d already destroyed", handle.Index)
			return
		}
		if slot.generation != handle.Generation {
			err = core.InvalidArgumentf("stale sampler handle; index: %d, handle generation: %d, slot generation: %d",
				handle.Index, handle.Generation, slot.generation)
			return
		}

		slot.generation++
		d.pendingDestroySamplers = append(d.pendingDestroySamplers,
			pendingDestroy{index: handle.Index, fenceValue: d.timelineValue.Load()})
	})
	return err
}
