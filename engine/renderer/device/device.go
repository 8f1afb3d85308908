package device

import (
	"sync/atomic"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

// Lane enumerates the device's strands. Images share the buffer lane; the
// cleanup lane coordinates pending-destroy collection.
type Lane uint8

const (
	LaneInitialize Lane = iota
	LaneBuffer
	LaneSampler
	LaneShader
	LaneCleanup
	laneCount
)

// Device owns every GPU object and manages its lifetime against GPU
// consumption. All mutation of a typed storage happens on that type's
// strand; the timeline counter is the only cross-strand state and is
// atomic.
type Device struct {
	driver  Driver
	strands *scheduler.Group[Lane]

	// timelineValue is the value the next queue submit will signal. It
	// gates all deferred destruction.
	timelineValue atomic.Uint64

	// frame state, owned by the Initialize lane
	currentFrame   int
	currentImage   int
	imagesInFlight []int
	initialized    bool

	// buffers and images, owned by the Buffer lane
	buffers               []bufferSlot
	bufferFreeList        []uint32
	pendingDestroyBuffers []pendingDestroy

	images               []imageSlot
	imageFreeList        []uint32
	pendingDestroyImages []pendingDestroy

	// samplers, owned by the Sampler lane
	samplers               []samplerSlot
	samplerFreeList        []uint32
	pendingDestroySamplers []pendingDestroy

	// shader modules, owned by the Shader lane
	shaderModules               []shaderModuleSlot
	shaderModuleFreeList        []uint32
	pendingDestroyShaderModules []pendingDestroy
	shaderModuleCache           map[uint64]renderer.ShaderModuleHandle
}

var _ renderer.RenderingDevice = (*Device)(nil)

func New(sched *scheduler.Scheduler, driver Driver) *Device {
	return &Device{
		driver:            driver,
		strands:           scheduler.MakeStrands(sched, "device", laneCount),
		shaderModuleCache: make(map[uint64]renderer.ShaderModuleHandle),
	}
}

// Initialize brings the driver up on the Initialize lane.
func (d *Device) Initialize() error {
	var err error
	d.strands.Lane(LaneInitialize).Do(func() {
		if d.initialized {
			err = core.FailedPreconditionf("rendering device already initialized")
			return
		}
		if err = d.driver.Initialize(); err != nil {
			return
		}
		if !d.driver.Capabilities().TimelineSemaphore {
			core.LogWarn("timeline semaphore not supported by this device")
		}
		d.resetImagesInFlight()
		d.initialized = true
	})
	return err
}

// Shutdown destroys every still-live object through its type's strand,
// drains all pending destroys and shuts the driver down. The GPU is idle
// by the time any object is touched.
func (d *Device) Shutdown() error {
	if err := d.driver.WaitIdle(); err != nil {
		return err
	}

	d.strands.Lane(LaneBuffer).Do(func() {
		for i := range d.buffers {
			slot := &d.buffers[i]
			if slot.object == nil {
				continue
			}
			slot.generation++
			d.pendingDestroyBuffers = append(d.pendingDestroyBuffers,
				pendingDestroy{index: slot.index, fenceValue: d.timelineValue.Load()})
		}
		for i := range d.images {
			slot := &d.images[i]
			if slot.object == nil {
				continue
			}
			slot.generation++
			d.pendingDestroyImages = append(d.pendingDestroyImages,
				pendingDestroy{index: slot.index, fenceValue: d.timelineValue.Load()})
		}
	})

	d.strands.Lane(LaneSampler).Do(func() {
		for i := range d.samplers {
			slot := &d.samplers[i]
			if slot.object == nil {
				continue
			}
			slot.generation++
			d.pendingDestroySamplers = append(d.pendingDestroySamplers,
				pendingDestroy{index: slot.index, fenceValue: d.timelineValue.Load()})
		}
	})

	d.strands.Lane(LaneShader).Do(func() {
		for i := range d.shaderModules {
			slot := &d.shaderModules[i]
			if slot.object == nil {
				continue
			}
			slot.generation++
			slot.loaded = false
			slot.referenceCounter = 0
			delete(d.shaderModuleCache, slot.cacheKey)
			d.pendingDestroyShaderModules = append(d.pendingDestroyShaderModules,
				pendingDestroy{index: slot.index, fenceValue: d.timelineValue.Load()})
		}
	})

	// the GPU is idle, so everything recorded is collectable
	d.collect(d.timelineValue.Load())

	return d.driver.Shutdown()
}

// CollectPendingDestroy destroys every pending object whose recorded fence
// value the timeline has reached, and recycles its slot index.
func (d *Device) CollectPendingDestroy() error {
	var (
		completed uint64
		err       error
	)
	d.strands.Lane(LaneCleanup).Do(func() {
		completed, err = d.driver.TimelineCompleted()
		if err != nil {
			return
		}
		d.collect(completed)
	})
	if err != nil {
		core.LogError("pending destroy collector failed to read timeline value: %v", err)
		return core.WrapInternal(err, "reading timeline semaphore")
	}
	return nil
}

// collect runs each typed collection on its owning lane.
func (d *Device) collect(completed uint64) {
	d.strands.Lane(LaneBuffer).Do(func() {
		d.pendingDestroyBuffers = collectPending(d.pendingDestroyBuffers, completed, func(index uint32) {
			slot := &d.buffers[index]
			if slot.object != nil {
				d.driver.DestroyBuffer(slot.object)
				slot.object = nil
				d.bufferFreeList = append(d.bufferFreeList, index)
			}
		})
		d.pendingDestroyImages = collectPending(d.pendingDestroyImages, completed, func(index uint32) {
			slot := &d.images[index]
			if slot.object != nil {
				d.driver.DestroyImage(slot.object)
				slot.object = nil
				d.imageFreeList = append(d.imageFreeList, index)
			}
		})
	})

	d.strands.Lane(LaneSampler).Do(func() {
		d.pendingDestroySamplers = collectPending(d.pendingDestroySamplers, completed, func(index uint32) {
			slot := &d.samplers[index]
			if slot.object != nil {
				d.driver.DestroySampler(slot.object)
				slot.object = nil
				d.samplerFreeList = append(d.samplerFreeList, index)
			}
		})
	})

	d.strands.Lane(LaneShader).Do(func() {
		d.pendingDestroyShaderModules = collectPending(d.pendingDestroyShaderModules, completed, func(index uint32) {
			slot := &d.shaderModules[index]
			if slot.object != nil {
				d.driver.DestroyShaderModule(slot.object)
				slot.object = nil
				d.shaderModuleFreeList = append(d.shaderModuleFreeList, index)
			}
		})
	})
}

// collectPending filters pending, invoking destroy for every entry whose
// fence value the timeline has passed, and returns the remainder.
func collectPending(pending []pendingDestroy, completed uint64, destroy func(index uint32)) []pendingDestroy {
	remaining := pending[:0]
	for _, entry := range pending {
		if entry.fenceValue <= completed {
			destroy(entry.index)
		} else {
			remaining = append(remaining, entry)
		}
	}
	return remaining
}

func (d *Device) resetImagesInFlight() {
	d.imagesInFlight = make([]int, d.driver.ImageCount())
	for i := range d.imagesInFlight {
		d.imagesInFlight[i] = noFrame
	}
}
