// Package device implements the GPU object store on top of an opaque
// Driver capability set: typed slotted allocators, timeline-gated deferred
// destruction, the shader-module cache and the frame loop. The Vulkan
// driver lives in engine/renderer/vulkan.
package device

import "github.com/spaghettifunk/gravity/engine/renderer"

// AcquireOutcome classifies a swapchain image acquisition.
type AcquireOutcome uint8

const (
	AcquireSuccess AcquireOutcome = iota
	AcquireSuboptimal
	AcquireNotReady
	AcquireOutOfDate
)

// PresentOutcome classifies a present call.
type PresentOutcome uint8

const (
	PresentSuccess PresentOutcome = iota
	PresentSuboptimal
	PresentOutOfDate
)

// Capabilities are the device features the object store needs to make
// decisions above the driver.
type Capabilities struct {
	SamplerAnisotropy    bool
	MaxSamplerAnisotropy float32
	TimelineSemaphore    bool
}

// Driver is the opaque rendering-API capability set. Implementations are
// internally thread-safe: any strand may call them, and all cross-strand
// ordering is carried by the timeline counter.
//
// Object values returned by the Create calls are opaque to this package
// and handed back verbatim on Destroy.
type Driver interface {
	Initialize() error
	Shutdown() error
	Capabilities() Capabilities

	WaitIdle() error

	// RecreateSwapchain tears down and rebuilds the swapchain and primary
	// render pass after the surface changed.
	RecreateSwapchain() error

	FrameCount() int
	ImageCount() int

	// FenceSignaled reports the state of a frame's in-flight fence without
	// blocking.
	FenceSignaled(frame int) (bool, error)

	// ResetFrame resets the frame's fence and command pool and clears its
	// command-buffer list.
	ResetFrame(frame int) error

	AcquireNextImage(frame int) (imageIndex int, outcome AcquireOutcome, err error)

	// Submit builds the frame's single queue submit: wait image_available
	// at color-attachment-output, signal render_finished and the timeline
	// semaphore at timelineValue, fence in_flight.
	Submit(frame int, timelineValue uint64) error

	Present(frame int, imageIndex int) (PresentOutcome, error)

	// TimelineCompleted returns the timeline semaphore's completed value.
	TimelineCompleted() (uint64, error)

	CreateBuffer(descriptor renderer.BufferDescriptor) (interface{}, error)
	DestroyBuffer(object interface{})

	CreateImage(descriptor renderer.ImageDescriptor) (interface{}, error)
	DestroyImage(object interface{})

	CreateSampler(descriptor renderer.SamplerDescriptor) (interface{}, error)
	DestroySampler(object interface{})

	CreateShaderModule(descriptor renderer.ShaderModuleDescriptor) (interface{}, error)
	DestroyShaderModule(object interface{})
}
