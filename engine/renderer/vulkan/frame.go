package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer/device"
)

// timelineTracker emulates a monotonic timeline counter over the
// per-frame fences: a submit records (value, frame), and the value is
// complete once that frame's fence has been observed signaled. The
// binding exposes no VK_KHR_timeline_semaphore entry points, so the
// counter semantics are reproduced on the host side.
type timelineTracker struct {
	mu        sync.Mutex
	completed uint64
	pending   []pendingSubmit
}

type pendingSubmit struct {
	value uint64
	frame int
}

func (t *timelineTracker) record(value uint64, frame int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, pendingSubmit{value: value, frame: frame})
}

// harvestFrame marks every pending submit of frame as complete. Called
// once the frame's fence is known signaled.
func (t *timelineTracker) harvestFrame(frame int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := t.pending[:0]
	for _, submit := range t.pending {
		if submit.frame == frame {
			if submit.value > t.completed {
				t.completed = submit.value
			}
		} else {
			remaining = append(remaining, submit)
		}
	}
	t.pending = remaining
}

func (t *timelineTracker) value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

func (d *Driver) initializeSynchronization() error {
	for i := range d.frames {
		frame := &d.frames[i]

		fenceCreateInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}
		var fence vk.Fence
		if res := vk.CreateFence(d.logicalDevice, &fenceCreateInfo, nil, &fence); res != vk.Success {
			core.LogError("unable to create draw fence: %s", resultString(res))
			return core.Internalf("vkCreateFence failed: %s", resultString(res))
		}
		frame.inFlight = fence

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		var semaphore vk.Semaphore
		if res := vk.CreateSemaphore(d.logicalDevice, &semaphoreCreateInfo, nil, &semaphore); res != vk.Success {
			core.LogError("unable to create draw complete semaphore: %s", resultString(res))
			return core.Internalf("vkCreateSemaphore failed: %s", resultString(res))
		}
		frame.renderFinished = semaphore
	}
	return nil
}

func (d *Driver) initializeCommandPools() error {
	commandPoolCreateInfo := vk.CommandPoolCreateInfo{
		SType: vk.StructureTypeCommandPoolCreateInfo,
		Flags: vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit |
			vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: d.graphicsQueueIndex,
	}

	for i := range d.frames {
		var pool vk.CommandPool
		if res := vk.CreateCommandPool(d.logicalDevice, &commandPoolCreateInfo, nil, &pool); res != vk.Success {
			core.LogError("unable to create command pool for frame %d: %s", i, resultString(res))
			return core.Internalf("vkCreateCommandPool failed: %s", resultString(res))
		}
		d.frames[i].commandPool = pool
	}
	return nil
}

func (d *Driver) initializeCommandBuffers() error {
	for i := range d.frames {
		allocateInfo := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        d.frames[i].commandPool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}

		commandBuffers := make([]vk.CommandBuffer, 1)
		if res := vk.AllocateCommandBuffers(d.logicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
			core.LogError("unable to allocate command buffers for frame %d: %s", i, resultString(res))
			return core.Internalf("vkAllocateCommandBuffers failed: %s", resultString(res))
		}
		d.frames[i].commandBuffers = commandBuffers
	}
	return nil
}

// FenceSignaled reports the in-flight fence state without blocking, and
// feeds the timeline tracker when the fence has signaled.
func (d *Driver) FenceSignaled(frame int) (bool, error) {
	res := vk.GetFenceStatus(d.logicalDevice, d.frames[frame].inFlight)
	switch res {
	case vk.Success:
		d.timeline.harvestFrame(frame)
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, core.Internalf("vkGetFenceStatus failed: %s", resultString(res))
	}
}

// ResetFrame resets the frame's fence and command pool. The caller has
// already observed the fence signaled.
func (d *Driver) ResetFrame(frame int) error {
	fs := &d.frames[frame]

	if res := vk.ResetFences(d.logicalDevice, 1, []vk.Fence{fs.inFlight}); res != vk.Success {
		return core.Internalf("vkResetFences failed: %s", resultString(res))
	}
	if res := vk.ResetCommandPool(d.logicalDevice, fs.commandPool, 0); res != vk.Success {
		return core.Internalf("vkResetCommandPool failed: %s", resultString(res))
	}
	return nil
}

func (d *Driver) AcquireNextImage(frame int) (int, device.AcquireOutcome, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(d.logicalDevice, d.swapchainResources.swapchain, 0,
		d.frames[frame].imageAvailable, vk.NullFence, &imageIndex)

	switch res {
	case vk.Success:
		return int(imageIndex), device.AcquireSuccess, nil
	case vk.Suboptimal:
		return int(imageIndex), device.AcquireSuboptimal, nil
	case vk.NotReady:
		return 0, device.AcquireNotReady, nil
	case vk.Timeout:
		return 0, device.AcquireNotReady, nil
	case vk.ErrorOutOfDate:
		return 0, device.AcquireOutOfDate, nil
	default:
		return 0, device.AcquireSuccess, core.Internalf("vkAcquireNextImageKHR failed: %s", resultString(res))
	}
}

// Submit issues the frame's single queue submit: wait on image_available
// at color-attachment output, signal render_finished, fence in_flight.
// The timeline value is recorded against the fence.
func (d *Driver) Submit(frame int, timelineValue uint64) error {
	fs := &d.frames[frame]

	waitStageMask := []vk.PipelineStageFlags{
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{fs.imageAvailable},
		PWaitDstStageMask:    waitStageMask,
		CommandBufferCount:   uint32(len(fs.commandBuffers)),
		PCommandBuffers:      fs.commandBuffers,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{fs.renderFinished},
	}

	if res := vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fs.inFlight); res != vk.Success {
		return core.Internalf("vkQueueSubmit failed: %s", resultString(res))
	}

	d.timeline.record(timelineValue, frame)
	return nil
}

func (d *Driver) Present(frame int, imageIndex int) (device.PresentOutcome, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.frames[frame].renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{d.swapchainResources.swapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}

	res := vk.QueuePresent(d.presentQueue, &presentInfo)
	switch res {
	case vk.Success:
		return device.PresentSuccess, nil
	case vk.Suboptimal:
		return device.PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return device.PresentOutOfDate, nil
	default:
		return device.PresentSuccess, core.Internalf("vkQueuePresentKHR failed: %s", resultString(res))
	}
}

// TimelineCompleted reports the emulated timeline counter, folding in any
// fences that signaled since the last query.
func (d *Driver) TimelineCompleted() (uint64, error) {
	for frame := range d.frames {
		if d.frames[frame].inFlight == vk.NullFence {
			continue
		}
		if vk.GetFenceStatus(d.logicalDevice, d.frames[frame].inFlight) == vk.Success {
			d.timeline.harvestFrame(frame)
		}
	}
	return d.timeline.value(), nil
}
