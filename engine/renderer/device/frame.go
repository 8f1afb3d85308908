package device

import (
	"time"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

// noFrame marks a swapchain image that no frame fence is using.
const noFrame = -1

const fenceWaitPoll = 50 * time.Microsecond

// PrepareBuffers begins a frame: waits for the frame's in-flight fence by
// polling (never a blocking host wait on a worker), acquires the next
// swapchain image — rebuilding the swapchain when it is out of date — and
// resets the frame's fence and command pool.
func (d *Device) PrepareBuffers() error {
	initLane := d.strands.Lane(LaneInitialize)

	frame := scheduler.Sync(initLane, func() int { return d.currentFrame })

	if err := d.pollFence(frame); err != nil {
		return err
	}

	for {
		imageIndex, outcome, err := d.driver.AcquireNextImage(frame)
		if err != nil {
			core.LogError("unexpected acquire result: %v", err)
			return core.WrapInternal(err, "acquiring swapchain image")
		}

		switch outcome {
		case AcquireSuccess, AcquireSuboptimal:
			// another frame may still be rendering into this image
			otherFrame := scheduler.Sync(initLane, func() int { return d.imagesInFlight[imageIndex] })
			if otherFrame != noFrame && otherFrame != frame {
				if err := d.pollFence(otherFrame); err != nil {
					return err
				}
			}

			if err := d.driver.ResetFrame(frame); err != nil {
				return core.WrapInternal(err, "resetting frame %d", frame)
			}

			initLane.Do(func() {
				d.imagesInFlight[imageIndex] = frame
				d.currentImage = imageIndex
			})
			return nil

		case AcquireNotReady:
			time.Sleep(fenceWaitPoll)

		case AcquireOutOfDate:
			if err := d.updateSwapchain(); err != nil {
				return err
			}
		}
	}
}

// SwapBuffers submits the frame's command buffers — signalling the binary
// render-finished semaphore and the timeline semaphore — presents, and
// advances the frame counter.
func (d *Device) SwapBuffers() error {
	initLane := d.strands.Lane(LaneInitialize)

	var (
		frame      int
		imageIndex int
	)
	initLane.Do(func() {
		frame = d.currentFrame
		imageIndex = d.currentImage
	})

	if err := d.driver.Submit(frame, d.timelineValue.Load()); err != nil {
		core.LogError("queue submit failed: %v", err)
		return core.WrapInternal(err, "submitting frame %d", frame)
	}
	d.timelineValue.Add(1)

	outcome, err := d.driver.Present(frame, imageIndex)
	if err != nil {
		core.LogError("unexpected present result: %v", err)
		return core.WrapInternal(err, "presenting frame %d", frame)
	}

	switch outcome {
	case PresentOutOfDate, PresentSuboptimal:
		if err := d.updateSwapchain(); err != nil {
			return err
		}
	case PresentSuccess:
	}

	initLane.Do(func() {
		d.currentFrame = (d.currentFrame + 1) % d.driver.FrameCount()
	})
	return nil
}

// TimelineValue reports the value the next submit will signal.
func (d *Device) TimelineValue() uint64 {
	return d.timelineValue.Load()
}

// pollFence spins on the frame's in-flight fence with a steady timer so a
// stalled GPU never parks a worker thread in the driver.
func (d *Device) pollFence(frame int) error {
	for {
		signaled, err := d.driver.FenceSignaled(frame)
		if err != nil {
			return core.WrapInternal(err, "querying fence for frame %d", frame)
		}
		if signaled {
			return nil
		}
		time.Sleep(fenceWaitPoll)
	}
}

// updateSwapchain waits for the device to go idle, rebuilds render pass
// and swapchain and forgets stale per-image fence assignments.
func (d *Device) updateSwapchain() error {
	core.LogInfo("updating swapchain")

	if err := d.driver.WaitIdle(); err != nil {
		return core.WrapInternal(err, "waiting for device idle")
	}
	if err := d.driver.RecreateSwapchain(); err != nil {
		return core.WrapInternal(err, "recreating swapchain")
	}

	d.strands.Lane(LaneInitialize).Do(func() {
		d.resetImagesInFlight()
	})
	return nil
}
