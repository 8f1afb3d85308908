package vulkan

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

// accessHint records how host-visible memory is expected to be touched.
// It mirrors the allocation-hint table of the buffer creation contract.
type accessHint uint8

const (
	accessNone accessHint = iota
	accessSequentialWrite
	accessRandom
)

// allocationInfo describes one device-memory block bound to a buffer or
// image.
type allocationInfo struct {
	memory vk.DeviceMemory
	size   vk.DeviceSize
	mapped unsafe.Pointer
	hint   accessHint
}

// memoryAllocator hands out dedicated device-memory blocks. It is safe to
// call from any strand. Dedicated allocations keep the bookkeeping
// trivial; suballocation can slot in behind the same interface.
type memoryAllocator struct {
	physicalDevice vk.PhysicalDevice
	device         vk.Device

	mu          sync.Mutex
	allocations int
	totalBytes  vk.DeviceSize
}

func newMemoryAllocator(physicalDevice vk.PhysicalDevice, device vk.Device) *memoryAllocator {
	return &memoryAllocator{
		physicalDevice: physicalDevice,
		device:         device,
	}
}

// findMemoryIndex picks a memory type matching the filter and property
// flags, or -1.
func (a *memoryAllocator) findMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(a.physicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 &&
			memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("unable to find suitable memory type (filter %#x, flags %#x)", typeFilter, propertyFlags)
	return -1
}

// hintFor derives the mapping and access hints from the visibility and
// transfer direction of a buffer.
func hintFor(usage renderer.BufferUsage, visibility renderer.Visibility) (mapMemory bool, hint accessHint) {
	isSource := usage.Has(renderer.BufferUsageTransferSource)
	isDestination := usage.Has(renderer.BufferUsageTransferDestination)

	if visibility == renderer.VisibilityHost {
		mapMemory = true
	}

	switch {
	case isSource && !isDestination:
		hint = accessSequentialWrite
	case !isSource && isDestination:
		hint = accessRandom
	default:
		hint = accessNone
	}
	return mapMemory, hint
}

// allocate binds a fresh memory block satisfying requirements and, when
// asked, maps it persistently.
func (a *memoryAllocator) allocate(requirements vk.MemoryRequirements, propertyFlags vk.MemoryPropertyFlags, mapMemory bool, hint accessHint) (*allocationInfo, error) {
	memoryIndex := a.findMemoryIndex(requirements.MemoryTypeBits, propertyFlags)
	if memoryIndex < 0 {
		return nil, core.Internalf("no memory type for filter %#x, flags %#x",
			requirements.MemoryTypeBits, propertyFlags)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(a.device, &allocateInfo, nil, &memory); res != vk.Success {
		return nil, core.Internalf("vkAllocateMemory failed: %s", resultString(res))
	}

	allocation := &allocationInfo{
		memory: memory,
		size:   requirements.Size,
		hint:   hint,
	}

	if mapMemory {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(a.device, memory, 0, requirements.Size, 0, &mapped); res != vk.Success {
			vk.FreeMemory(a.device, memory, nil)
			return nil, core.Internalf("vkMapMemory failed: %s", resultString(res))
		}
		allocation.mapped = mapped
	}

	a.mu.Lock()
	a.allocations++
	a.totalBytes += requirements.Size
	a.mu.Unlock()

	return allocation, nil
}

func (a *memoryAllocator) free(allocation *allocationInfo) {
	if allocation == nil || allocation.memory == vk.NullDeviceMemory {
		return
	}
	if allocation.mapped != nil {
		vk.UnmapMemory(a.device, allocation.memory)
		allocation.mapped = nil
	}
	vk.FreeMemory(a.device, allocation.memory, nil)

	a.mu.Lock()
	a.allocations--
	a.totalBytes -= allocation.size
	a.mu.Unlock()

	allocation.memory = vk.NullDeviceMemory
}
