package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
)

const (
	dedicatedGpuScore  = 200
	integratedGpuScore = 50
)

// deviceRating scores a physical device: discrete GPUs beat integrated
// ones, and anything without a graphics queue family that can present to
// the surface is rejected outright.
func deviceRating(physicalDevice vk.PhysicalDevice, surface vk.Surface) int32 {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()

	var score int32
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		score += dedicatedGpuScore
	case vk.PhysicalDeviceTypeIntegratedGpu:
		score += integratedGpuScore
	default:
		return 0
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, families)

	surfaceSupported := false
	for index := range families {
		families[index].Deref()
		if families[index].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(index), surface, &supported)
		if supported == vk.True {
			surfaceSupported = true
			break
		}
	}
	if !surfaceSupported {
		return 0
	}

	return score
}

func displayPhysicalDeviceProperties(physicalDevice vk.PhysicalDevice) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()

	core.LogDebug("%s:\n\tvendor_id: %d\n\tdevice_id: %d\n\tdevice_type: %d"+
		"\n\tmaxImageDimension2D: %d\n\tmaxSamplerAnisotropy: %f"+
		"\n\tmaxUniformBufferRange: %d\n\tmaxStorageBufferRange: %d"+
		"\n\tmaxPushConstantsSize: %d\n\tmaxMemoryAllocationCount: %d"+
		"\n\tmaxBoundDescriptorSets: %d\n\tmaxVertexInputAttributes: %d"+
		"\n\tmaxFramebufferWidth: %d\n\tmaxFramebufferHeight: %d"+
		"\n\tminUniformBufferOffsetAlignment: %d\n\tnonCoherentAtomSize: %d",
		vk.ToString(properties.DeviceName[:]), properties.VendorID, properties.DeviceID,
		properties.DeviceType,
		properties.Limits.MaxImageDimension2D, properties.Limits.MaxSamplerAnisotropy,
		properties.Limits.MaxUniformBufferRange, properties.Limits.MaxStorageBufferRange,
		properties.Limits.MaxPushConstantsSize, properties.Limits.MaxMemoryAllocationCount,
		properties.Limits.MaxBoundDescriptorSets, properties.Limits.MaxVertexInputAttributes,
		properties.Limits.MaxFramebufferWidth, properties.Limits.MaxFramebufferHeight,
		uint64(properties.Limits.MinUniformBufferOffsetAlignment), uint64(properties.Limits.NonCoherentAtomSize))
}

func (d *Driver) initializePhysicalDevice() error {
	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &deviceCount, nil); res != vk.Success || deviceCount == 0 {
		core.LogError("unable to enumerate physical devices")
		return core.Internalf("no vulkan physical devices")
	}
	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(d.instance, &deviceCount, physicalDevices)

	var (
		bestScore  int32
		bestDevice vk.PhysicalDevice
	)
	for _, candidate := range physicalDevices {
		displayPhysicalDeviceProperties(candidate)
		if score := deviceRating(candidate, d.surface); score > bestScore {
			bestScore = score
			bestDevice = candidate
		}
	}

	if bestScore <= 0 {
		core.LogError("unable to find a physical display device")
		return core.Internalf("no suitable physical device")
	}

	d.physicalDevice = bestDevice

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()
	d.deviceLimits = properties.Limits

	core.LogInfo("selected physical device %s (score %d)",
		vk.ToString(properties.DeviceName[:]), bestScore)
	return nil
}

// initializeQueueIndex finds a graphics family, preferring one that also
// presents; otherwise it scans every family for presentation support.
func (d *Driver) initializeQueueIndex() error {
	graphicsIndex, presentIndex, err := findGraphicsAndPresentQueueFamilyIndex(d.physicalDevice, d.surface)
	if err != nil {
		return err
	}
	d.graphicsQueueIndex = graphicsIndex
	d.presentQueueIndex = presentIndex
	d.separateQueues = graphicsIndex != presentIndex
	if d.separateQueues {
		core.LogInfo("graphics and present use separate queue families (%d, %d)", graphicsIndex, presentIndex)
	}
	return nil
}

func findGraphicsAndPresentQueueFamilyIndex(physicalDevice vk.PhysicalDevice, surface vk.Surface) (uint32, uint32, error) {
	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, families)

	graphicsIndex := uint32(familyCount)
	for index := range families {
		families[index].Deref()
		if families[index].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsIndex = uint32(index)
			break
		}
	}
	if graphicsIndex == familyCount {
		core.LogError("physical device has no graphics queue family")
		return 0, 0, core.Internalf("no graphics queue family")
	}

	var supported vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, graphicsIndex, surface, &supported)
	if supported == vk.True {
		return graphicsIndex, graphicsIndex, nil
	}

	for index := uint32(0); index < familyCount; index++ {
		vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, index, surface, &supported)
		if supported == vk.True {
			return graphicsIndex, index, nil
		}
	}

	core.LogError("unable to find graphics and present queues on physical display device")
	return 0, 0, core.Internalf("no presentation-capable queue family")
}
