package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
)

// requiredDeviceFeatures intersects the engine's wishlist with what the
// device reports. Anything unsupported is simply left disabled.
func requiredDeviceFeatures(physicalDevice vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var available vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &available)
	available.Deref()

	var enabled vk.PhysicalDeviceFeatures
	enableIf := func(target *vk.Bool32, supported vk.Bool32) {
		if supported == vk.True {
			*target = vk.True
		}
	}

	enableIf(&enabled.FullDrawIndexUint32, available.FullDrawIndexUint32)
	enableIf(&enabled.ImageCubeArray, available.ImageCubeArray)
	enableIf(&enabled.IndependentBlend, available.IndependentBlend)
	enableIf(&enabled.GeometryShader, available.GeometryShader)
	enableIf(&enabled.TessellationShader, available.TessellationShader)
	enableIf(&enabled.SampleRateShading, available.SampleRateShading)
	enableIf(&enabled.DualSrcBlend, available.DualSrcBlend)
	enableIf(&enabled.LogicOp, available.LogicOp)
	enableIf(&enabled.MultiDrawIndirect, available.MultiDrawIndirect)
	enableIf(&enabled.DrawIndirectFirstInstance, available.DrawIndirectFirstInstance)
	enableIf(&enabled.DepthClamp, available.DepthClamp)
	enableIf(&enabled.DepthBiasClamp, available.DepthBiasClamp)
	enableIf(&enabled.FillModeNonSolid, available.FillModeNonSolid)
	enableIf(&enabled.DepthBounds, available.DepthBounds)
	enableIf(&enabled.WideLines, available.WideLines)
	enableIf(&enabled.LargePoints, available.LargePoints)
	enableIf(&enabled.AlphaToOne, available.AlphaToOne)
	enableIf(&enabled.MultiViewport, available.MultiViewport)
	enableIf(&enabled.SamplerAnisotropy, available.SamplerAnisotropy)
	enableIf(&enabled.TextureCompressionETC2, available.TextureCompressionETC2)
	enableIf(&enabled.TextureCompressionASTC_LDR, available.TextureCompressionASTC_LDR)
	enableIf(&enabled.TextureCompressionBC, available.TextureCompressionBC)
	enableIf(&enabled.VertexPipelineStoresAndAtomics, available.VertexPipelineStoresAndAtomics)
	enableIf(&enabled.FragmentStoresAndAtomics, available.FragmentStoresAndAtomics)
	enableIf(&enabled.ShaderTessellationAndGeometryPointSize, available.ShaderTessellationAndGeometryPointSize)
	enableIf(&enabled.ShaderImageGatherExtended, available.ShaderImageGatherExtended)
	enableIf(&enabled.ShaderStorageImageExtendedFormats, available.ShaderStorageImageExtendedFormats)
	enableIf(&enabled.ShaderStorageImageReadWithoutFormat, available.ShaderStorageImageReadWithoutFormat)
	enableIf(&enabled.ShaderStorageImageWriteWithoutFormat, available.ShaderStorageImageWriteWithoutFormat)
	enableIf(&enabled.ShaderUniformBufferArrayDynamicIndexing, available.ShaderUniformBufferArrayDynamicIndexing)
	enableIf(&enabled.ShaderSampledImageArrayDynamicIndexing, available.ShaderSampledImageArrayDynamicIndexing)
	enableIf(&enabled.ShaderStorageBufferArrayDynamicIndexing, available.ShaderStorageBufferArrayDynamicIndexing)
	enableIf(&enabled.ShaderStorageImageArrayDynamicIndexing, available.ShaderStorageImageArrayDynamicIndexing)
	enableIf(&enabled.ShaderClipDistance, available.ShaderClipDistance)
	enableIf(&enabled.ShaderCullDistance, available.ShaderCullDistance)
	enableIf(&enabled.ShaderFloat64, available.ShaderFloat64)
	enableIf(&enabled.ShaderInt64, available.ShaderInt64)
	enableIf(&enabled.ShaderInt16, available.ShaderInt16)
	enableIf(&enabled.ShaderResourceMinLod, available.ShaderResourceMinLod)
	enableIf(&enabled.VariableMultisampleRate, available.VariableMultisampleRate)

	return enabled
}

// requiredDeviceExtensions maps device extension name to mandatory.
func (d *Driver) requiredDeviceExtensions() map[string]bool {
	extensions := map[string]bool{
		"VK_KHR_swapchain": true,
	}
	if d.enabledInstanceExtensions["VK_KHR_get_physical_device_properties2"] {
		extensions["VK_KHR_maintenance2"] = false
		extensions["VK_KHR_multiview"] = false
		extensions["VK_KHR_create_renderpass2"] = false
		extensions["VK_KHR_timeline_semaphore"] = false
	}
	return extensions
}

func (d *Driver) initializeLogicalDevice() error {
	queuePriorities := []float32{1.0}

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: queuePriorities,
	}}
	if d.separateQueues {
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.presentQueueIndex,
			QueueCount:       1,
			PQueuePriorities: queuePriorities,
		})
	}

	var extensionCount uint32
	vk.EnumerateDeviceExtensionProperties(d.physicalDevice, "", &extensionCount, nil)
	availableExtensions := make([]vk.ExtensionProperties, extensionCount)
	vk.EnumerateDeviceExtensionProperties(d.physicalDevice, "", &extensionCount, availableExtensions)

	availableExtensionNames := map[string]bool{}
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		availableExtensionNames[vk.ToString(availableExtensions[i].ExtensionName[:])] = true
	}

	var enabledExtensions []string
	for name, required := range d.requiredDeviceExtensions() {
		if !availableExtensionNames[name] {
			if required {
				core.LogError("required vulkan device extension (%s) is not supported", name)
				return core.Internalf("missing required device extension %s", name)
			}
			core.LogWarn("failed to enable a requested vulkan device extension (%s)", name)
			continue
		}
		d.enabledDeviceExtensions[name] = true
		enabledExtensions = append(enabledExtensions, name)
	}

	if !d.enabledDeviceExtensions["VK_KHR_timeline_semaphore"] {
		core.LogWarn("timelineSemaphore feature not supported by this device")
	}

	d.features = requiredDeviceFeatures(d.physicalDevice)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: safeStrings(enabledExtensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{d.features},
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(d.physicalDevice, &deviceCreateInfo, nil, &logicalDevice); res != vk.Success {
		core.LogError("failed to create logical device, vk error: %s", resultString(res))
		return core.Internalf("vkCreateDevice failed: %s", resultString(res))
	}
	d.logicalDevice = logicalDevice

	core.LogInfo("logical device created")
	return nil
}

func (d *Driver) initializeQueues() error {
	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(d.logicalDevice, d.graphicsQueueIndex, 0, &graphicsQueue)
	if graphicsQueue == nil {
		core.LogError("unable to get graphics queue from logical device")
		return core.Internalf("missing graphics queue")
	}
	d.graphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(d.logicalDevice, d.presentQueueIndex, 0, &presentQueue)
	if presentQueue == nil {
		core.LogError("unable to get present queue from logical device")
		return core.Internalf("missing present queue")
	}
	d.presentQueue = presentQueue

	core.LogInfo("queues obtained")
	return nil
}

func (d *Driver) initializeAllocator() error {
	d.allocator = newMemoryAllocator(d.physicalDevice, d.logicalDevice)
	return nil
}
