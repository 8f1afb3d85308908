package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/renderer"
)

func toVkBufferUsage(usage renderer.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits

	if usage.Has(renderer.BufferUsageTransferSource) {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage.Has(renderer.BufferUsageTransferDestination) {
		flags |= vk.BufferUsageTransferDstBit
	}
	if usage.Has(renderer.BufferUsageReadOnlyTexel) {
		flags |= vk.BufferUsageUniformTexelBufferBit
	}
	if usage.Has(renderer.BufferUsageReadWriteTexel) {
		flags |= vk.BufferUsageStorageTexelBufferBit
	}
	if usage.Has(renderer.BufferUsageReadOnly) {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage.Has(renderer.BufferUsageReadWrite) {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage.Has(renderer.BufferUsageIndex) {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage.Has(renderer.BufferUsageVertex) {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage.Has(renderer.BufferUsageIndirect) {
		flags |= vk.BufferUsageIndirectBufferBit
	}

	return vk.BufferUsageFlags(flags)
}

func toVkImageUsage(usage renderer.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits

	if usage.Has(renderer.ImageUsageTransferSource) {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if usage.Has(renderer.ImageUsageTransferDestination) {
		flags |= vk.ImageUsageTransferDstBit
	}
	if usage.Has(renderer.ImageUsageSampled) {
		flags |= vk.ImageUsageSampledBit
	}
	if usage.Has(renderer.ImageUsageColorAttachment) {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if usage.Has(renderer.ImageUsageDepthStencilAttachment) {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}

	return vk.ImageUsageFlags(flags)
}

func toVkFormat(format renderer.Format) vk.Format {
	switch format {
	case renderer.FormatUndefined:
		return vk.FormatUndefined
	case renderer.FormatRgba8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case renderer.FormatRgba8Snorm:
		return vk.FormatR8g8b8a8Snorm
	case renderer.FormatRgba8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case renderer.FormatRg32Sfloat:
		return vk.FormatR32g32Sfloat
	case renderer.FormatRgb32Sfloat:
		return vk.FormatR32g32b32Sfloat
	case renderer.FormatRgba32Uint:
		return vk.FormatR32g32b32a32Uint
	case renderer.FormatBgra8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case renderer.FormatDepth32Sfloat:
		return vk.FormatD32Sfloat
	case renderer.FormatDepth24UnormStencil8Uint:
		return vk.FormatD24UnormS8Uint
	case renderer.FormatDepth32SfloatStencil8Uint:
		return vk.FormatD32SfloatS8Uint
	}
	return vk.FormatUndefined
}

func toVkSampleCount(samples renderer.ImageSamples) vk.SampleCountFlagBits {
	switch samples {
	case renderer.Samples1:
		return vk.SampleCount1Bit
	case renderer.Samples2:
		return vk.SampleCount2Bit
	case renderer.Samples4:
		return vk.SampleCount4Bit
	case renderer.Samples8:
		return vk.SampleCount8Bit
	case renderer.Samples16:
		return vk.SampleCount16Bit
	case renderer.Samples32:
		return vk.SampleCount32Bit
	case renderer.Samples64:
		return vk.SampleCount64Bit
	}
	return vk.SampleCount1Bit
}

func toVkFilter(filter renderer.SamplerFilter) vk.Filter {
	switch filter {
	case renderer.FilterNearest:
		return vk.FilterNearest
	case renderer.FilterLinear:
		return vk.FilterLinear
	case renderer.FilterCubic:
		return vk.FilterCubicImg
	}
	return vk.FilterNearest
}

func toVkMipMapMode(mode renderer.SamplerMipMapMode) vk.SamplerMipmapMode {
	switch mode {
	case renderer.MipMapModeNearest:
		return vk.SamplerMipmapModeNearest
	case renderer.MipMapModeLinear:
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func toVkAddressMode(mode renderer.SamplerAddressMode) vk.SamplerAddressMode {
	switch mode {
	case renderer.AddressModeRepeat:
		return vk.SamplerAddressModeRepeat
	case renderer.AddressModeMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case renderer.AddressModeClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case renderer.AddressModeClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case renderer.AddressModeMirrorClampToEdge:
		return vk.SamplerAddressModeMirrorClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

func toVkCompareOp(operation renderer.CompareOperation) vk.CompareOp {
	switch operation {
	case renderer.CompareNever:
		return vk.CompareOpNever
	case renderer.CompareLess:
		return vk.CompareOpLess
	case renderer.CompareEqual:
		return vk.CompareOpEqual
	case renderer.CompareLessOrEqual:
		return vk.CompareOpLessOrEqual
	case renderer.CompareGreater:
		return vk.CompareOpGreater
	case renderer.CompareNotEqual:
		return vk.CompareOpNotEqual
	case renderer.CompareGreaterOrEqual:
		return vk.CompareOpGreaterOrEqual
	case renderer.CompareAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpNever
}

func toVkBorderColor(color renderer.BorderColor) vk.BorderColor {
	switch color {
	case renderer.BorderColorFloatOpaqueBlack:
		return vk.BorderColorFloatOpaqueBlack
	}
	return vk.BorderColorFloatOpaqueBlack
}

func resultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorMemoryMapFailed:
		return "VK_ERROR_MEMORY_MAP_FAILED"
	case vk.ErrorLayerNotPresent:
		return "VK_ERROR_LAYER_NOT_PRESENT"
	case vk.ErrorExtensionNotPresent:
		return "VK_ERROR_EXTENSION_NOT_PRESENT"
	case vk.ErrorFeatureNotPresent:
		return "VK_ERROR_FEATURE_NOT_PRESENT"
	case vk.ErrorIncompatibleDriver:
		return "VK_ERROR_INCOMPATIBLE_DRIVER"
	case vk.ErrorFormatNotSupported:
		return "VK_ERROR_FORMAT_NOT_SUPPORTED"
	case vk.ErrorSurfaceLost:
		return "VK_ERROR_SURFACE_LOST_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	default:
		return "VK_UNKNOWN"
	}
}
