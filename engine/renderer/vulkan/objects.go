package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

// buffer is the opaque object the device layer stores in a buffer slot.
type buffer struct {
	handle     vk.Buffer
	allocation *allocationInfo
	size       vk.DeviceSize
}

// image bundles the Vk image, its view and its memory.
type image struct {
	handle     vk.Image
	view       vk.ImageView
	allocation *allocationInfo
}

type sampler struct {
	handle vk.Sampler
}

type shaderModule struct {
	handle vk.ShaderModule
	stage  renderer.ShaderStage
}

func (d *Driver) CreateBuffer(descriptor renderer.BufferDescriptor) (interface{}, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(descriptor.Size),
		Usage:       toVkBufferUsage(descriptor.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(d.logicalDevice, &bufferCreateInfo, nil, &handle); res != vk.Success {
		return nil, core.Internalf("vkCreateBuffer failed: %s", resultString(res))
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logicalDevice, handle, &requirements)
	requirements.Deref()

	propertyFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if descriptor.Visibility == renderer.VisibilityHost {
		propertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit |
			vk.MemoryPropertyHostCoherentBit)
	}

	mapMemory, hint := hintFor(descriptor.Usage, descriptor.Visibility)

	allocation, err := d.allocator.allocate(requirements, propertyFlags, mapMemory, hint)
	if err != nil {
		vk.DestroyBuffer(d.logicalDevice, handle, nil)
		return nil, err
	}

	if res := vk.BindBufferMemory(d.logicalDevice, handle, allocation.memory, 0); res != vk.Success {
		d.allocator.free(allocation)
		vk.DestroyBuffer(d.logicalDevice, handle, nil)
		return nil, core.Internalf("vkBindBufferMemory failed: %s", resultString(res))
	}

	return &buffer{
		handle:     handle,
		allocation: allocation,
		size:       vk.DeviceSize(descriptor.Size),
	}, nil
}

func (d *Driver) DestroyBuffer(object interface{}) {
	b := object.(*buffer)
	vk.DestroyBuffer(d.logicalDevice, b.handle, nil)
	d.allocator.free(b.allocation)
	b.handle = vk.NullBuffer
}

func (d *Driver) CreateImage(descriptor renderer.ImageDescriptor) (interface{}, error) {
	tiling := vk.ImageTilingOptimal
	if descriptor.Visibility == renderer.VisibilityHost {
		tiling = vk.ImageTilingLinear
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    toVkFormat(descriptor.Format),
		Extent: vk.Extent3D{
			Width:  descriptor.Extent.Width,
			Height: descriptor.Extent.Height,
			Depth:  1,
		},
		MipLevels:     descriptor.MipLevels,
		ArrayLayers:   descriptor.Layers,
		Samples:       toVkSampleCount(descriptor.Samples),
		Tiling:        tiling,
		Usage:         toVkImageUsage(descriptor.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if descriptor.Type == renderer.ImageTypeCube {
		imageCreateInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	if res := vk.CreateImage(d.logicalDevice, &imageCreateInfo, nil, &handle); res != vk.Success {
		core.LogTrace("unable to allocate memory for image")
		return nil, core.Internalf("vkCreateImage failed: %s", resultString(res))
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logicalDevice, handle, &requirements)
	requirements.Deref()

	propertyFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if descriptor.Visibility == renderer.VisibilityHost {
		propertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit |
			vk.MemoryPropertyHostCoherentBit)
	}

	allocation, err := d.allocator.allocate(requirements, propertyFlags, false, accessNone)
	if err != nil {
		vk.DestroyImage(d.logicalDevice, handle, nil)
		return nil, err
	}

	if res := vk.BindImageMemory(d.logicalDevice, handle, allocation.memory, 0); res != vk.Success {
		d.allocator.free(allocation)
		vk.DestroyImage(d.logicalDevice, handle, nil)
		return nil, core.Internalf("vkBindImageMemory failed: %s", resultString(res))
	}

	aspectMask := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if descriptor.Usage.Has(renderer.ImageUsageDepthStencilAttachment) {
		aspectMask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	viewType := vk.ImageViewType2d
	if descriptor.Type == renderer.ImageTypeCube {
		viewType = vk.ImageViewTypeCube
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: viewType,
		Format:   imageCreateInfo.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectMask,
			LevelCount: descriptor.MipLevels,
			LayerCount: descriptor.Layers,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(d.logicalDevice, &viewCreateInfo, nil, &view); res != vk.Success {
		core.LogError("unable to create image view: %s", resultString(res))
		d.allocator.free(allocation)
		vk.DestroyImage(d.logicalDevice, handle, nil)
		return nil, core.Internalf("vkCreateImageView failed: %s", resultString(res))
	}

	return &image{
		handle:     handle,
		view:       view,
		allocation: allocation,
	}, nil
}

func (d *Driver) DestroyImage(object interface{}) {
	i := object.(*image)
	vk.DestroyImageView(d.logicalDevice, i.view, nil)
	vk.DestroyImage(d.logicalDevice, i.handle, nil)
	d.allocator.free(i.allocation)
	i.handle = vk.NullImage
}

// CreateSampler converts the descriptor directly; anisotropy validation
// and clamping happen in the device layer against Capabilities.
func (d *Driver) CreateSampler(descriptor renderer.SamplerDescriptor) (interface{}, error) {
	anisotropy := vk.Bool32(vk.False)
	if descriptor.AnisotropyEnabled {
		anisotropy = vk.True
	}
	compare := vk.Bool32(vk.False)
	if descriptor.CompareEnabled {
		compare = vk.True
	}

	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        toVkFilter(descriptor.MagnificationFilter),
		MinFilter:        toVkFilter(descriptor.MinificationFilter),
		MipmapMode:       toVkMipMapMode(descriptor.MipMapMode),
		AddressModeU:     toVkAddressMode(descriptor.AddressModeU),
		AddressModeV:     toVkAddressMode(descriptor.AddressModeV),
		AddressModeW:     toVkAddressMode(descriptor.AddressModeW),
		MipLodBias:       descriptor.MipLodBias,
		AnisotropyEnable: anisotropy,
		MaxAnisotropy:    descriptor.MaxAnisotropy,
		CompareEnable:    compare,
		CompareOp:        toVkCompareOp(descriptor.CompareOperation),
		MinLod:           descriptor.MinLod,
		MaxLod:           descriptor.MaxLod,
		BorderColor:      toVkBorderColor(descriptor.BorderColor),
	}

	var handle vk.Sampler
	if res := vk.CreateSampler(d.logicalDevice, &samplerCreateInfo, nil, &handle); res != vk.Success {
		core.LogError("unable to create sampler: %s", resultString(res))
		return nil, core.Internalf("vkCreateSampler failed: %s", resultString(res))
	}

	return &sampler{handle: handle}, nil
}

func (d *Driver) DestroySampler(object interface{}) {
	s := object.(*sampler)
	vk.DestroySampler(d.logicalDevice, s.handle, nil)
	s.handle = vk.NullSampler
}

func (d *Driver) CreateShaderModule(descriptor renderer.ShaderModuleDescriptor) (interface{}, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(descriptor.Spirv) * 4),
		PCode:    descriptor.Spirv,
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(d.logicalDevice, &createInfo, nil, &handle); res != vk.Success {
		core.LogError("unable to create shader module; stage: %s, error: %s",
			descriptor.Stage, resultString(res))
		return nil, core.Internalf("vkCreateShaderModule failed: %s", resultString(res))
	}

	return &shaderModule{handle: handle, stage: descriptor.Stage}, nil
}

func (d *Driver) DestroyShaderModule(object interface{}) {
	m := object.(*shaderModule)
	vk.DestroyShaderModule(d.logicalDevice, m.handle, nil)
	m.handle = vk.NullShaderModule
}
