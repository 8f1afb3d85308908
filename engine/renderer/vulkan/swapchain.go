package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
)

// initializeSurfaceFormat picks among the surface's reported formats,
// preferring the BGRA/RGBA 8-bit unorm family with the sRGB nonlinear
// color space.
func (d *Driver) initializeSurfaceFormat() error {
	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &formatCount, nil)
	if formatCount == 0 {
		core.LogError("surface reports no formats")
		return core.Internalf("no surface formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}

	preferred := []vk.Format{
		vk.FormatB8g8r8a8Unorm,
		vk.FormatR8g8b8a8Unorm,
		vk.FormatB8g8r8Unorm,
		vk.FormatR8g8b8Unorm,
	}

	if formatCount == 1 && formats[0].Format == vk.FormatUndefined {
		d.surfaceFormat = vk.SurfaceFormat{
			Format:     vk.FormatB8g8r8a8Unorm,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}
		return nil
	}

	picked := formats[0]
	found := false
	for _, want := range preferred {
		for _, format := range formats {
			if format.Format == want && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
				picked = format
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	d.surfaceFormat = picked
	return nil
}

// initializePrimaryRenderPass builds the single-color-attachment pass the
// swapchain framebuffers target: clear on load, store on write, present
// layout on exit, with an external dependency on color-attachment output.
func (d *Driver) initializePrimaryRenderPass() error {
	attachments := []vk.AttachmentDescription{{
		Format:         d.surfaceFormat.Format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(d.logicalDevice, &renderPassCreateInfo, nil, &renderPass); res != vk.Success {
		core.LogError("unable to create primary render pass: %s", resultString(res))
		return core.Internalf("vkCreateRenderPass failed: %s", resultString(res))
	}
	d.renderPass = renderPass
	return nil
}

func (d *Driver) initializeSwapchain() error {
	// the surface has no usable extent while the window is minimized
	for {
		extent := d.window.PixelExtent()
		if extent.Width != 0 && extent.Height != 0 {
			break
		}
		d.window.PollEvents()
	}

	var surfaceCapabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &surfaceCapabilities); res != vk.Success {
		core.LogError("unable to query surface capabilities: %s", resultString(res))
		return core.Internalf("vkGetPhysicalDeviceSurfaceCapabilitiesKHR failed: %s", resultString(res))
	}
	surfaceCapabilities.Deref()
	surfaceCapabilities.CurrentExtent.Deref()
	surfaceCapabilities.MinImageExtent.Deref()
	surfaceCapabilities.MaxImageExtent.Deref()

	swapchainExtent := surfaceCapabilities.CurrentExtent
	if swapchainExtent.Width == math.MaxUint32 {
		// surface size undefined: take the window's pixel extent, clamped
		windowExtent := d.window.PixelExtent()
		swapchainExtent.Width = clampUint32(windowExtent.Width,
			surfaceCapabilities.MinImageExtent.Width, surfaceCapabilities.MaxImageExtent.Width)
		swapchainExtent.Height = clampUint32(windowExtent.Height,
			surfaceCapabilities.MinImageExtent.Height, surfaceCapabilities.MaxImageExtent.Height)
	}

	preTransform := surfaceCapabilities.CurrentTransform
	if surfaceCapabilities.SupportedTransforms&vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit) != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	switch {
	case surfaceCapabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(vk.CompositeAlphaPreMultipliedBit) != 0:
		compositeAlpha = vk.CompositeAlphaPreMultipliedBit
	case surfaceCapabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(vk.CompositeAlphaPostMultipliedBit) != 0:
		compositeAlpha = vk.CompositeAlphaPostMultipliedBit
	case surfaceCapabilities.SupportedCompositeAlpha&vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit) != 0:
		compositeAlpha = vk.CompositeAlphaInheritBit
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &presentModeCount, presentModes)

	presentMode := vk.PresentModeFifo
	for _, mode := range presentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
		if mode == vk.PresentModeImmediate {
			presentMode = mode
		}
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    surfaceCapabilities.MinImageCount,
		ImageFormat:      d.surfaceFormat.Format,
		ImageColorSpace:  d.surfaceFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage: vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit |
			vk.ImageUsageTransferSrcBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if d.separateQueues {
		queueFamilyIndices := []uint32{d.graphicsQueueIndex, d.presentQueueIndex}
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = uint32(len(queueFamilyIndices))
		swapchainCreateInfo.PQueueFamilyIndices = queueFamilyIndices
	}

	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.logicalDevice, &swapchainCreateInfo, nil, &swapchain); res != vk.Success {
		core.LogError("unable to create swapchain: %s", resultString(res))
		return core.Internalf("vkCreateSwapchainKHR failed: %s", resultString(res))
	}
	d.swapchainResources.swapchain = swapchain
	d.swapchainResources.extent = swapchainExtent

	var imageCount uint32
	vk.GetSwapchainImages(d.logicalDevice, swapchain, &imageCount, nil)
	d.swapchainResources.images = make([]vk.Image, imageCount)
	vk.GetSwapchainImages(d.logicalDevice, swapchain, &imageCount, d.swapchainResources.images)

	for _, image := range d.swapchainResources.images {
		viewCreateInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   d.surfaceFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}

		var view vk.ImageView
		if res := vk.CreateImageView(d.logicalDevice, &viewCreateInfo, nil, &view); res != vk.Success {
			core.LogError("unable to create swapchain image view: %s", resultString(res))
			return core.Internalf("vkCreateImageView failed: %s", resultString(res))
		}
		d.swapchainResources.views = append(d.swapchainResources.views, view)
	}

	for _, view := range d.swapchainResources.views {
		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      d.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           swapchainExtent.Width,
			Height:          swapchainExtent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if res := vk.CreateFramebuffer(d.logicalDevice, &framebufferCreateInfo, nil, &framebuffer); res != vk.Success {
			core.LogError("unable to create swapchain framebuffer: %s", resultString(res))
			return core.Internalf("vkCreateFramebuffer failed: %s", resultString(res))
		}
		d.swapchainResources.framebuffers = append(d.swapchainResources.framebuffers, framebuffer)
	}

	// acquire semaphores may be stale after a rebuild
	for i := range d.frames {
		frame := &d.frames[i]
		if frame.imageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(d.logicalDevice, frame.imageAvailable, nil)
		}
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		var semaphore vk.Semaphore
		if res := vk.CreateSemaphore(d.logicalDevice, &semaphoreCreateInfo, nil, &semaphore); res != vk.Success {
			core.LogError("unable to create image available semaphore: %s", resultString(res))
			return core.Internalf("vkCreateSemaphore failed: %s", resultString(res))
		}
		frame.imageAvailable = semaphore
	}

	core.LogInfo("swapchain created; extent: %dx%d, images: %d, present_mode: %d",
		swapchainExtent.Width, swapchainExtent.Height, imageCount, presentMode)
	return nil
}

func (d *Driver) cleanupSwapchain() {
	for _, framebuffer := range d.swapchainResources.framebuffers {
		vk.DestroyFramebuffer(d.logicalDevice, framebuffer, nil)
	}
	d.swapchainResources.framebuffers = nil

	for _, view := range d.swapchainResources.views {
		vk.DestroyImageView(d.logicalDevice, view, nil)
	}
	d.swapchainResources.views = nil
	d.swapchainResources.images = nil

	if d.swapchainResources.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.logicalDevice, d.swapchainResources.swapchain, nil)
		d.swapchainResources.swapchain = vk.NullSwapchain
	}
}

func (d *Driver) cleanupRenderPass() {
	if d.renderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(d.logicalDevice, d.renderPass, nil)
		d.renderPass = vk.NullRenderPass
	}
}
