// Package renderer declares the public rendering-device contract and the
// wire types shared by the device implementation, the Vulkan driver and the
// rendering server.
package renderer

import "github.com/spaghettifunk/gravity/engine/core"

// Handle addresses an entry in a slotted allocator. A handle is stale once
// the slot's generation has moved past it; stale handles are rejected.
// Index must never be interpreted as a raw offset by callers.
type Handle struct {
	Index      uint32
	Generation uint32
}

type (
	BufferHandle       Handle
	ImageHandle        Handle
	SamplerHandle      Handle
	ShaderModuleHandle Handle
)

// BufferUsage is a bitmask of buffer capabilities.
type BufferUsage uint16

const (
	BufferUsageTransferSource BufferUsage = 1 << iota
	BufferUsageTransferDestination
	BufferUsageReadOnlyTexel
	BufferUsageReadWriteTexel
	BufferUsageReadOnly
	BufferUsageReadWrite
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageIndirect
)

func (u BufferUsage) Has(flag BufferUsage) bool { return u&flag != 0 }

// Visibility selects the memory domain of a buffer or image.
type Visibility uint8

const (
	VisibilityHost Visibility = iota
	VisibilityDevice
)

func (v Visibility) String() string {
	if v == VisibilityHost {
		return "host"
	}
	return "device"
}

type ImageType uint8

const (
	ImageTypeLinear ImageType = iota
	ImageTypePlane
	ImageTypeCube
)

type ImageSamples uint8

const (
	Samples1 ImageSamples = iota
	Samples2
	Samples4
	Samples8
	Samples16
	Samples32
	Samples64
)

type ImageUsage uint8

const (
	ImageUsageTransferSource ImageUsage = 1 << iota
	ImageUsageTransferDestination
	ImageUsageSampled
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

func (u ImageUsage) Has(flag ImageUsage) bool { return u&flag != 0 }

type Format uint8

const (
	FormatUndefined Format = iota
	FormatRgba8Unorm
	FormatRgba8Snorm
	FormatRgba8Srgb
	FormatRg32Sfloat
	FormatRgb32Sfloat
	FormatRgba32Uint
	FormatBgra8Unorm
	FormatDepth32Sfloat
	FormatDepth24UnormStencil8Uint
	FormatDepth32SfloatStencil8Uint
)

type SamplerFilter uint8

const (
	FilterNearest SamplerFilter = iota
	FilterLinear
	FilterCubic
)

type SamplerMipMapMode uint8

const (
	MipMapModeNearest SamplerMipMapMode = iota
	MipMapModeLinear
)

type SamplerAddressMode uint8

const (
	AddressModeRepeat SamplerAddressMode = iota
	AddressModeMirroredRepeat
	AddressModeClampToEdge
	AddressModeClampToBorder
	AddressModeMirrorClampToEdge
)

type CompareOperation uint8

const (
	CompareNever CompareOperation = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

type BorderColor uint8

const (
	BorderColorFloatOpaqueBlack BorderColor = iota
)

// ShaderStage identifies a pipeline stage. Declared as flag bits so stage
// sets can be expressed as masks.
type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
	ShaderStageCompute
	ShaderStageGeometry
	ShaderStageTesselationControl
	ShaderStageTesselationEvaluation
)

// ShaderStages lists every stage in iteration order. Loaders walk this and
// skip stages a descriptor does not declare.
func ShaderStages() []ShaderStage {
	return []ShaderStage{
		ShaderStageVertex,
		ShaderStageFragment,
		ShaderStageCompute,
		ShaderStageGeometry,
		ShaderStageTesselationControl,
		ShaderStageTesselationEvaluation,
	}
}

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageCompute:
		return "compute"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageTesselationControl:
		return "tesselation_control"
	case ShaderStageTesselationEvaluation:
		return "tesselation_evaluation"
	}
	return "unknown"
}

// Extent2D is a pixel extent reported by the window collaborator.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// BufferDescriptor describes a device buffer to create.
type BufferDescriptor struct {
	Size       uint64
	Usage      BufferUsage
	Visibility Visibility
}

// ImageDescriptor describes a device image. Images are 2D unless Type says
// otherwise; Cube images get a cube-compatible allocation and view.
type ImageDescriptor struct {
	Type       ImageType
	Format     Format
	Extent     Extent2D
	MipLevels  uint32
	Layers     uint32
	Samples    ImageSamples
	Usage      ImageUsage
	Visibility Visibility
}

// SamplerDescriptor describes an immutable sampler.
type SamplerDescriptor struct {
	MagnificationFilter SamplerFilter
	MinificationFilter  SamplerFilter
	MipMapMode          SamplerMipMapMode
	AddressModeU        SamplerAddressMode
	AddressModeV        SamplerAddressMode
	AddressModeW        SamplerAddressMode
	MipLodBias          float32
	AnisotropyEnabled   bool
	MaxAnisotropy       float32
	CompareEnabled      bool
	CompareOperation    CompareOperation
	MinLod              float32
	MaxLod              float32
	BorderColor         BorderColor
}

// ShaderModuleDescriptor keys the shader-module cache by stage and SPIR-V
// content hash, not by module identity.
type ShaderModuleDescriptor struct {
	Stage ShaderStage
	Spirv []uint32
	Hash  core.Digest
}

// CacheKey folds the stage into the content hash.
func (d ShaderModuleDescriptor) CacheKey() uint64 {
	return core.HashCombine(uint64(d.Stage), d.Hash)
}

// RenderingDevice is the public contract of the GPU object store.
type RenderingDevice interface {
	Initialize() error
	Shutdown() error

	PrepareBuffers() error
	SwapBuffers() error

	CreateBuffer(descriptor BufferDescriptor) (BufferHandle, error)
	DestroyBuffer(handle BufferHandle) error

	CreateImage(descriptor ImageDescriptor) (ImageHandle, error)
	DestroyImage(handle ImageHandle) error

	CreateSampler(descriptor SamplerDescriptor) (SamplerHandle, error)
	DestroySampler(handle SamplerHandle) error

	CreateShaderModule(descriptor ShaderModuleDescriptor) (ShaderModuleHandle, error)
	DestroyShaderModule(handle ShaderModuleHandle) error
}
