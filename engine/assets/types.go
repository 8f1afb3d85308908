package assets

import (
	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

// AssetId is the stable 64-bit identifier of a database entry.
type AssetId = int64

type AssetType uint8

const (
	AssetTypeShader AssetType = iota
	AssetTypeTexture
	AssetTypeMesh
	AssetTypeMaterial
)

func (t AssetType) String() string {
	switch t {
	case AssetTypeShader:
		return "shader"
	case AssetTypeTexture:
		return "texture"
	case AssetTypeMesh:
		return "mesh"
	case AssetTypeMaterial:
		return "material"
	}
	return "unknown"
}

func assetTypeFromString(s string) (AssetType, error) {
	switch s {
	case "shader":
		return AssetTypeShader, nil
	case "texture":
		return AssetTypeTexture, nil
	case "mesh":
		return AssetTypeMesh, nil
	case "material":
		return AssetTypeMaterial, nil
	}
	return 0, core.SchemaErrorf("invalid asset type %q", s)
}

func shaderStageFromString(s string) (renderer.ShaderStage, error) {
	switch s {
	case "vertex":
		return renderer.ShaderStageVertex, nil
	case "fragment":
		return renderer.ShaderStageFragment, nil
	}
	return 0, core.SchemaErrorf("invalid shader stage %q", s)
}

// SamplerType names one of the engine's canned sampler configurations.
type SamplerType uint8

const (
	SamplerLinearWrap SamplerType = iota
	SamplerLinearClamp
	SamplerNearestWrap
	SamplerShadowCompare
)

func samplerTypeFromString(s string) (SamplerType, error) {
	switch s {
	case "linear_wrap":
		return SamplerLinearWrap, nil
	case "linear_clamp":
		return SamplerLinearClamp, nil
	case "nearest_wrap":
		return SamplerNearestWrap, nil
	case "shadow_compare":
		return SamplerShadowCompare, nil
	}
	return 0, core.SchemaErrorf("invalid sampler type %q", s)
}

type ColorSpace uint8

const (
	ColorSpaceSrgb ColorSpace = iota
	ColorSpaceLinear
)

func colorSpaceFromString(s string) (ColorSpace, error) {
	switch s {
	case "srgb":
		return ColorSpaceSrgb, nil
	case "linear":
		return ColorSpaceLinear, nil
	}
	return 0, core.SchemaErrorf("invalid colour space %q", s)
}

// ShaderStageDescriptor points at the SPIR-V blob and reflection metadata
// of one pipeline stage.
type ShaderStageDescriptor struct {
	SpirvPath string
	MetaPath  string
}

type ShaderDescriptor struct {
	Stages map[renderer.ShaderStage]ShaderStageDescriptor
}

type TextureDescriptor struct {
	ImagePath  string
	ColorSpace ColorSpace
	MipMaps    bool
}

type SubmeshDescriptor struct {
	Name       string
	FirstIndex int64
	IndexCount int64
	Material   AssetId
}

type MeshDescriptor struct {
	Source    string
	Submeshes []SubmeshDescriptor
}

type MaterialTextureDescriptor struct {
	Name         string
	TextureAsset AssetId
	Sampler      SamplerType
}

// MaterialParameter is a named scalar or string parameter of a material.
type MaterialParameter struct {
	Name  string
	Value interface{}
}

type MaterialDescriptor struct {
	Textures   []MaterialTextureDescriptor
	Parameters []MaterialParameter
}

// AssetDescriptor is the discriminated union of the four asset kinds.
// Exactly the field matching Type is non-nil; descriptors are immutable
// after a successful database load.
type AssetDescriptor struct {
	Type AssetType

	Shader   *ShaderDescriptor
	Texture  *TextureDescriptor
	Mesh     *MeshDescriptor
	Material *MaterialDescriptor
}
