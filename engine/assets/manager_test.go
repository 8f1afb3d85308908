package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

func writeDatabase(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetsdb.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validDatabase = `[
  {
    "id": 1,
    "type": "shader",
    "stages": [
      { "type": "vertex", "spirv": "shaders/tri.vert.spv", "meta": "shaders/tri.vert.json" },
      { "type": "fragment", "spirv": "shaders/tri.frag.spv", "meta": "shaders/tri.frag.json" }
    ]
  },
  {
    "id": 2,
    "type": "texture",
    "image": "textures/grid.png",
    "colour_space": "srgb",
    "mipmaps": true
  },
  {
    "id": 3,
    "type": "mesh",
    "source": "meshes/cube.bin",
    "submeshes": [
      { "name": "body", "first_index": 0, "index_count": 36, "material": 4 }
    ]
  },
  {
    "id": 4,
    "type": "material",
    "textures": [
      { "name": "albedo", "asset": 2, "sampler": "linear_wrap" }
    ],
    "parameters": [
      { "name": "roughness", "value": 0.5 }
    ]
  }
]`

func TestInitializeParsesAllAssetTypes(t *testing.T) {
	am := NewAssetManager(writeDatabase(t, validDatabase))
	require.NoError(t, am.Initialize())
	defer am.Close()

	shader, err := am.GetAsset(1)
	require.NoError(t, err)
	require.Equal(t, AssetTypeShader, shader.Type)
	require.NotNil(t, shader.Shader)
	assert.Len(t, shader.Shader.Stages, 2)
	assert.Equal(t, "shaders/tri.vert.spv", shader.Shader.Stages[renderer.ShaderStageVertex].SpirvPath)

	texture, err := am.GetAsset(2)
	require.NoError(t, err)
	require.NotNil(t, texture.Texture)
	assert.Equal(t, ColorSpaceSrgb, texture.Texture.ColorSpace)
	assert.True(t, texture.Texture.MipMaps)

	mesh, err := am.GetAsset(3)
	require.NoError(t, err)
	require.NotNil(t, mesh.Mesh)
	require.Len(t, mesh.Mesh.Submeshes, 1)
	assert.Equal(t, int64(36), mesh.Mesh.Submeshes[0].IndexCount)
	assert.Equal(t, AssetId(4), mesh.Mesh.Submeshes[0].Material)

	material, err := am.GetAsset(4)
	require.NoError(t, err)
	require.NotNil(t, material.Material)
	require.Len(t, material.Material.Textures, 1)
	assert.Equal(t, SamplerLinearWrap, material.Material.Textures[0].Sampler)
	require.Len(t, material.Material.Parameters, 1)
	assert.Equal(t, "roughness", material.Material.Parameters[0].Name)
}

func TestGetAssetUnknownId(t *testing.T) {
	am := NewAssetManager(writeDatabase(t, validDatabase))
	require.NoError(t, am.Initialize())
	defer am.Close()

	_, err := am.GetAsset(99)
	assert.Equal(t, core.NotFoundError, core.CodeOf(err))
}

func TestInitializeDuplicateId(t *testing.T) {
	db := `[
	  { "id": 42, "type": "texture", "image": "a.png", "colour_space": "srgb", "mipmaps": false },
	  { "id": 42, "type": "texture", "image": "b.png", "colour_space": "srgb", "mipmaps": false }
	]`
	am := NewAssetManager(writeDatabase(t, db))
	err := am.Initialize()
	require.Error(t, err)
	assert.Equal(t, core.SchemaError, core.CodeOf(err))

	// no partial state leaks
	_, err = am.GetAsset(42)
	assert.Equal(t, core.NotFoundError, core.CodeOf(err))
}

func TestInitializeMissingField(t *testing.T) {
	db := `[
	  { "id": 7, "type": "texture", "image": "a.png", "colour_space": "srgb" }
	]`
	am := NewAssetManager(writeDatabase(t, db))
	err := am.Initialize()
	require.Error(t, err)
	assert.Equal(t, core.SchemaError, core.CodeOf(err))
}

func TestInitializeWrongFieldKind(t *testing.T) {
	db := `[
	  { "id": 7, "type": "texture", "image": "a.png", "colour_space": "srgb", "mipmaps": "yes" }
	]`
	am := NewAssetManager(writeDatabase(t, db))
	assert.Equal(t, core.SchemaError, core.CodeOf(am.Initialize()))
}

func TestInitializeUnknownEnumSpelling(t *testing.T) {
	for _, db := range []string{
		`[ { "id": 1, "type": "sprite" } ]`,
		`[ { "id": 1, "type": "shader", "stages": [ { "type": "pixel", "spirv": "a", "meta": "b" } ] } ]`,
		`[ { "id": 1, "type": "material", "textures": [ { "name": "a", "asset": 2, "sampler": "trilinear" } ], "parameters": [] } ]`,
	} {
		am := NewAssetManager(writeDatabase(t, db))
		assert.Equal(t, core.SchemaError, core.CodeOf(am.Initialize()), db)
	}
}

func TestInitializeNonArrayRoot(t *testing.T) {
	am := NewAssetManager(writeDatabase(t, `{ "id": 1 }`))
	assert.Equal(t, core.InternalError, core.CodeOf(am.Initialize()))
}

func TestInitializeMissingFile(t *testing.T) {
	am := NewAssetManager(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, core.InternalError, core.CodeOf(am.Initialize()))
}

func TestInitializeIgnoresUnknownFields(t *testing.T) {
	db := `[
	  { "id": 1, "type": "texture", "image": "a.png", "colour_space": "linear",
	    "mipmaps": false, "comment": "ignored", "extra": [1,2,3] }
	]`
	am := NewAssetManager(writeDatabase(t, db))
	require.NoError(t, am.Initialize())
	defer am.Close()

	asset, err := am.GetAsset(1)
	require.NoError(t, err)
	assert.Equal(t, ColorSpaceLinear, asset.Texture.ColorSpace)
}

func TestWatcherFlagsDatabaseChange(t *testing.T) {
	path := writeDatabase(t, validDatabase)
	am := NewAssetManager(path)
	require.NoError(t, am.Initialize())
	defer am.Close()

	assert.False(t, am.Changed())
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for !am.Changed() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, am.Changed())
}
