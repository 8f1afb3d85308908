package servers

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/gravity/engine/assets"
	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
	"github.com/spaghettifunk/gravity/engine/resources"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

// fakeDevice implements renderer.RenderingDevice with a content-hash
// shader cache, mirroring the real device's aliasing behavior.
type fakeDevice struct {
	mu sync.Mutex

	moduleCreates  int
	moduleDestroys int
	modules        map[uint64]renderer.ShaderModuleHandle
	refCounts      map[uint32]int
	nextIndex      uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		modules:   make(map[uint64]renderer.ShaderModuleHandle),
		refCounts: make(map[uint32]int),
	}
}

func (f *fakeDevice) Initialize() error     { return nil }
func (f *fakeDevice) Shutdown() error       { return nil }
func (f *fakeDevice) PrepareBuffers() error { return nil }
func (f *fakeDevice) SwapBuffers() error    { return nil }

func (f *fakeDevice) CreateBuffer(renderer.BufferDescriptor) (renderer.BufferHandle, error) {
	return renderer.BufferHandle{}, nil
}
func (f *fakeDevice) DestroyBuffer(renderer.BufferHandle) error { return nil }
func (f *fakeDevice) CreateImage(renderer.ImageDescriptor) (renderer.ImageHandle, error) {
	return renderer.ImageHandle{}, nil
}
func (f *fakeDevice) DestroyImage(renderer.ImageHandle) error { return nil }
func (f *fakeDevice) CreateSampler(renderer.SamplerDescriptor) (renderer.SamplerHandle, error) {
	return renderer.SamplerHandle{}, nil
}
func (f *fakeDevice) DestroySampler(renderer.SamplerHandle) error { return nil }

func (f *fakeDevice) CreateShaderModule(descriptor renderer.ShaderModuleDescriptor) (renderer.ShaderModuleHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := descriptor.CacheKey()
	if handle, ok := f.modules[key]; ok {
		f.refCounts[handle.Index]++
		return handle, nil
	}

	f.moduleCreates++
	handle := renderer.ShaderModuleHandle{Index: f.nextIndex}
	f.nextIndex++
	f.modules[key] = handle
	f.refCounts[handle.Index] = 1
	return handle, nil
}

func (f *fakeDevice) DestroyShaderModule(handle renderer.ShaderModuleHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	count, ok := f.refCounts[handle.Index]
	if !ok || count <= 0 {
		return core.InvalidArgumentf("destroy of unknown shader module %d", handle.Index)
	}
	f.refCounts[handle.Index] = count - 1
	if count == 1 {
		f.moduleDestroys++
		for key, cached := range f.modules {
			if cached.Index == handle.Index {
				delete(f.modules, key)
			}
		}
	}
	return nil
}

func (f *fakeDevice) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moduleCreates
}

func (f *fakeDevice) aliveModules() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	alive := 0
	for _, count := range f.refCounts {
		if count > 0 {
			alive++
		}
	}
	return alive
}

type serverFixture struct {
	sched  *scheduler.Scheduler
	device *fakeDevice
	server *RenderingServer
	dir    string
}

func newServerFixture(t *testing.T, database string) *serverFixture {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assetsdb.json"), []byte(database), 0o644))

	sched := scheduler.New(4)
	t.Cleanup(sched.Shutdown)

	assetManager := assets.NewAssetManager(filepath.Join(dir, "assetsdb.json"))
	t.Cleanup(func() { assetManager.Close() })
	resourceManager := resources.NewResourceManager(sched, dir)
	fake := newFakeDevice()

	server := NewRenderingServer(sched, assetManager, resourceManager, fake)
	require.NoError(t, server.Initialize())

	return &serverFixture{sched: sched, device: fake, server: server, dir: dir}
}

func (f *serverFixture) writeSpirv(t *testing.T, name string, words []uint32) {
	t.Helper()
	data := make([]byte, len(words)*4)
	for i, w := range words {
		data[i*4] = byte(w)
		data[i*4+1] = byte(w >> 8)
		data[i*4+2] = byte(w >> 16)
		data[i*4+3] = byte(w >> 24)
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), data, 0o644))
}

const twoShadersDatabase = `[
  {
    "id": 1,
    "type": "shader",
    "stages": [
      { "type": "vertex", "spirv": "tri.vert.spv", "meta": "tri.vert.json" },
      { "type": "fragment", "spirv": "tri.frag.spv", "meta": "tri.frag.json" }
    ]
  },
  {
    "id": 2,
    "type": "shader",
    "stages": [
      { "type": "vertex", "spirv": "tri.vert.spv", "meta": "tri.vert.json" },
      { "type": "fragment", "spirv": "tri.frag.spv", "meta": "tri.frag.json" }
    ]
  },
  { "id": 3, "type": "texture", "image": "t.png", "colour_space": "srgb", "mipmaps": true },
  {
    "id": 4,
    "type": "mesh",
    "source": "cube.bin",
    "submeshes": [ { "name": "body", "first_index": 0, "index_count": 3, "material": 5 } ]
  },
  {
    "id": 5,
    "type": "material",
    "textures": [ { "name": "albedo", "asset": 3, "sampler": "linear_clamp" } ],
    "parameters": []
  }
]`

func TestLoadShaderAssetsShareModulesByContentHash(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	f.writeSpirv(t, "tri.vert.spv", []uint32{0x07230203, 1, 2, 3})
	f.writeSpirv(t, "tri.frag.spv", []uint32{0x07230203, 9, 8, 7})

	// load asset 1 three times, then asset 2 once
	require.NoError(t, f.server.LoadAsset(1))
	require.NoError(t, f.server.LoadAsset(1))
	require.NoError(t, f.server.LoadAsset(1))
	require.NoError(t, f.server.LoadAsset(2))

	// two cache entries, but both assets alias the same two modules
	assert.Equal(t, 2, f.server.CachedShaderCount())
	assert.Equal(t, 2, f.device.creates())
	assert.Equal(t, 2, f.device.aliveModules())
}

func TestLoadAssetUnknownId(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	err := f.server.LoadAsset(99)
	assert.Equal(t, core.NotFoundError, core.CodeOf(err))
}

func TestLoadAssetPlaceholders(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)

	for _, assetId := range []assets.AssetId{3, 4, 5} {
		err := f.server.LoadAsset(assetId)
		assert.Equal(t, core.UnimplementedError, core.CodeOf(err), "asset %d", assetId)
	}
}

func TestLoadShaderRollsBackOnStageFailure(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	f.writeSpirv(t, "tri.vert.spv", []uint32{0x07230203, 1, 2, 3})
	// tri.frag.spv is missing

	err := f.server.LoadAsset(1)
	require.Error(t, err)
	assert.Equal(t, core.NotFoundError, core.CodeOf(err))

	// the vertex module created before the failure was destroyed
	assert.Equal(t, 0, f.device.aliveModules())
	assert.Equal(t, 0, f.server.CachedShaderCount())
}

func TestLeasesAreReleasedAfterLoad(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	f.writeSpirv(t, "tri.vert.spv", []uint32{1, 2})
	f.writeSpirv(t, "tri.frag.spv", []uint32{3, 4})

	require.NoError(t, f.server.LoadAsset(1))

	// the server holds no leases once LoadAsset returns
	resourceManager := f.server.resources
	assert.Equal(t, 0, resourceManager.CachedCount(resources.ResourceTypeShader))
}

func TestShutdownReleasesModules(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	f.writeSpirv(t, "tri.vert.spv", []uint32{1, 2})
	f.writeSpirv(t, "tri.frag.spv", []uint32{3, 4})

	require.NoError(t, f.server.LoadAsset(1))
	require.NoError(t, f.server.LoadAsset(2))
	require.NoError(t, f.server.Shutdown())

	assert.Equal(t, 0, f.device.aliveModules())
	assert.Equal(t, 0, f.server.CachedShaderCount())
}

func TestUnalignedSpirvFailsLoad(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "tri.vert.spv"), []byte("123"), 0o644))
	f.writeSpirv(t, "tri.frag.spv", []uint32{3, 4})

	err := f.server.LoadAsset(1)
	require.Error(t, err)
	assert.Equal(t, core.InternalError, core.CodeOf(err))
	assert.Equal(t, 0, f.device.aliveModules())
}

func TestConcurrentLoadsOfSameAsset(t *testing.T) {
	f := newServerFixture(t, twoShadersDatabase)
	f.writeSpirv(t, "tri.vert.spv", []uint32{1, 2})
	f.writeSpirv(t, "tri.frag.spv", []uint32{3, 4})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.server.LoadAsset(1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.server.CachedShaderCount())
	// duplicates from racing loads were rolled back
	assert.Equal(t, 2, f.device.aliveModules())
}
