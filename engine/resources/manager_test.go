package resources

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/resources/loaders"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

type managerFixture struct {
	sched   *scheduler.Scheduler
	manager *ResourceManager
	dir     string
}

func newFixture(t *testing.T) *managerFixture {
	t.Helper()
	sched := scheduler.New(4)
	t.Cleanup(sched.Shutdown)

	dir := t.TempDir()
	return &managerFixture{
		sched:   sched,
		manager: NewResourceManager(sched, dir),
		dir:     dir,
	}
}

func (f *managerFixture) writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), data, 0o644))
}

// countingLoader wraps another loader and counts physical loads.
type countingLoader struct {
	inner loaders.Loader
	loads atomic.Int64
}

func (c *countingLoader) Load(path string, data []byte) ([]byte, error) {
	c.loads.Add(1)
	return c.inner.Load(path, data)
}

func TestAcquireLoadsAndCaches(t *testing.T) {
	f := newFixture(t)
	counting := &countingLoader{inner: loaders.BinaryLoader{}}
	f.manager.RegisterLoader(ResourceTypeMesh, counting)

	f.writeFile(t, "cube.bin", []byte("mesh-bytes"))
	descriptor := ResourceDescriptor{Type: ResourceTypeMesh, Path: "cube.bin"}

	first, err := f.manager.AcquireResource(descriptor)
	require.NoError(t, err)

	resource, err := f.manager.GetResource(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("mesh-bytes"), resource.Data)
	assert.Equal(t, core.CalculateDigest([]byte("mesh-bytes")), resource.Hash)

	second, err := f.manager.AcquireResource(descriptor)
	require.NoError(t, err)
	assert.Equal(t, first.Handle(), second.Handle())
	assert.Equal(t, int64(1), counting.loads.Load())
	assert.Equal(t, 1, f.manager.CachedCount(ResourceTypeMesh))

	second.Release()
	assert.Equal(t, 1, f.manager.CachedCount(ResourceTypeMesh))
	first.Release()
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeMesh))
}

func TestReleaseEvictsAndReusesSlot(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "a.bin", []byte("aaaa"))
	f.writeFile(t, "b.bin", []byte("bbbb"))

	a, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: "a.bin"})
	require.NoError(t, err)
	handleA := a.Handle()
	a.Release()

	// the freed index is reused with a bumped generation
	b, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: "b.bin"})
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, handleA.Index, b.Handle().Index)
	assert.Greater(t, b.Handle().Generation, handleA.Generation)
}

func TestConcurrentAcquiresDeduplicateLoad(t *testing.T) {
	f := newFixture(t)
	counting := &countingLoader{inner: loaders.BinaryLoader{}}
	f.manager.RegisterLoader(ResourceTypeMaterial, counting)

	f.writeFile(t, "mat.bin", []byte("material"))
	descriptor := ResourceDescriptor{Type: ResourceTypeMaterial, Path: "mat.bin"}

	const k = 32
	leases := make([]*ResourceLease, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := f.manager.AcquireResource(descriptor)
			assert.NoError(t, err)
			leases[i] = lease
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), counting.loads.Load())
	for i := 1; i < k; i++ {
		assert.Equal(t, leases[0].Handle(), leases[i].Handle())
	}

	for _, lease := range leases {
		lease.Release()
	}
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeMaterial))
}

func TestStorageGrowthWhileLoadsInFlight(t *testing.T) {
	f := newFixture(t)

	// enough distinct descriptors that the slot vector reallocates several
	// times while reads are in flight
	const n = 128
	for i := 0; i < n; i++ {
		f.writeFile(t, filepath.Base(filepath.Join(f.dir, nameFor(i))), []byte(nameFor(i)))
	}

	leases := make([]*ResourceLease, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: nameFor(i)})
			assert.NoError(t, err)
			leases[i] = lease
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		resource, err := f.manager.GetResource(leases[i])
		require.NoError(t, err)
		assert.Equal(t, []byte(nameFor(i)), resource.Data)
		leases[i].Release()
	}
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeMesh))
}

func nameFor(i int) string {
	return "blob-" + string(rune('a'+i%26)) + "-" + string(rune('0'+(i/26)%10)) + string(rune('0'+i%10)) + ".bin"
}

func TestAcquireMissingFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: "missing.bin"})
	require.Error(t, err)
	assert.Equal(t, core.NotFoundError, core.CodeOf(err))

	// the reserved slot was rolled back
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeMesh))

	// the same descriptor can be acquired once the file exists
	f.writeFile(t, "missing.bin", []byte("found"))
	lease, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: "missing.bin"})
	require.NoError(t, err)
	lease.Release()
}

func TestShaderLoaderRejectsUnalignedSpirv(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "bad.spv", []byte("12345"))

	_, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeShader, Path: "bad.spv"})
	require.Error(t, err)
	assert.Equal(t, core.InternalError, core.CodeOf(err))
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeShader))
}

func TestImageLoaderDecodesPng(t *testing.T) {
	f := newFixture(t)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	f.writeFile(t, "grid.png", buf.Bytes())

	lease, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeImage, Path: "grid.png"})
	require.NoError(t, err)
	defer lease.Release()

	resource, err := f.manager.GetResource(lease)
	require.NoError(t, err)
	// 8-byte dimension header plus 3*2 RGBA texels
	assert.Len(t, resource.Data, 8+3*2*4)
}

func TestLeaseReleaseIsIdempotentAndMoveTransfers(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "once.bin", []byte("x"))
	descriptor := ResourceDescriptor{Type: ResourceTypeMesh, Path: "once.bin"}

	lease, err := f.manager.AcquireResource(descriptor)
	require.NoError(t, err)

	moved := lease.Move()
	lease.Release() // moved-from: no effect
	assert.Equal(t, 1, f.manager.CachedCount(ResourceTypeMesh))

	moved.Release()
	moved.Release() // double release: no effect
	assert.Equal(t, 0, f.manager.CachedCount(ResourceTypeMesh))
}

func TestGetResourceAfterRelease(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "gone.bin", []byte("x"))

	lease, err := f.manager.AcquireResource(ResourceDescriptor{Type: ResourceTypeMesh, Path: "gone.bin"})
	require.NoError(t, err)
	lease.Release()

	_, err = f.manager.GetResource(lease)
	assert.Equal(t, core.FailedPreconditionError, core.CodeOf(err))
}
