package device

import (
	"sync"
	"time"

	"github.com/spaghettifunk/gravity/engine/renderer"
)

// fakeDriver is an in-memory Driver used to exercise the object store
// without a GPU. The timeline "completes" whenever the test advances it.
type fakeDriver struct {
	mu sync.Mutex

	caps Capabilities

	initialized bool
	shutdown    bool

	completed uint64

	buffersCreated  int
	buffersAlive    int
	imagesCreated   int
	imagesAlive     int
	samplersCreated int
	samplersAlive   int
	modulesCreated  int
	modulesAlive    int

	lastSampler renderer.SamplerDescriptor

	// createModuleDelay widens the window between cache reservation and
	// module creation so concurrency tests can overlap it.
	createModuleDelay time.Duration

	acquireScript []AcquireOutcome
	presentScript []PresentOutcome
	fenceBusy     int
	nextImage     int

	resets     int
	submits    int
	presents   int
	recreates  int
	waitIdles  int
	frameCount int
	imageCount int
}

type fakeObject struct {
	kind string
	id   int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		caps: Capabilities{
			SamplerAnisotropy:    true,
			MaxSamplerAnisotropy: 16,
			TimelineSemaphore:    true,
		},
		frameCount: 2,
		imageCount: 3,
	}
}

func (f *fakeDriver) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *fakeDriver) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = true
	return nil
}

func (f *fakeDriver) Capabilities() Capabilities { return f.caps }

func (f *fakeDriver) WaitIdle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitIdles++
	return nil
}

func (f *fakeDriver) RecreateSwapchain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recreates++
	return nil
}

func (f *fakeDriver) FrameCount() int { return f.frameCount }
func (f *fakeDriver) ImageCount() int { return f.imageCount }

func (f *fakeDriver) FenceSignaled(int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fenceBusy > 0 {
		f.fenceBusy--
		return false, nil
	}
	return true, nil
}

func (f *fakeDriver) ResetFrame(int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeDriver) AcquireNextImage(int) (int, AcquireOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outcome := AcquireSuccess
	if len(f.acquireScript) > 0 {
		outcome = f.acquireScript[0]
		f.acquireScript = f.acquireScript[1:]
	}
	if outcome != AcquireSuccess && outcome != AcquireSuboptimal {
		return 0, outcome, nil
	}
	image := f.nextImage
	f.nextImage = (f.nextImage + 1) % f.imageCount
	return image, outcome, nil
}

func (f *fakeDriver) Submit(_ int, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return nil
}

func (f *fakeDriver) Present(int, int) (PresentOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
	if len(f.presentScript) > 0 {
		outcome := f.presentScript[0]
		f.presentScript = f.presentScript[1:]
		return outcome, nil
	}
	return PresentSuccess, nil
}

func (f *fakeDriver) TimelineCompleted() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed, nil
}

func (f *fakeDriver) advanceTimeline(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = value
}

func (f *fakeDriver) CreateBuffer(renderer.BufferDescriptor) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffersCreated++
	f.buffersAlive++
	return &fakeObject{kind: "buffer", id: f.buffersCreated}, nil
}

func (f *fakeDriver) DestroyBuffer(interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffersAlive--
}

func (f *fakeDriver) CreateImage(renderer.ImageDescriptor) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imagesCreated++
	f.imagesAlive++
	return &fakeObject{kind: "image", id: f.imagesCreated}, nil
}

func (f *fakeDriver) DestroyImage(interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imagesAlive--
}

func (f *fakeDriver) CreateSampler(descriptor renderer.SamplerDescriptor) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samplersCreated++
	f.samplersAlive++
	f.lastSampler = descriptor
	return &fakeObject{kind: "sampler", id: f.samplersCreated}, nil
}

func (f *fakeDriver) DestroySampler(interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samplersAlive--
}

func (f *fakeDriver) CreateShaderModule(renderer.ShaderModuleDescriptor) (interface{}, error) {
	if f.createModuleDelay > 0 {
		time.Sleep(f.createModuleDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modulesCreated++
	f.modulesAlive++
	return &fakeObject{kind: "shader", id: f.modulesCreated}, nil
}

func (f *fakeDriver) DestroyShaderModule(interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modulesAlive--
}

// driverStats is a lock-free copy of the fake's counters.
type driverStats struct {
	buffersCreated  int
	buffersAlive    int
	imagesCreated   int
	imagesAlive     int
	samplersCreated int
	samplersAlive   int
	modulesCreated  int
	modulesAlive    int
	resets          int
	submits         int
	presents        int
	recreates       int
	waitIdles       int
	lastSampler     renderer.SamplerDescriptor
	shutdown        bool
}

func (f *fakeDriver) snapshot() driverStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return driverStats{
		buffersCreated:  f.buffersCreated,
		buffersAlive:    f.buffersAlive,
		imagesCreated:   f.imagesCreated,
		imagesAlive:     f.imagesAlive,
		samplersCreated: f.samplersCreated,
		samplersAlive:   f.samplersAlive,
		modulesCreated:  f.modulesCreated,
		modulesAlive:    f.modulesAlive,
		resets:          f.resets,
		submits:         f.submits,
		presents:        f.presents,
		recreates:       f.recreates,
		waitIdles:       f.waitIdles,
		lastSampler:     f.lastSampler,
		shutdown:        f.shutdown,
	}
}
