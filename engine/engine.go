// Package engine wires the platform, scheduler, asset and resource
// managers, the rendering device and the rendering server into a runnable
// application.
package engine

import (
	"github.com/spaghettifunk/gravity/engine/assets"
	"github.com/spaghettifunk/gravity/engine/config"
	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/platform"
	"github.com/spaghettifunk/gravity/engine/renderer/device"
	"github.com/spaghettifunk/gravity/engine/renderer/vulkan"
	"github.com/spaghettifunk/gravity/engine/resources"
	"github.com/spaghettifunk/gravity/engine/scheduler"
	"github.com/spaghettifunk/gravity/engine/servers"
)

type Stage uint8

const (
	StageUninitialized Stage = iota
	StageInitializing
	StageInitialized
	StageRunning
	StageShuttingDown
	StageShutDown
)

type Engine struct {
	currentStage Stage
	cfg          *config.Config

	platform        *platform.Platform
	scheduler       *scheduler.Scheduler
	assetManager    *assets.AssetManager
	resourceManager *resources.ResourceManager
	device          *device.Device
	renderingServer *servers.RenderingServer

	clock *core.Clock

	stop chan struct{}
}

func New(cfg *config.Config) (*Engine, error) {
	if err := core.InstallLogger(core.LoggerOptions{
		Level:        cfg.Logging.Level,
		ReportCaller: cfg.Logging.ReportCaller,
	}); err != nil && core.CodeOf(err) != core.AlreadyExistsError {
		return nil, err
	}

	return &Engine{
		currentStage: StageUninitialized,
		cfg:          cfg,
		platform:     platform.New(),
		clock:        core.NewClock(),
		stop:         make(chan struct{}),
	}, nil
}

// Initialize brings every subsystem up, leaves first.
func (e *Engine) Initialize() error {
	e.currentStage = StageInitializing

	if err := e.platform.Startup(e.cfg.Application.Name,
		e.cfg.Application.Width, e.cfg.Application.Height); err != nil {
		return err
	}

	e.scheduler = scheduler.New(e.cfg.Scheduler.Workers)

	e.assetManager = assets.NewAssetManager(e.cfg.Assets.DatabasePath)
	e.resourceManager = resources.NewResourceManager(e.scheduler, e.cfg.Assets.BasePath)

	driver := vulkan.NewDriver(e.platform, vulkan.Options{
		ApplicationName:   e.cfg.Application.Name,
		EnableValidation:  e.cfg.Rendering.EnableValidation,
		PipelineCachePath: e.cfg.Rendering.PipelineCachePath,
	})
	e.device = device.New(e.scheduler, driver)

	if err := e.device.Initialize(); err != nil {
		core.LogError("failed to initialize rendering device: %v", err)
		return err
	}

	e.renderingServer = servers.NewRenderingServer(
		e.scheduler, e.assetManager, e.resourceManager, e.device)

	if err := e.renderingServer.Initialize(); err != nil {
		core.LogError("failed to initialize rendering server: %v", err)
		return err
	}

	e.currentStage = StageInitialized
	core.LogInfo("engine initialized")
	return nil
}

// LoadAsset uploads one asset through the rendering server.
func (e *Engine) LoadAsset(assetId assets.AssetId) error {
	return e.renderingServer.LoadAsset(assetId)
}

// Run drives the frame loop until the window closes or Shutdown is
// called.
func (e *Engine) Run() error {
	if e.currentStage != StageInitialized {
		return core.FailedPreconditionf("engine is not initialized")
	}
	e.currentStage = StageRunning
	e.clock.Start()

	for !e.platform.ShouldClose() {
		select {
		case <-e.stop:
			return nil
		default:
		}

		e.platform.PollEvents()
		e.clock.Update()

		if err := e.device.PrepareBuffers(); err != nil {
			return err
		}
		if err := e.device.SwapBuffers(); err != nil {
			return err
		}
		if err := e.device.CollectPendingDestroy(); err != nil {
			return err
		}
	}

	return nil
}

// Shutdown tears subsystems down in reverse initialization order. The
// scheduler drains after every subsystem that posts to it, once no lease or
// live handle remains; the platform goes last.
func (e *Engine) Shutdown() error {
	if e.currentStage == StageShutDown {
		return nil
	}
	e.currentStage = StageShuttingDown
	close(e.stop)

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if e.renderingServer != nil {
		record(e.renderingServer.Shutdown())
	}
	if e.device != nil {
		record(e.device.Shutdown())
	}
	if e.assetManager != nil {
		record(e.assetManager.Close())
	}
	if e.scheduler != nil {
		e.scheduler.Shutdown()
	}
	record(e.platform.Shutdown())

	e.currentStage = StageShutDown
	core.LogInfo("engine shut down")
	return firstErr
}
