// Package platform owns the window and is the engine's only contact with
// the OS windowing system. It hands the rendering driver a surface, the
// required instance extensions and the framebuffer pixel extent.
package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

func New() *Platform {
	return &Platform{}
}

// Startup initializes GLFW, loads the Vulkan loader and opens the window.
func (p *Platform) Startup(applicationName string, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return core.WrapInternal(err, "initializing glfw")
	}

	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan loader: %s", err)
		return core.WrapInternal(err, "initializing vulkan loader")
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return core.WrapInternal(err, "creating window")
	}
	p.Window = window

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// RequiredInstanceExtensions returns the Vulkan instance extensions the
// windowing system needs for surface creation.
func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the presentation surface for instance.
func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("vulkan surface creation failed: %s", err)
		return vk.NullSurface, core.WrapInternal(err, "creating window surface")
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// PixelExtent reports the current framebuffer size in pixels. May be zero
// while the window is minimized; the device polls events until it is not.
func (p *Platform) PixelExtent() renderer.Extent2D {
	width, height := p.Window.GetFramebufferSize()
	return renderer.Extent2D{Width: uint32(width), Height: uint32(height)}
}

func (p *Platform) PollEvents() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}
