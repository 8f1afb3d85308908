// Package servers hosts the engine-level orchestrators. The rendering
// server drives the asset → resource → GPU-object pipeline and keeps
// per-asset-type caches of what has already been uploaded.
package servers

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/spaghettifunk/gravity/engine/assets"
	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
	"github.com/spaghettifunk/gravity/engine/resources"
	"github.com/spaghettifunk/gravity/engine/scheduler"
)

// Lane enumerates the rendering server's strands. The hot path merely
// coordinates, so a single lane suffices.
type Lane uint8

const (
	LaneMain Lane = iota
	laneCount
)

// ShaderResource is the uploaded form of a shader asset: one device
// module per declared stage.
type ShaderResource struct {
	Stages map[renderer.ShaderStage]renderer.ShaderModuleHandle
}

// TextureResource, MeshResource and MaterialResource are placeholders
// until their upload pipelines land; their descriptors already parse.
type (
	TextureResource  struct{}
	MeshResource     struct{}
	MaterialResource struct{}
)

// RenderingServer looks assets up, loads their backing resources and asks
// the device for GPU objects. Caches are owned by the Main lane.
type RenderingServer struct {
	device    renderer.RenderingDevice
	assets    *assets.AssetManager
	resources *resources.ResourceManager
	strands   *scheduler.Group[Lane]

	shaderResourceCache   map[assets.AssetId]*ShaderResource
	textureResourceCache  map[assets.AssetId]*TextureResource
	meshResourceCache     map[assets.AssetId]*MeshResource
	materialResourceCache map[assets.AssetId]*MaterialResource
}

func NewRenderingServer(sched *scheduler.Scheduler, assetManager *assets.AssetManager,
	resourceManager *resources.ResourceManager, renderingDevice renderer.RenderingDevice) *RenderingServer {
	return &RenderingServer{
		device:                renderingDevice,
		assets:                assetManager,
		resources:             resourceManager,
		strands:               scheduler.MakeStrands(sched, "rendering-server", laneCount),
		shaderResourceCache:   make(map[assets.AssetId]*ShaderResource),
		textureResourceCache:  make(map[assets.AssetId]*TextureResource),
		meshResourceCache:     make(map[assets.AssetId]*MeshResource),
		materialResourceCache: make(map[assets.AssetId]*MaterialResource),
	}
}

// Initialize loads the asset database.
func (rs *RenderingServer) Initialize() error {
	return rs.assets.Initialize()
}

// LoadAsset uploads the asset with the given id, if it is not already
// resident. Mesh, texture and material uploads are not implemented yet.
func (rs *RenderingServer) LoadAsset(assetId assets.AssetId) error {
	asset, err := rs.assets.GetAsset(assetId)
	if err != nil {
		core.LogError("asset not found; id: %d", assetId)
		return err
	}

	switch asset.Type {
	case assets.AssetTypeShader:
		cached := scheduler.Sync(rs.strands.Lane(LaneMain), func() bool {
			_, ok := rs.shaderResourceCache[assetId]
			return ok
		})
		if cached {
			return nil
		}

		shaderResource, err := rs.loadShader(assetId, asset.Shader)
		if err != nil {
			core.LogError("failed to load shader resource; id: %d", assetId)
			return err
		}

		rs.strands.Lane(LaneMain).Do(func() {
			if _, ok := rs.shaderResourceCache[assetId]; ok {
				// a concurrent load won the race; drop the duplicates
				for _, handle := range shaderResource.Stages {
					if err := rs.device.DestroyShaderModule(handle); err != nil {
						core.LogError("dropping duplicate shader module failed: %v", err)
					}
				}
				return
			}
			rs.shaderResourceCache[assetId] = shaderResource
		})
		return nil

	case assets.AssetTypeTexture:
		return core.Unimplementedf("texture loading")
	case assets.AssetTypeMesh:
		return core.Unimplementedf("mesh loading")
	case assets.AssetTypeMaterial:
		return core.Unimplementedf("material loading")
	}

	return core.Internalf("asset %d has unknown type %d", assetId, asset.Type)
}

// loadShader loads every declared stage. Any stage failure rolls back the
// modules created for earlier stages.
func (rs *RenderingServer) loadShader(assetId assets.AssetId, descriptor *assets.ShaderDescriptor) (*ShaderResource, error) {
	traceId := uuid.NewString()[:8]
	core.LogDebug("loading shader asset; id: %d, trace: %s", assetId, traceId)

	shaderResource := &ShaderResource{
		Stages: make(map[renderer.ShaderStage]renderer.ShaderModuleHandle),
	}

	for _, stage := range renderer.ShaderStages() {
		stageDescriptor, ok := descriptor.Stages[stage]
		if !ok {
			core.LogTrace("stage assets not found skipping; stage: %s, trace: %s", stage, traceId)
			continue
		}

		handle, err := rs.loadShaderStage(stage, stageDescriptor)
		if err != nil {
			for doneStage, doneHandle := range shaderResource.Stages {
				if destroyErr := rs.device.DestroyShaderModule(doneHandle); destroyErr != nil {
					core.LogError("rollback of stage %s failed: %v", doneStage, destroyErr)
				}
			}
			core.LogError("failed to load shader; stage: %s, trace: %s", stage, traceId)
			return nil, err
		}

		shaderResource.Stages[stage] = handle
	}

	return shaderResource, nil
}

// loadShaderStage acquires the SPIR-V blob, builds the module descriptor
// keyed by the blob's content hash and asks the device for a module. The
// lease is held only across the create call.
func (rs *RenderingServer) loadShaderStage(stage renderer.ShaderStage, stageDescriptor assets.ShaderStageDescriptor) (renderer.ShaderModuleHandle, error) {
	lease, err := rs.resources.AcquireResource(resources.ResourceDescriptor{
		Type: resources.ResourceTypeShader,
		Path: stageDescriptor.SpirvPath,
	})
	if err != nil {
		core.LogError("failed to load shader resource; stage: %s, spirv_path: %s",
			stage, stageDescriptor.SpirvPath)
		return renderer.ShaderModuleHandle{}, err
	}
	defer lease.Release()

	resource, err := rs.resources.GetResource(lease)
	if err != nil {
		return renderer.ShaderModuleHandle{}, err
	}

	words, err := spirvWords(resource.Data)
	if err != nil {
		return renderer.ShaderModuleHandle{}, err
	}

	return rs.device.CreateShaderModule(renderer.ShaderModuleDescriptor{
		Stage: stage,
		Spirv: words,
		Hash:  resource.Hash,
	})
}

// Shutdown releases every cached GPU resource. Pending destroys are
// collected by the device's own shutdown.
func (rs *RenderingServer) Shutdown() error {
	var firstErr error
	rs.strands.Lane(LaneMain).Do(func() {
		for assetId, shaderResource := range rs.shaderResourceCache {
			for stage, handle := range shaderResource.Stages {
				if err := rs.device.DestroyShaderModule(handle); err != nil && firstErr == nil {
					core.LogError("destroying shader module failed; id: %d, stage: %s, error: %v",
						assetId, stage, err)
					firstErr = err
				}
			}
			delete(rs.shaderResourceCache, assetId)
		}
	})
	return firstErr
}

// CachedShaderCount reports how many shader assets are resident.
func (rs *RenderingServer) CachedShaderCount() int {
	return scheduler.Sync(rs.strands.Lane(LaneMain), func() int {
		return len(rs.shaderResourceCache)
	})
}

// spirvWords reinterprets a word-aligned blob as a SPIR-V u32 stream.
func spirvWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, core.Internalf("spirv blob size %d is not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
