package assets

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/gravity/engine/core"
	"github.com/spaghettifunk/gravity/engine/renderer"
)

// AssetManager parses the declarative asset database and answers
// descriptor lookups by id. Its state is written exactly once during
// Initialize and is immutable afterwards, so lookups are safe from any
// strand.
type AssetManager struct {
	databasePath string

	assets map[AssetId]*AssetDescriptor

	watcher *fsnotify.Watcher
	changed atomic.Bool
	done    chan struct{}
}

func NewAssetManager(databasePath string) *AssetManager {
	return &AssetManager{
		databasePath: databasePath,
		done:         make(chan struct{}),
	}
}

// Initialize loads and validates the database. On any schema failure the
// manager exposes no partial state. I/O failures and a non-array root are
// InternalError; everything shape-related is SchemaError.
func (am *AssetManager) Initialize() error {
	core.LogTrace("initializing asset manager; database: %s", am.databasePath)

	data, err := os.ReadFile(am.databasePath)
	if err != nil {
		core.LogError("asset manager failed to load assets db; error: %v", err)
		return core.WrapInternal(err, "reading asset database %s", am.databasePath)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var root interface{}
	if err := decoder.Decode(&root); err != nil {
		core.LogError("asset database is not valid json; error: %v", err)
		return core.WrapInternal(err, "parsing asset database")
	}
	if _, err := decoder.Token(); err != io.EOF {
		return core.Internalf("trailing data after asset database array")
	}

	array, ok := root.([]interface{})
	if !ok {
		core.LogError("asset database root is not an array")
		return core.Internalf("asset database root is not an array")
	}

	assets := make(map[AssetId]*AssetDescriptor, len(array))

	for _, item := range array {
		asset, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if err := validateRequiredParameters(asset, assetRequiredParameters); err != nil {
			return err
		}

		assetId := integerField(asset, "id")

		assetType, err := assetTypeFromString(stringField(asset, "type"))
		if err != nil {
			core.LogError("invalid asset type; id: %d", assetId)
			return err
		}

		if _, exists := assets[assetId]; exists {
			core.LogError("duplicate asset id %d", assetId)
			return core.SchemaErrorf("duplicate asset id %d", assetId)
		}

		descriptor := &AssetDescriptor{Type: assetType}

		switch assetType {
		case AssetTypeShader:
			shader, err := parseShaderDescriptor(asset)
			if err != nil {
				return err
			}
			descriptor.Shader = shader
		case AssetTypeTexture:
			texture, err := parseTextureDescriptor(asset)
			if err != nil {
				return err
			}
			descriptor.Texture = texture
		case AssetTypeMesh:
			mesh, err := parseMeshDescriptor(asset)
			if err != nil {
				return err
			}
			descriptor.Mesh = mesh
		case AssetTypeMaterial:
			material, err := parseMaterialDescriptor(asset)
			if err != nil {
				return err
			}
			descriptor.Material = material
		}

		assets[assetId] = descriptor
	}

	am.assets = assets

	if err := am.startWatcher(); err != nil {
		core.LogWarn("asset database watcher unavailable: %v", err)
	}

	core.LogInfo("asset manager initialized; %d assets", len(am.assets))
	return nil
}

// GetAsset returns the immutable descriptor for id. The pointer stays
// valid for the life of the manager.
func (am *AssetManager) GetAsset(assetId AssetId) (*AssetDescriptor, error) {
	descriptor, ok := am.assets[assetId]
	if !ok {
		return nil, core.NotFoundf("asset %d", assetId)
	}
	return descriptor, nil
}

// Changed reports whether the database file was modified on disk since
// Initialize. The in-memory descriptors keep serving the loaded snapshot.
func (am *AssetManager) Changed() bool {
	return am.changed.Load()
}

// Close stops the database watcher.
func (am *AssetManager) Close() error {
	if am.watcher == nil {
		return nil
	}
	err := am.watcher.Close()
	<-am.done
	am.watcher = nil
	return err
}

func (am *AssetManager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(am.databasePath)); err != nil {
		watcher.Close()
		return err
	}

	am.watcher = watcher
	go am.watch()
	return nil
}

func (am *AssetManager) watch() {
	defer close(am.done)
	target := filepath.Clean(am.databasePath)
	for {
		select {
		case event, ok := <-am.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				core.LogWarn("asset database changed on disk (%s); restart to reload", event.Op)
				am.changed.Store(true)
			}
		case err, ok := <-am.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("asset database watcher error: %v", err)
		}
	}
}

func parseShaderDescriptor(asset map[string]interface{}) (*ShaderDescriptor, error) {
	if err := validateRequiredParameters(asset, shaderRequiredParameters); err != nil {
		return nil, err
	}

	descriptor := &ShaderDescriptor{
		Stages: make(map[renderer.ShaderStage]ShaderStageDescriptor),
	}

	for _, item := range listField(asset, "stages") {
		stageObject, ok := item.(map[string]interface{})
		if !ok {
			return nil, core.SchemaErrorf("shader stage entry is not an object")
		}
		if err := validateRequiredParameters(stageObject, shaderStageRequiredParameters); err != nil {
			return nil, err
		}

		stage, err := shaderStageFromString(stringField(stageObject, "type"))
		if err != nil {
			return nil, err
		}

		descriptor.Stages[stage] = ShaderStageDescriptor{
			SpirvPath: stringField(stageObject, "spirv"),
			MetaPath:  stringField(stageObject, "meta"),
		}
	}

	return descriptor, nil
}

func parseTextureDescriptor(asset map[string]interface{}) (*TextureDescriptor, error) {
	if err := validateRequiredParameters(asset, textureRequiredParameters); err != nil {
		return nil, err
	}

	colorSpace, err := colorSpaceFromString(stringField(asset, "colour_space"))
	if err != nil {
		return nil, err
	}

	return &TextureDescriptor{
		ImagePath:  stringField(asset, "image"),
		ColorSpace: colorSpace,
		MipMaps:    boolField(asset, "mipmaps"),
	}, nil
}

func parseMeshDescriptor(asset map[string]interface{}) (*MeshDescriptor, error) {
	if err := validateRequiredParameters(asset, meshRequiredParameters); err != nil {
		return nil, err
	}

	descriptor := &MeshDescriptor{
		Source: stringField(asset, "source"),
	}

	for _, item := range listField(asset, "submeshes") {
		submeshObject, ok := item.(map[string]interface{})
		if !ok {
			return nil, core.SchemaErrorf("submesh entry is not an object")
		}
		if err := validateRequiredParameters(submeshObject, submeshRequiredParameters); err != nil {
			return nil, err
		}

		descriptor.Submeshes = append(descriptor.Submeshes, SubmeshDescriptor{
			Name:       stringField(submeshObject, "name"),
			FirstIndex: integerField(submeshObject, "first_index"),
			IndexCount: integerField(submeshObject, "index_count"),
			Material:   integerField(submeshObject, "material"),
		})
	}

	return descriptor, nil
}

func parseMaterialDescriptor(asset map[string]interface{}) (*MaterialDescriptor, error) {
	if err := validateRequiredParameters(asset, materialRequiredParameters); err != nil {
		return nil, err
	}

	descriptor := &MaterialDescriptor{}

	for _, item := range listField(asset, "textures") {
		textureObject, ok := item.(map[string]interface{})
		if !ok {
			return nil, core.SchemaErrorf("material texture entry is not an object")
		}
		if err := validateRequiredParameters(textureObject, materialTextureRequiredParameters); err != nil {
			return nil, err
		}

		sampler, err := samplerTypeFromString(stringField(textureObject, "sampler"))
		if err != nil {
			return nil, err
		}

		descriptor.Textures = append(descriptor.Textures, MaterialTextureDescriptor{
			Name:         stringField(textureObject, "name"),
			TextureAsset: integerField(textureObject, "asset"),
			Sampler:      sampler,
		})
	}

	for _, item := range listField(asset, "parameters") {
		parameterObject, ok := item.(map[string]interface{})
		if !ok {
			return nil, core.SchemaErrorf("material parameter entry is not an object")
		}
		if err := validateRequiredParameters(parameterObject, materialParameterRequiredParameters); err != nil {
			return nil, err
		}

		value, ok := parameterObject["value"]
		if !ok {
			return nil, core.SchemaErrorf("material parameter missing value")
		}
		switch v := value.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		default:
			return nil, core.SchemaErrorf("material parameter value must be a string or number")
		}

		descriptor.Parameters = append(descriptor.Parameters, MaterialParameter{
			Name:  stringField(parameterObject, "name"),
			Value: value,
		})
	}

	return descriptor, nil
}
