package vulkan

import (
	"bytes"
	"io"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pierrec/lz4/v4"

	"github.com/spaghettifunk/gravity/engine/core"
)

// initializePipelineCache creates the pipeline cache, seeding it from the
// lz4-compressed blob of a previous run when one exists. A corrupt or
// missing file degrades to an empty cache.
func (d *Driver) initializePipelineCache() error {
	var initialData []byte
	if d.options.PipelineCachePath != "" {
		initialData = d.loadPipelineCacheBlob()
	}

	createInfo := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	if len(initialData) > 0 {
		createInfo.InitialDataSize = uint(len(initialData))
		createInfo.PInitialData = unsafe.Pointer(&initialData[0])
	}

	var cache vk.PipelineCache
	if res := vk.CreatePipelineCache(d.logicalDevice, &createInfo, nil, &cache); res != vk.Success {
		core.LogError("unable to create pipeline cache: %s", resultString(res))
		return core.Internalf("vkCreatePipelineCache failed: %s", resultString(res))
	}
	d.pipelineCache = cache
	return nil
}

func (d *Driver) loadPipelineCacheBlob() []byte {
	compressed, err := os.ReadFile(d.options.PipelineCachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			core.LogWarn("unable to read pipeline cache %s: %v", d.options.PipelineCachePath, err)
		}
		return nil
	}

	reader := lz4.NewReader(bytes.NewReader(compressed))
	data, err := io.ReadAll(reader)
	if err != nil {
		core.LogWarn("pipeline cache %s is corrupt, starting empty: %v", d.options.PipelineCachePath, err)
		return nil
	}

	core.LogInfo("pipeline cache loaded; %d bytes (%d compressed)", len(data), len(compressed))
	return data
}

// storePipelineCache writes the cache blob back, lz4 compressed. Called
// during shutdown; failures only warn.
func (d *Driver) storePipelineCache() {
	if d.options.PipelineCachePath == "" || d.pipelineCache == vk.NullPipelineCache {
		return
	}

	var dataSize uint
	if res := vk.GetPipelineCacheData(d.logicalDevice, d.pipelineCache, &dataSize, nil); res != vk.Success || dataSize == 0 {
		return
	}
	data := make([]byte, dataSize)
	if res := vk.GetPipelineCacheData(d.logicalDevice, d.pipelineCache, &dataSize, unsafe.Pointer(&data[0])); res != vk.Success {
		core.LogWarn("unable to read pipeline cache data: %s", resultString(res))
		return
	}

	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := writer.Write(data); err != nil {
		core.LogWarn("unable to compress pipeline cache: %v", err)
		return
	}
	if err := writer.Close(); err != nil {
		core.LogWarn("unable to compress pipeline cache: %v", err)
		return
	}

	if err := os.WriteFile(d.options.PipelineCachePath, compressed.Bytes(), 0o644); err != nil {
		core.LogWarn("unable to write pipeline cache %s: %v", d.options.PipelineCachePath, err)
		return
	}
	core.LogInfo("pipeline cache stored; %d bytes (%d compressed)", len(data), compressed.Len())
}
