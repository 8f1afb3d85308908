package loaders

import "github.com/spaghettifunk/gravity/engine/core"

// ShaderLoader validates SPIR-V blobs. SPIR-V is a stream of 32-bit words,
// so anything not word-aligned is corrupt.
type ShaderLoader struct{}

func (ShaderLoader) Load(path string, data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		core.LogError("shader file size is not multiple of 4 bytes; path: %s", path)
		return nil, core.Internalf("shader %s: size %d is not a multiple of 4", path, len(data))
	}
	return data, nil
}
