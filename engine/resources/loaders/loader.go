// Package loaders holds the per-type validation and transformation applied
// to resource blobs after they are read from disk. Loaders are pure
// functions of the file bytes and run off-strand.
package loaders

// Loader turns raw file bytes into the cached blob for one resource type.
type Loader interface {
	Load(path string, data []byte) ([]byte, error)
}

// BinaryLoader stores the file bytes untouched. Mesh and material blobs
// use it until their pipelines land.
type BinaryLoader struct{}

func (BinaryLoader) Load(_ string, data []byte) ([]byte, error) {
	return data, nil
}
