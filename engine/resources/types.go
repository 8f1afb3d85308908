package resources

import "github.com/spaghettifunk/gravity/engine/core"

// ResourceType selects the strand lane and loader for a blob.
type ResourceType uint8

const (
	ResourceTypeShader ResourceType = iota
	ResourceTypeImage
	ResourceTypeMesh
	ResourceTypeMaterial
	resourceTypeCount
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeMaterial:
		return "material"
	}
	return "unknown"
}

// ResourceDescriptor keys the cache. The struct itself is the map key, so
// equal (type, path) pairs always collapse to one entry and distinct types
// never collide on a shared path.
type ResourceDescriptor struct {
	Type ResourceType
	Path string
}

// ResourceHandle addresses a slot in the typed storage. Stale once the
// slot's generation moves past it.
type ResourceHandle struct {
	Type       ResourceType
	Index      uint32
	Generation uint32
}

// Resource is an immutable CPU-side blob.
type Resource struct {
	Data []byte
	Hash core.Digest
}

// resourceSlot is one entry of a typed storage vector. Slots are addressed
// by (storage, index) only; the vector may grow while a load is in flight,
// so pointers into it must be re-derived after every await.
type resourceSlot struct {
	descriptor ResourceDescriptor
	resource   *Resource

	index      uint32
	generation uint32

	referenceCounter int

	loading bool
	loaded  bool
}
