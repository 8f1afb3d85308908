package core

import "hash/fnv"

// Digest is a 64-bit content hash. Resource blobs and shader modules are
// keyed by digest, not by identity.
type Digest = uint64

// CalculateDigest returns the FNV-64a hash of data.
func CalculateDigest(data []byte) Digest {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// HashCombine folds rhs into lhs. Used to key composite cache entries such
// as (stage, spirv digest).
func HashCombine(lhs, rhs uint64) uint64 {
	lhs ^= rhs + 0x9e3779b9 + (lhs << 6) + (lhs >> 2)
	return lhs
}
