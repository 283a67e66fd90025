package bloom

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
)

// FarmHash64 is an alternate HashFunc, distinct from the doorkeeper's
// XXHash64, used by the small page's optional per-page accelerator so the
// two Bloom filter instances in the engine don't share a hash family.
func FarmHash64(key uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return farm.Fingerprint64(buf[:])
}
