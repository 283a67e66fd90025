// Package bloom implements a fixed-capacity bit-set Bloom filter used two
// ways by the engine: as the TinyLFU doorkeeper and as an optional
// per-small-page negative-lookup accelerator, mirroring the two Bloom
// filter call sites in the original cache's small_page_advanced.hpp /
// tiny_lfu_cms.hpp, and the same Add/Test/Clear/Store/Load shape as the
// teacher's z/bbloom.go and filter.go.
package bloom

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// HashFunc widens a 32-bit key into a 64-bit digest, whose upper and lower
// halves double-hash as described in spec.md §4.2.
type HashFunc func(key uint32) uint64

// XXHash64 is the default HashFunc, used by the TinyLFU doorkeeper.
func XXHash64(key uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	return xxhash.Sum64(buf[:])
}

// Filter is a fixed-capacity Bloom filter with double hashing over the
// upper/lower 32-bit halves of a 64-bit digest.
type Filter struct {
	bits    []uint64
	numBits uint32
	numHash uint32
	hash    HashFunc
}

// New creates a Filter sized for capacity entries at the given false
// positive rate, using hash to turn each 32-bit key into a 64-bit digest.
// If hash is nil, XXHash64 is used.
func New(capacity uint32, falsePositiveRate float64, hash HashFunc) *Filter {
	if capacity == 0 {
		panic("bloom: capacity must be positive")
	}
	if hash == nil {
		hash = XXHash64
	}

	m := -1 * float64(capacity) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)
	numBits := nextPow2(uint32(math.Ceil(m)))
	if numBits < 1024 {
		numBits = 1024
	}
	numHash := uint32(math.Ceil(0.7 * float64(numBits) / float64(capacity)))
	if numHash < 2 {
		numHash = 2
	}

	return &Filter{
		bits:    make([]uint64, (numBits+63)/64),
		numBits: numBits,
		numHash: numHash,
		hash:    hash,
	}
}

// Add sets the bits for key and reports whether they were all already
// set (i.e. key was "probably already present").
func (f *Filter) Add(key uint32) bool {
	h1, h2 := f.split(key)
	alreadySet := true
	for i := uint32(0); i < f.numHash; i++ {
		bit := (h1 + i*h2) & (f.numBits - 1)
		block := bit / 64
		mask := uint64(1) << (bit % 64)
		alreadySet = alreadySet && (f.bits[block]&mask != 0)
		f.bits[block] |= mask
	}
	return alreadySet
}

// Test reports whether key is probably present.
func (f *Filter) Test(key uint32) bool {
	h1, h2 := f.split(key)
	for i := uint32(0); i < f.numHash; i++ {
		bit := (h1 + i*h2) & (f.numBits - 1)
		block := bit / 64
		mask := uint64(1) << (bit % 64)
		if f.bits[block]&mask == 0 {
			return false
		}
	}
	return true
}

// Clear zeroes every bit.
func (f *Filter) Clear() {
	for i := range f.bits {
		f.bits[i] = 0
	}
}

func (f *Filter) split(key uint32) (uint32, uint32) {
	h := f.hash(key)
	return uint32(h), uint32(h >> 32)
}

// Store writes numBits, numHash, then the raw bit array, little-endian.
func (f *Filter) Store(w io.Writer) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], f.numBits)
	binary.LittleEndian.PutUint32(hdr[4:8], f.numHash)
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "bloom: write header")
	}
	buf := make([]byte, 8)
	for _, word := range f.bits {
		binary.LittleEndian.PutUint64(buf, word)
		if _, err := w.Write(buf); err != nil {
			return errors.Wrap(err, "bloom: write bits")
		}
	}
	return nil
}

// Load reads back a filter previously written by Store. The bit-array
// size and hash count come from the stored header, and the bit array is
// reallocated to match; only the hash function is kept from f.
func (f *Filter) Load(r io.Reader) error {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return errors.Wrap(err, "bloom: read header")
	}
	f.numBits = binary.LittleEndian.Uint32(hdr[0:4])
	f.numHash = binary.LittleEndian.Uint32(hdr[4:8])

	f.bits = make([]uint64, (f.numBits+63)/64)
	buf := make([]byte, 8)
	for i := range f.bits {
		if _, err := io.ReadFull(r, buf); err != nil {
			return errors.Wrap(err, "bloom: read bits")
		}
		f.bits[i] = binary.LittleEndian.Uint64(buf)
	}
	return nil
}

func nextPow2(x uint32) uint32 {
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x++
	return x
}
