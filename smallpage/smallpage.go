// Package smallpage implements the sorted-by-frequency key array described
// in spec.md §4.4: a fixed-size slot array kept in non-increasing TinyLFU
// order, with tail-only eviction and sentinel-marked empty slots. It is
// grounded on the original cache's core/include/small_page_advanced.hpp,
// with the SIMD scan delegated to internal/simd the way the teacher's
// policy.go delegates hashing/ring-buffer work to helper packages.
package smallpage

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/vkuzmenko/pagecache/bloom"
	"github.com/vkuzmenko/pagecache/internal/simd"
	"github.com/vkuzmenko/pagecache/tinylfu"
)

// Sentinel marks an empty slot. Using the maximum key value forbids storing
// that exact key, matching spec.md §9 "Empty-slot sentinel".
const Sentinel uint32 = math.MaxUint32

// Page is a fixed-size array of up to S keys, sorted non-increasing by
// TinyLFU frequency, with a parallel expiration array. Frequency state
// itself is not owned by the page — it holds a non-owning reference to the
// cache-wide estimator (spec.md §4.4 "Key design decisions", §9 "Shared
// estimator aliasing").
type Page struct {
	keys        []uint32
	expirations []uint32
	estimator   *tinylfu.Estimator

	// accelerator is the optional per-page negative-lookup Bloom filter
	// from the original cache's USE_BF_FLAG path (small_page_advanced.hpp):
	// a cheap Test() that lets a miss skip the SIMD scan outright. It is a
	// pure in-memory accelerator, rebuilt from keys on Load, and is never
	// part of the on-disk page image (spec.md §6 fixes that layout to
	// exactly key+payload bytes).
	accelerator *bloom.Filter
}

// New allocates a Page of size size (S in spec.md), backed by estimator for
// frequency lookups. size must be a multiple of the widest SIMD block in
// use (spec.md §4.4 "Scanning").
func New(size int, estimator *tinylfu.Estimator) *Page {
	p := &Page{
		keys:        make([]uint32, size),
		expirations: make([]uint32, size),
		estimator:   estimator,
	}
	p.Clear()
	return p
}

// NewWithAccelerator is like New, but also builds a per-page Bloom filter
// accelerator sized for the page's slot count, hashed with bloom.FarmHash64
// so it doesn't share a hash family with the TinyLFU doorkeeper.
func NewWithAccelerator(size int, estimator *tinylfu.Estimator, falsePositiveRate float64) *Page {
	p := New(size, estimator)
	p.accelerator = bloom.New(uint32(size), falsePositiveRate, bloom.FarmHash64)
	return p
}

// Clear resets every slot to empty.
func (p *Page) Clear() {
	for i := range p.keys {
		p.keys[i] = Sentinel
		p.expirations[i] = 0
	}
	if p.accelerator != nil {
		p.accelerator.Clear()
	}
}

// Get looks up key. If absent, it returns false. If present but expired
// (expiration < now), the slot is cleared, the gap is compacted by
// shifting later entries forward, and false is returned. Otherwise the
// estimator is bumped and the slot bubbles toward the head to restore
// sort order, and true is returned.
func (p *Page) Get(key uint32, now uint32) bool {
	if p.accelerator != nil && !p.accelerator.Test(key) {
		return false
	}

	i := simd.Find(p.keys, key)
	if i < 0 {
		return false
	}

	if p.expirations[i] < now {
		p.evictAt(i)
		return false
	}

	p.estimator.Add(key)
	p.bubble(i)
	return true
}

// Update inserts or replaces a slot for key. If the tail slot is empty, key
// is placed there directly. Otherwise key contests the tail: it replaces
// the tail slot only if its frequency estimate strictly exceeds the
// current tail key's estimate, i.e. it wins admission. Either way, on
// success the estimator is bumped and the slot bubbles toward the head.
func (p *Page) Update(key uint32, exp uint32) bool {
	tail := len(p.keys) - 1

	if p.keys[tail] == Sentinel {
		p.keys[tail] = key
		p.expirations[tail] = exp
		p.estimator.Add(key)
		p.bubble(tail)
		p.markAccelerated(key)
		return true
	}

	if p.estimator.Estimate(key) <= p.estimator.Estimate(p.keys[tail]) {
		return false
	}

	p.keys[tail] = key
	p.expirations[tail] = exp
	p.estimator.Add(key)
	p.bubble(tail)
	p.markAccelerated(key)
	return true
}

func (p *Page) markAccelerated(key uint32) {
	if p.accelerator != nil {
		p.accelerator.Add(key)
	}
}

// rebuildAccelerator repopulates the accelerator from the current key
// array; used after Load, since the accelerator itself is never
// persisted.
func (p *Page) rebuildAccelerator() {
	if p.accelerator == nil {
		return
	}
	p.accelerator.Clear()
	for _, k := range p.keys {
		if k != Sentinel {
			p.accelerator.Add(k)
		}
	}
}

// bubble moves the slot at i toward the head while its estimate exceeds
// its left neighbour's, swapping both arrays in lockstep (spec.md §4.4).
func (p *Page) bubble(i int) {
	for i > 0 && p.estimator.Estimate(p.keys[i-1]) < p.estimator.Estimate(p.keys[i]) {
		p.keys[i-1], p.keys[i] = p.keys[i], p.keys[i-1]
		p.expirations[i-1], p.expirations[i] = p.expirations[i], p.expirations[i-1]
		i--
	}
}

// evictAt clears slot i and compacts the sentinel gap forward by swapping
// with the next slot until the sentinel reaches a slot whose neighbour is
// already a sentinel (or the tail), preserving P2 (sentinel slots form a
// contiguous suffix).
func (p *Page) evictAt(i int) {
	p.keys[i] = Sentinel
	p.expirations[i] = 0
	for i+1 < len(p.keys) && p.keys[i+1] != Sentinel {
		p.keys[i], p.keys[i+1] = p.keys[i+1], p.keys[i]
		p.expirations[i], p.expirations[i+1] = p.expirations[i+1], p.expirations[i]
		i++
	}
}

// Size returns the page's slot count (S).
func (p *Page) Size() int {
	return len(p.keys)
}

// StoreInto writes the page's keys then its expirations into buf, each as
// little-endian uint32, matching the "all keys, then all payloads" layout
// from spec.md §9. buf must be exactly 8*Size() bytes.
func (p *Page) StoreInto(buf []byte) {
	n := len(p.keys)
	for i, k := range p.keys {
		binary.LittleEndian.PutUint32(buf[i*4:], k)
	}
	base := n * 4
	for i, e := range p.expirations {
		binary.LittleEndian.PutUint32(buf[base+i*4:], e)
	}
}

// LoadFrom reads the page's keys and expirations back from buf, the
// inverse of StoreInto.
func (p *Page) LoadFrom(buf []byte) {
	n := len(p.keys)
	for i := range p.keys {
		p.keys[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	base := n * 4
	for i := range p.expirations {
		p.expirations[i] = binary.LittleEndian.Uint32(buf[base+i*4:])
	}
}

// ByteSize is the number of bytes StoreInto/LoadFrom consume for a page of
// size slots: 4 bytes of key plus 4 bytes of expiration each.
func ByteSize(size int) int {
	return size * 8
}

// Store writes the page via StoreInto/io.Writer. The large page's own
// Store calls this for each of its small pages in index order, so the
// stream it produces is all small-page images back to back.
func (p *Page) Store(w io.Writer) error {
	buf := make([]byte, ByteSize(len(p.keys)))
	p.StoreInto(buf)
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "smallpage: write")
	}
	return nil
}

// Load reads the page via io.Reader, the inverse of Store.
func (p *Page) Load(r io.Reader) error {
	buf := make([]byte, ByteSize(len(p.keys)))
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(err, "smallpage: read")
	}
	p.LoadFrom(buf)
	p.rebuildAccelerator()
	return nil
}
