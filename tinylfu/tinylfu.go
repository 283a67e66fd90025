// Package tinylfu implements the admission estimator described in
// spec.md §4.3: a Count-Min Sketch, optionally fronted by a doorkeeper
// Bloom filter, with periodic shift-aging. It keeps the teacher's
// functional-options idiom (see the old tinylfu/option.go) but its
// algorithm is grounded in the original cache's tiny_lfu_cms.hpp rather
// than the teacher's windowed W-TinyLFU policy, since the two are
// different admission algorithms.
package tinylfu

import (
	"math"

	"github.com/vkuzmenko/pagecache/bloom"
	"github.com/vkuzmenko/pagecache/sketch"
)

// sentinel is the reserved empty-slot key; the estimator ignores it.
const sentinel = math.MaxUint32

// Estimator is the shared, cache-wide frequency estimator. All small
// pages hold a non-owning reference to the same Estimator instance
// (spec.md §3 "Shared TinyLFU" / §9 "Shared estimator aliasing").
type Estimator struct {
	cms        *sketch.CountMin
	doorkeeper *bloom.Filter
	sampleSize uint32
	count      uint32
}

// Option configures an Estimator at construction time.
type Option func(*Estimator)

// WithDoorkeeper enables the doorkeeper variant: a Bloom filter in front
// of the sketch that suppresses one-shot keys from the sketch entirely.
func WithDoorkeeper(capacity uint32, falsePositiveRate float64) Option {
	return func(e *Estimator) {
		e.doorkeeper = bloom.New(capacity, falsePositiveRate, bloom.XXHash64)
	}
}

// New creates an Estimator with the given Count-Min Sketch width and
// aging sample size (TLFU_SIZE and SAMPLE_SIZE in spec.md §6).
func New(width uint32, sampleSize uint32, opts ...Option) *Estimator {
	e := &Estimator{
		cms:        sketch.New(width),
		sampleSize: sampleSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add records one occurrence of key, ignoring the sentinel, and ages the
// sketch once sampleSize occurrences have been recorded since the last
// aging (spec.md §4.3).
func (e *Estimator) Add(key uint32) {
	if key == sentinel {
		return
	}

	if e.doorkeeper != nil {
		if wasPresent := e.doorkeeper.Add(key); wasPresent {
			e.cms.Add(key)
		}
	} else {
		e.cms.Add(key)
	}

	if e.sampleSize > 0 {
		e.count++
		if e.count >= e.sampleSize {
			e.Reset()
		}
	}
}

// Estimate returns key's current frequency estimate: the sketch value,
// plus one if the doorkeeper variant is in use and the doorkeeper has
// seen key at least once since the last aging.
func (e *Estimator) Estimate(key uint32) uint8 {
	if key == sentinel {
		return 0
	}

	freq := e.cms.Estimate(key)
	if e.doorkeeper != nil && e.doorkeeper.Test(key) {
		freq++
	}
	return freq
}

// Reset ages the sketch (and clears the doorkeeper, if any) and zeroes
// the sample counter. Called automatically by Add once sampleSize
// occurrences have accumulated; exposed for tests and explicit aging.
func (e *Estimator) Reset() {
	e.cms.Reset()
	if e.doorkeeper != nil {
		e.doorkeeper.Clear()
	}
	e.count = 0
}

// Clear zeroes all estimator state outright: sketch counters, the
// doorkeeper (if any) and the sample counter.
func (e *Estimator) Clear() {
	e.cms.Clear()
	if e.doorkeeper != nil {
		e.doorkeeper.Clear()
	}
	e.count = 0
}
