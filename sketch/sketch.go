// Package sketch implements a Count-Min Sketch frequency estimator with
// 4-bit saturating counters, the same row layout as the teacher's
// cmSketch in dgraph-io/ristretto's sketch.go, generalized from depth 1
// to depth 4 and from a single shared mask to one random seed per row.
package sketch

import (
	"encoding/binary"
	"io"
	"math/rand"

	"github.com/pkg/errors"
)

// depth is the number of independent counter rows. Fixed for the life of
// every sketch, per spec.
const depth = 4

// CountMin is a Count-Min Sketch with depth rows of 4-bit saturating
// counters, each row addressed by XOR-ing the key with a row-private seed.
type CountMin struct {
	rows  [depth]row
	seeds [depth]uint32
	mask  uint32
}

// row is a slice of bytes, with each byte holding two 4-bit counters.
type row []byte

// New creates a CountMin sketch whose width is the next power of two >=
// width. width must be > 0.
func New(width uint32) *CountMin {
	if width == 0 {
		panic("sketch: width must be positive")
	}
	w := nextPow2(width)

	s := &CountMin{mask: w - 1}
	for i := range s.rows {
		s.rows[i] = make(row, w/2)
		s.seeds[i] = rand.Uint32()
	}
	return s
}

// Add increments the counters for key in every row, saturating at 15.
func (s *CountMin) Add(key uint32) {
	for i := range s.rows {
		idx := (key ^ s.seeds[i]) & s.mask
		s.rows[i].increment(idx)
	}
}

// Estimate returns the minimum counter value across all rows, in [0, 15].
func (s *CountMin) Estimate(key uint32) uint8 {
	min := uint8(15)
	for i := range s.rows {
		idx := (key ^ s.seeds[i]) & s.mask
		if v := s.rows[i].get(idx); v < min {
			min = v
		}
	}
	return min
}

// Reset ages every counter by halving it (branchless right-shift-and-mask
// aging, two counters per byte at once).
func (s *CountMin) Reset() {
	for i := range s.rows {
		s.rows[i].reset()
	}
}

// Clear zeroes every counter.
func (s *CountMin) Clear() {
	for i := range s.rows {
		for j := range s.rows[i] {
			s.rows[i][j] = 0
		}
	}
}

// Width returns the sketch's per-row counter count (a power of two).
func (s *CountMin) Width() uint32 {
	return s.mask + 1
}

func (r row) get(n uint32) uint8 {
	return byte(r[n/2]>>((n&1)*4)) & 0x0f
}

func (r row) increment(n uint32) {
	i := n / 2
	shift := (n & 1) * 4
	v := (r[i] >> shift) & 0x0f
	if v < 15 {
		r[i] += 1 << shift
	}
}

func (r row) reset() {
	for i := range r {
		r[i] = (r[i] >> 1) & 0x77
	}
}

// Store writes a raw dump of the sketch: counters for each row, then the
// per-row seeds — all little-endian.
func (s *CountMin) Store(w io.Writer) error {
	for i := range s.rows {
		if _, err := w.Write(s.rows[i]); err != nil {
			return errors.Wrap(err, "sketch: write counters")
		}
	}
	var seedBuf [4]byte
	for i := range s.seeds {
		binary.LittleEndian.PutUint32(seedBuf[:], s.seeds[i])
		if _, err := w.Write(seedBuf[:]); err != nil {
			return errors.Wrap(err, "sketch: write seed")
		}
	}
	return nil
}

// Load reads back a sketch previously written by Store. The sketch must
// already be sized (via New) with the same width used at Store time.
func (s *CountMin) Load(r io.Reader) error {
	for i := range s.rows {
		if _, err := io.ReadFull(r, s.rows[i]); err != nil {
			return errors.Wrap(err, "sketch: read counters")
		}
	}
	var seedBuf [4]byte
	for i := range s.seeds {
		if _, err := io.ReadFull(r, seedBuf[:]); err != nil {
			return errors.Wrap(err, "sketch: read seed")
		}
		s.seeds[i] = binary.LittleEndian.Uint32(seedBuf[:])
	}
	return nil
}

// nextPow2 rounds x up to the next power of 2, if it isn't already one.
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
