package sketch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddEstimate(t *testing.T) {
	s := New(16)
	for i := 0; i < 4; i++ {
		s.Add(7)
	}
	require.Equal(t, uint8(4), s.Estimate(7))
	require.Equal(t, uint8(0), s.Estimate(9))
}

func TestSaturatesAt15(t *testing.T) {
	s := New(16)
	for i := 0; i < 100; i++ {
		s.Add(1)
	}
	require.Equal(t, uint8(15), s.Estimate(1))
}

func TestResetHalves(t *testing.T) {
	s := New(16)
	for i := 0; i < 8; i++ {
		s.Add(42)
	}
	require.Equal(t, uint8(8), s.Estimate(42))
	s.Reset()
	require.Equal(t, uint8(4), s.Estimate(42))
	s.Reset()
	require.Equal(t, uint8(2), s.Estimate(42))
}

func TestClear(t *testing.T) {
	s := New(16)
	s.Add(5)
	s.Clear()
	require.Equal(t, uint8(0), s.Estimate(5))
}

func TestWidthRoundsToPowerOfTwo(t *testing.T) {
	s := New(10)
	require.Equal(t, uint32(16), s.Width())
}

func TestStoreLoadRoundTrip(t *testing.T) {
	s := New(64)
	for i := uint32(0); i < 20; i++ {
		for j := uint32(0); j < i%5; j++ {
			s.Add(i)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, s.Store(&buf))

	loaded := New(64)
	require.NoError(t, loaded.Load(&buf))

	for i := uint32(0); i < 20; i++ {
		require.Equal(t, s.Estimate(i), loaded.Estimate(i))
	}
}

// TestLowerBound exercises property P5: the estimate never under-counts
// the true frequency (clamped to 15), and is monotonic in the number of
// Adds for a single, isolated key.
func TestLowerBound(t *testing.T) {
	s := New(256)
	var prev uint8
	for i := 0; i < 20; i++ {
		s.Add(123)
		cur := s.Estimate(123)
		require.GreaterOrEqual(t, cur, uint8(min(i+1, 15)))
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
