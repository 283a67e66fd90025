package simd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeKeys(n int) []uint32 {
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = math.MaxUint32
	}
	return keys
}

func TestFindScalar(t *testing.T) {
	keys := makeKeys(5)
	keys[3] = 7
	require.Equal(t, 3, findScalar(keys, 7))
	require.Equal(t, -1, findScalar(keys, 8))
}

func TestFind8(t *testing.T) {
	keys := makeKeys(16)
	keys[5] = 7
	require.Equal(t, 5, find8(keys, 7))
	require.Equal(t, -1, find8(keys, 8))
}

func TestFind8FirstLaneOfBlock(t *testing.T) {
	keys := makeKeys(16)
	keys[8] = 99
	require.Equal(t, 8, find8(keys, 99))
}

func TestFind16(t *testing.T) {
	keys := makeKeys(32)
	keys[13] = 7
	require.Equal(t, 13, find16(keys, 7))
	require.Equal(t, -1, find16(keys, 8))
}

func TestFind16HighHalf(t *testing.T) {
	keys := makeKeys(16)
	keys[9] = 42
	require.Equal(t, 9, find16(keys, 42))
}

func TestFindDispatchesConsistently(t *testing.T) {
	keys := makeKeys(32)
	keys[21] = 55
	require.Equal(t, 21, Find(keys, 55))
}

func TestFindReturnsFirstMatch(t *testing.T) {
	keys := makeKeys(16)
	keys[2] = 3
	keys[10] = 3
	require.Equal(t, 2, find16(keys, 3))
}
