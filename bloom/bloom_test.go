package bloom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddTest(t *testing.T) {
	f := New(1000, 0.01, nil)
	require.False(t, f.Test(42))
	f.Add(42)
	require.True(t, f.Test(42))
}

func TestAddReturnsWhetherAlreadyPresent(t *testing.T) {
	f := New(1000, 0.01, nil)
	require.False(t, f.Add(7))
	require.True(t, f.Add(7))
}

func TestClear(t *testing.T) {
	f := New(1000, 0.01, nil)
	f.Add(1)
	f.Clear()
	require.False(t, f.Test(1))
}

func TestSizing(t *testing.T) {
	f := New(1374, 0.01, nil)
	require.GreaterOrEqual(t, len(f.bits)*64, 1024)
	require.GreaterOrEqual(t, f.numHash, uint32(2))
}

func TestMinimumBitsFloor(t *testing.T) {
	f := New(1, 0.5, nil)
	require.GreaterOrEqual(t, f.numBits, uint32(1024))
}

func TestFarmHashIsDistinctHashFamily(t *testing.T) {
	f1 := New(1000, 0.01, XXHash64)
	f2 := New(1000, 0.01, FarmHash64)
	f1.Add(99)
	f2.Add(99)
	// Both report the key present under their own hash family...
	require.True(t, f1.Test(99))
	require.True(t, f2.Test(99))
	// ...but the underlying hash values differ (the two call sites don't
	// collide on the same bit pattern for the same key).
	require.NotEqual(t, XXHash64(99), FarmHash64(99))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	f := New(1000, 0.01, nil)
	f.Add(1)
	f.Add(2)
	f.Add(100)

	var buf bytes.Buffer
	require.NoError(t, f.Store(&buf))

	loaded := &Filter{hash: XXHash64}
	require.NoError(t, loaded.Load(&buf))

	require.True(t, loaded.Test(1))
	require.True(t, loaded.Test(2))
	require.True(t, loaded.Test(100))
	require.False(t, loaded.Test(3))
}
