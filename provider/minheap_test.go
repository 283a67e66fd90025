package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinHeapExtractsAscending(t *testing.T) {
	h := newMinHeap[freqEntry]()
	h.Insert(&freqEntry{index: 0, frequency: 5})
	h.Insert(&freqEntry{index: 1, frequency: 1})
	h.Insert(&freqEntry{index: 2, frequency: 3})

	first, ok := h.Extract()
	require.True(t, ok)
	require.Equal(t, uint64(1), first.frequency)

	second, ok := h.Extract()
	require.True(t, ok)
	require.Equal(t, uint64(3), second.frequency)

	third, ok := h.Extract()
	require.True(t, ok)
	require.Equal(t, uint64(5), third.frequency)

	_, ok = h.Extract()
	require.False(t, ok)
}

func TestMinHeapPeekDoesNotRemove(t *testing.T) {
	h := newMinHeap[freqEntry]()
	h.Insert(&freqEntry{index: 0, frequency: 2})
	peeked, ok := h.Peek()
	require.True(t, ok)
	require.Equal(t, uint64(2), peeked.frequency)
	require.Equal(t, 1, h.Size())
}
