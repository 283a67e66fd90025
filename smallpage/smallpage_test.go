package smallpage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkuzmenko/pagecache/tinylfu"
)

func newTestPage(size int) *Page {
	return New(size, tinylfu.New(64, 0))
}

func TestGetMissOnEmptyPage(t *testing.T) {
	p := newTestPage(8)
	require.False(t, p.Get(1, 0))
}

func TestUpdateThenGetRoundTrip(t *testing.T) {
	p := newTestPage(8)
	require.True(t, p.Update(42, 1000))
	require.True(t, p.Get(42, 500))
	require.False(t, p.Get(42, 2000))
	// Once expired and evicted, stays a miss.
	require.False(t, p.Get(42, 2000))
}

// TestSortInvariant exercises P1: after any successful Get/Update, non-
// sentinel keys are sorted non-increasing by estimate.
func TestSortInvariant(t *testing.T) {
	p := newTestPage(8)
	for k := uint32(1); k <= 8; k++ {
		require.True(t, p.Update(k, 1000))
	}
	for i := 0; i < 10; i++ {
		p.Get(8, 1)
	}
	require.Equal(t, uint32(8), p.keys[0])
	for i := 0; i < len(p.keys)-1; i++ {
		if p.keys[i+1] == Sentinel {
			break
		}
		require.GreaterOrEqual(t, p.estimator.Estimate(p.keys[i]), p.estimator.Estimate(p.keys[i+1]))
	}
}

// TestCompactionIsContiguousSuffix exercises P2.
func TestCompactionIsContiguousSuffix(t *testing.T) {
	p := newTestPage(8)
	for k := uint32(1); k <= 4; k++ {
		require.True(t, p.Update(k, 1000))
	}
	// Expire key 2 (whichever slot it landed in) by querying past its exp.
	require.False(t, p.Get(2, 5000))

	seenSentinel := false
	for _, k := range p.keys {
		if k == Sentinel {
			seenSentinel = true
			continue
		}
		require.False(t, seenSentinel, "non-sentinel key found after a sentinel slot")
	}
}

// TestAdmissionRejection exercises spec.md §8 scenario 2: a full page
// whose residents have been raised via repeated Gets rejects a cold new
// key at the tail contest.
func TestAdmissionRejection(t *testing.T) {
	p := newTestPage(8)
	for k := uint32(1); k <= 8; k++ {
		require.True(t, p.Update(k, 100000))
	}
	for k := uint32(1); k <= 8; k++ {
		for i := 0; i < 100; i++ {
			p.Get(k, 1)
		}
	}
	require.False(t, p.Update(999, 100000))
	require.False(t, p.Get(999, 1))
}

// TestBubbleMovesHotKeyToHead exercises spec.md §8 scenario 3.
func TestBubbleMovesHotKeyToHead(t *testing.T) {
	p := newTestPage(8)
	for k := uint32(1); k <= 8; k++ {
		require.True(t, p.Update(k, 100000))
	}
	for i := 0; i < 10; i++ {
		p.Get(8, 1)
	}
	require.Equal(t, uint32(8), p.keys[0])
}

func TestClearEmptiesAllSlots(t *testing.T) {
	p := newTestPage(4)
	require.True(t, p.Update(1, 1000))
	p.Clear()
	for _, k := range p.keys {
		require.Equal(t, Sentinel, k)
	}
	require.False(t, p.Get(1, 0))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	p := newTestPage(8)
	require.True(t, p.Update(1, 100))
	require.True(t, p.Update(2, 200))

	var buf bytes.Buffer
	require.NoError(t, p.Store(&buf))

	loaded := newTestPage(8)
	require.NoError(t, loaded.Load(&buf))

	require.Equal(t, p.keys, loaded.keys)
	require.Equal(t, p.expirations, loaded.expirations)
}
