package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkuzmenko/pagecache/tinylfu"
)

func testConfig() Config {
	return Config{
		DirectorySize:      4,
		ResidentCount:      2,
		LargePageShift:     2,
		SmallPageShift:     3,
		SmallPageSize:      8,
		LargePagePeriod:    1 << 20,
		FrequencyThreshold: 3,
	}
}

func keyForDirectory(idx uint32) uint32 {
	return idx << 30
}

func TestOpenWithNoHeaderUsesFirstRIndices(t *testing.T) {
	p, err := Open(t.TempDir(), testConfig(), tinylfu.New(64, 0))
	require.NoError(t, err)
	require.Equal(t, 0, p.directory[0].residentSlot)
	require.Equal(t, 1, p.directory[1].residentSlot)
	require.Equal(t, -1, p.directory[2].residentSlot)
}

func TestGetHitsResidentPage(t *testing.T) {
	p, err := Open(t.TempDir(), testConfig(), tinylfu.New(64, 0))
	require.NoError(t, err)

	page, err := p.Get(keyForDirectory(0))
	require.NoError(t, err)
	require.NotNil(t, page)
}

func TestGetMissesColdPageBelowThreshold(t *testing.T) {
	p, err := Open(t.TempDir(), testConfig(), tinylfu.New(64, 0))
	require.NoError(t, err)

	page, err := p.Get(keyForDirectory(2))
	require.NoError(t, err)
	require.Nil(t, page)
}

// TestLargePageSwap exercises spec.md §8 scenario 4: with D=4, R=2,
// FREQUENCY_THRESHOLD=3, touching resident pages 0 and 1 once each, then
// touching non-resident page 2 five times in a row, must trigger a swap
// on the fifth touch, persisting the evicted page to disk.
func TestLargePageSwap(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(dir, testConfig(), tinylfu.New(64, 0))
	require.NoError(t, err)

	_, err = p.Get(keyForDirectory(0))
	require.NoError(t, err)
	_, err = p.Get(keyForDirectory(1))
	require.NoError(t, err)

	var page interface{}
	for i := 0; i < 5; i++ {
		page, err = p.Get(keyForDirectory(2))
		require.NoError(t, err)
	}
	require.NotNil(t, page)

	_, err0 := os.Stat(filepath.Join(dir, "page0.bin"))
	_, err1 := os.Stat(filepath.Join(dir, "page1.bin"))
	require.True(t, err0 == nil || err1 == nil, "expected the evicted resident's page file to be written")
}

func TestAgingHalvesFrequenciesAtPeriod(t *testing.T) {
	cfg := testConfig()
	cfg.LargePagePeriod = 2
	p, err := Open(t.TempDir(), cfg, tinylfu.New(64, 0))
	require.NoError(t, err)

	_, err = p.Get(keyForDirectory(0))
	require.NoError(t, err)
	_, err = p.Get(keyForDirectory(0))
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.directory[0].frequency)

	// Third call crosses the period: ages (halves) before incrementing.
	_, err = p.Get(keyForDirectory(0))
	require.NoError(t, err)
	require.Equal(t, uint64(2), p.directory[0].frequency)
}

func TestStoreThenReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	est := tinylfu.New(64, 0)
	p, err := Open(dir, testConfig(), est)
	require.NoError(t, err)

	page, err := p.Get(keyForDirectory(0))
	require.NoError(t, err)
	require.True(t, page.Update(42, 1000))

	require.NoError(t, p.Store())

	reopened, err := Open(dir, testConfig(), est)
	require.NoError(t, err)
	require.Equal(t, p.directory[0].frequency, reopened.directory[0].frequency)

	page2, err := reopened.Get(keyForDirectory(0))
	require.NoError(t, err)
	require.True(t, page2.Get(42, 500))
}
