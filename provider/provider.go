// Package provider implements the large-page directory and resident pool
// described in spec.md §4.6: a directory of D metadata entries tracking
// access frequency, a resident pool of R large pages kept in memory, and
// the frequency-hysteresis swap policy that decides which large page gets
// evicted to disk to make room for a hotter one. Grounded on the original
// cache's core/include/large_page_provider.hpp, with disk I/O modeled on
// the teacher's z/file.go MmapFile error-wrapping idiom (plain file I/O
// here, since the spec calls for whole-file Store/Load rather than mmap).
package provider

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vkuzmenko/pagecache/largepage"
	"github.com/vkuzmenko/pagecache/tinylfu"
)

// directoryEntry is one of the D metadata slots: its running access
// frequency, and which resident slot (if any) currently holds its page.
type directoryEntry struct {
	frequency    uint64
	residentSlot int // -1 if not resident
}

// freqEntry implements comparable for the startup top-R selector.
type freqEntry struct {
	index     int
	frequency uint64
}

// Less orders freqEntry by ascending frequency, so a bounded minHeap of
// size R retains the R entries with the highest frequency.
func (f *freqEntry) Less(other *freqEntry) bool {
	if f.frequency != other.frequency {
		return f.frequency < other.frequency
	}
	// Stable tie-break: lower directory index wins (sorts "larger").
	return f.index > other.index
}

// Provider owns the directory and the resident large-page pool.
type Provider struct {
	dataDir string

	directory  []directoryEntry
	resident   []*largepage.Page // len == R; nil entries never occur after Open
	residentOf []int             // residentOf[slot] = directory index occupying it

	time uint64

	largePageShift uint
	period         uint64
	freqThreshold  uint64
	smallPageShift uint
	smallPageSize  int
	acceleratorFPR float64
	estimator      *tinylfu.Estimator
}

// Config bundles the sizing and policy parameters Open needs.
type Config struct {
	DirectorySize      int // D
	ResidentCount      int // R
	LargePageShift     uint
	SmallPageShift     uint
	SmallPageSize      int // S
	LargePagePeriod    uint64
	FrequencyThreshold uint64
	AcceleratorFPR     float64 // 0 disables the per-page Bloom accelerator
}

// Open constructs a Provider rooted at dataDir, creating the directory if
// missing, and loads header.bin plus the initial resident set if present.
func Open(dataDir string, cfg Config, estimator *tinylfu.Estimator) (*Provider, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "provider: create data dir")
	}

	p := &Provider{
		dataDir:        dataDir,
		directory:      make([]directoryEntry, cfg.DirectorySize),
		resident:       make([]*largepage.Page, cfg.ResidentCount),
		residentOf:     make([]int, cfg.ResidentCount),
		largePageShift: cfg.LargePageShift,
		period:         cfg.LargePagePeriod,
		freqThreshold:  cfg.FrequencyThreshold,
		smallPageShift: cfg.SmallPageShift,
		smallPageSize:  cfg.SmallPageSize,
		acceleratorFPR: cfg.AcceleratorFPR,
		estimator:      estimator,
	}
	for i := range p.directory {
		p.directory[i].residentSlot = -1
	}

	freqs, err := p.loadHeader()
	if err != nil {
		return nil, err
	}

	residentIndices := p.initialResidents(freqs, cfg.ResidentCount)
	for slot, idx := range residentIndices {
		p.directory[idx].residentSlot = slot
		p.residentOf[slot] = idx
		page, err := p.loadPageOrZero(idx)
		if err != nil {
			return nil, err
		}
		p.resident[slot] = page
	}

	return p, nil
}

// pageCount is P, the small-page fan-out of each large page.
func (p *Provider) pageCount() int {
	return largepage.SmallPageCount(p.smallPageShift)
}

// StoreByteSize reports how many bytes Store writes: the header (8 bytes
// per directory entry) plus one full large-page image per resident slot.
// Exposed for callers that want to log Store's I/O volume.
func (p *Provider) StoreByteSize() int64 {
	header := int64(len(p.directory)) * 8
	perPage := int64(largepage.ByteSize(p.pageCount(), p.smallPageSize))
	return header + perPage*int64(len(p.resident))
}

func (p *Provider) newEmptyPage() *largepage.Page {
	return largepage.New(p.pageCount(), p.smallPageSize, p.largePageShift, p.estimator, p.acceleratorFPR)
}

// initialResidents picks the top-R directory indices by frequency (stable
// tie-break on index), using the bounded min-heap selector. If freqs is
// nil (no header present), indices 0..R-1 are used with frequency 0.
func (p *Provider) initialResidents(freqs []uint64, r int) []int {
	if freqs == nil {
		indices := make([]int, r)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	h := newMinHeap[freqEntry]()
	for i, f := range freqs {
		p.directory[i].frequency = f
		entry := &freqEntry{index: i, frequency: f}
		if h.Size() < r {
			h.Insert(entry)
			continue
		}
		if min, ok := h.Peek(); ok && entry.Less(min) {
			// entry is smaller than the current minimum kept; it's worse
			// than everything already retained, so discard it.
			continue
		}
		h.Extract()
		h.Insert(entry)
	}

	selected := make([]freqEntry, 0, h.Size())
	for {
		item, ok := h.Extract()
		if !ok {
			break
		}
		selected = append(selected, *item)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].frequency > selected[j].frequency
	})

	indices := make([]int, len(selected))
	for i, e := range selected {
		indices[i] = e.index
	}
	return indices
}

// LargePageIndex returns the top LargePageShift bits of key.
func LargePageIndex(key uint32, largePageShift uint) int {
	return int(key >> (32 - largePageShift))
}

// Get runs the per-access protocol from spec.md §4.6: it ages the
// directory if the period has elapsed, bumps key's directory frequency,
// and returns the now-resident large page for key — swapping in a colder
// page's slot if key's page is hot enough to clear the hysteresis
// threshold. It returns nil on a cold-page miss. The caller (the cache
// facade) is responsible for treating a miss differently for a read
// versus an update (spec.md §4.8); the directory protocol itself is the
// same algorithm either way.
func (p *Provider) Get(key uint32) (*largepage.Page, error) {
	if p.time == p.period {
		for i := range p.directory {
			p.directory[i].frequency >>= 1
		}
		p.time = 0
	}
	p.time++

	i := LargePageIndex(key, p.largePageShift)
	p.directory[i].frequency++

	if p.directory[i].residentSlot >= 0 {
		return p.resident[p.directory[i].residentSlot], nil
	}

	worstSlot, worstFreq := p.worstResident()
	if p.directory[i].frequency <= worstFreq+p.freqThreshold {
		return nil, nil
	}

	oldIdx := p.residentOf[worstSlot]
	if err := p.storePageAt(oldIdx, p.resident[worstSlot]); err != nil {
		return nil, err
	}
	p.directory[oldIdx].residentSlot = -1

	newPage, err := p.loadPageOrZero(i)
	if err != nil {
		return nil, err
	}
	p.resident[worstSlot] = newPage
	p.residentOf[worstSlot] = i
	p.directory[i].residentSlot = worstSlot

	return newPage, nil
}

// worstResident scans the resident pool for the least-frequent directory
// entry. A full scan is acceptable per spec.md §9 ("worst resident lookup
// can be a full scan of R entries... since R ≤ ~32").
func (p *Provider) worstResident() (slot int, freq uint64) {
	freq = ^uint64(0)
	for s, idx := range p.residentOf {
		f := p.directory[idx].frequency
		if f < freq {
			freq = f
			slot = s
		}
	}
	return slot, freq
}

func (p *Provider) pageFilePath(idx int) string {
	return filepath.Join(p.dataDir, pageFileName(idx))
}

func pageFileName(idx int) string {
	return "page" + strconv.Itoa(idx) + ".bin"
}

// loadPageOrZero loads page<idx>.bin if it exists, or returns a freshly
// zeroed page otherwise (spec.md §7: "a missing file as logical zero
// state").
func (p *Provider) loadPageOrZero(idx int) (*largepage.Page, error) {
	f, err := os.Open(p.pageFilePath(idx))
	if os.IsNotExist(err) {
		return p.newEmptyPage(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "provider: open page %d", idx)
	}
	defer f.Close()

	page := p.newEmptyPage()
	if err := page.Load(f); err != nil {
		return nil, errors.Wrapf(err, "provider: load page %d", idx)
	}
	return page, nil
}

func (p *Provider) storePageAt(idx int, page *largepage.Page) error {
	f, err := os.Create(p.pageFilePath(idx))
	if err != nil {
		return errors.Wrapf(err, "provider: create page %d", idx)
	}
	defer f.Close()

	if err := page.Store(f); err != nil {
		return errors.Wrapf(err, "provider: store page %d", idx)
	}
	return nil
}

// Store writes header.bin (the directory-frequency vector, in index
// order) and one page<i>.bin per currently resident large page.
func (p *Provider) Store() error {
	if err := p.storeHeader(); err != nil {
		return err
	}
	for slot, idx := range p.residentOf {
		if err := p.storePageAt(idx, p.resident[slot]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) headerPath() string {
	return filepath.Join(p.dataDir, "header.bin")
}

func (p *Provider) storeHeader() error {
	f, err := os.Create(p.headerPath())
	if err != nil {
		return errors.Wrap(err, "provider: create header")
	}
	defer f.Close()

	buf := make([]byte, 8)
	for _, entry := range p.directory {
		binary.LittleEndian.PutUint64(buf, entry.frequency)
		if _, err := f.Write(buf); err != nil {
			return errors.Wrap(err, "provider: write header")
		}
	}
	return nil
}

// loadHeader reads header.bin if present, returning one frequency per
// directory entry. Returns (nil, nil) if the file doesn't exist.
func (p *Provider) loadHeader() ([]uint64, error) {
	f, err := os.Open(p.headerPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "provider: open header")
	}
	defer f.Close()

	freqs := make([]uint64, len(p.directory))
	buf := make([]byte, 8)
	for i := range freqs {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, errors.Wrap(err, "provider: read header")
		}
		freqs[i] = binary.LittleEndian.Uint64(buf)
	}
	return freqs, nil
}
