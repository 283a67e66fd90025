// Package largepage implements the small-page fan-out described in
// spec.md §4.5: a large page is P small pages addressed by the low bits
// of a key once its top LARGE_PAGE_SHIFT bits have been stripped by the
// directory layer. Grounded on the original cache's
// core/include/large_page.hpp.
package largepage

import (
	"io"

	"github.com/pkg/errors"

	"github.com/vkuzmenko/pagecache/smallpage"
	"github.com/vkuzmenko/pagecache/tinylfu"
)

// SmallPageCount returns P = 2^smallPageShift + 1, the "+1" being the
// collision-reduction tweak from spec.md §4.5.
func SmallPageCount(smallPageShift uint) int {
	return (1 << smallPageShift) + 1
}

// SmallPageIndex strips the top largePageShift bits of key (those belong
// to the directory/large-page index) and takes the remainder modulo P.
func SmallPageIndex(key uint32, largePageShift uint, pageCount int) int {
	stripped := key << largePageShift >> largePageShift
	return int(stripped) % pageCount
}

// Page is a large page: a fan-out of small pages, indexed by the low bits
// of a key.
type Page struct {
	smallPages     []*smallpage.Page
	largePageShift uint
}

// New allocates a Page with pageCount small pages, each of size
// smallPageSize slots, all sharing estimator for frequency lookups. If
// acceleratorFPR is > 0, every small page gets its own per-page Bloom
// filter negative-lookup accelerator (spec.md SUPPLEMENTED FEATURES,
// grounded on the original's USE_BF_FLAG path).
func New(pageCount int, smallPageSize int, largePageShift uint, estimator *tinylfu.Estimator, acceleratorFPR float64) *Page {
	p := &Page{
		smallPages:     make([]*smallpage.Page, pageCount),
		largePageShift: largePageShift,
	}
	for i := range p.smallPages {
		if acceleratorFPR > 0 {
			p.smallPages[i] = smallpage.NewWithAccelerator(smallPageSize, estimator, acceleratorFPR)
		} else {
			p.smallPages[i] = smallpage.New(smallPageSize, estimator)
		}
	}
	return p
}

func (p *Page) index(key uint32) int {
	return SmallPageIndex(key, p.largePageShift, len(p.smallPages))
}

// Get routes key to its small page and delegates.
func (p *Page) Get(key uint32, now uint32) bool {
	return p.smallPages[p.index(key)].Get(key, now)
}

// Update routes key to its small page and delegates.
func (p *Page) Update(key uint32, exp uint32) bool {
	return p.smallPages[p.index(key)].Update(key, exp)
}

// Clear empties every small page.
func (p *Page) Clear() {
	for _, sp := range p.smallPages {
		sp.Clear()
	}
}

// ByteSize is the number of bytes Store/Load consume for a large page with
// pageCount small pages of size smallPageSize each.
func ByteSize(pageCount, smallPageSize int) int {
	return pageCount * smallpage.ByteSize(smallPageSize)
}

// Store writes every small page's flat buffer back to back into w, in
// index order (spec.md §4.5: "a single flat buffer ... for bulk I/O").
func (p *Page) Store(w io.Writer) error {
	for i, sp := range p.smallPages {
		if err := sp.Store(w); err != nil {
			return errors.Wrapf(err, "largepage: write small page %d", i)
		}
	}
	return nil
}

// Load reads back a large page previously written by Store.
func (p *Page) Load(r io.Reader) error {
	for i, sp := range p.smallPages {
		if err := sp.Load(r); err != nil {
			return errors.Wrapf(err, "largepage: read small page %d", i)
		}
	}
	return nil
}
