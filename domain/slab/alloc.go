// Package slab implements the paged, typed byte arena every persistent
// AquaDEX structure lives in. A region is a plain byte slice: a page
// table followed by fixed 16 KiB pages, each page owned by at most one
// logical container type. The region is its own serialized form; all
// cross references are u32 handles, never pointers.
package slab

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// PageSize is the fixed page granularity of every region.
	PageSize = 16384

	// TypeMax bounds the number of logical containers per region.
	TypeMax = 16

	// TypeMaxPages bounds the pages any single type may claim.
	TypeMaxPages = 16

	typePageSize = 8 + 8 + 8 + 2*TypeMaxPages
	tableSize    = 2 + TypeMax*typePageSize
)

var (
	// ErrCapacity signals that the region's page pool, a type's page
	// budget, or a container's item budget is exhausted.
	ErrCapacity = errors.New("slab: capacity exhausted")

	// ErrBadRegion signals a region too small or misaligned to hold a
	// page table plus at least one page.
	ErrBadRegion = errors.New("slab: bad region")

	// ErrBadHandle signals an index outside the live range of a type.
	ErrBadHandle = errors.New("slab: bad handle")
)

// Alloc is a view over one formatted region.
type Alloc struct {
	buf   []byte
	pages int
}

// RegionSize returns the byte length of a region with n pages.
func RegionSize(n int) int {
	return tableSize + n*PageSize
}

// Format zeroes the page table of buf and returns a view over it.
// Any bytes beyond the last whole page are ignored.
func Format(buf []byte) (*Alloc, error) {
	a, err := Attach(buf)
	if err != nil {
		return nil, err
	}
	for i := range a.buf[:tableSize] {
		a.buf[i] = 0
	}
	return a, nil
}

// Attach wraps an already formatted region.
func Attach(buf []byte) (*Alloc, error) {
	if len(buf) < tableSize+PageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadRegion, len(buf))
	}
	pages := (len(buf) - tableSize) / PageSize
	return &Alloc{buf: buf, pages: pages}, nil
}

// Bytes exposes the raw region, table and all pages included.
func (a *Alloc) Bytes() []byte { return a.buf }

// Pages reports the total page count of the region.
func (a *Alloc) Pages() int { return a.pages }

func (a *Alloc) topUnusedPage() uint16 {
	return binary.LittleEndian.Uint16(a.buf[0:2])
}

func (a *Alloc) setTopUnusedPage(v uint16) {
	binary.LittleEndian.PutUint16(a.buf[0:2], v)
}

// FreePages reports pages not yet claimed by any type.
func (a *Alloc) FreePages() int {
	return a.pages - int(a.topUnusedPage())
}

// typePage returns the 56-byte table entry for a type.
func (a *Alloc) typePage(id uint16) []byte {
	off := 2 + int(id)*typePageSize
	return a.buf[off : off+typePageSize]
}

func (a *Alloc) headerSize(id uint16) int {
	return int(binary.LittleEndian.Uint64(a.typePage(id)[0:8]))
}

func (a *Alloc) offsetSize(id uint16) int {
	return int(binary.LittleEndian.Uint64(a.typePage(id)[8:16]))
}

// AllocItems reports the live entry count of a type.
func (a *Alloc) AllocItems(id uint16) uint64 {
	return binary.LittleEndian.Uint64(a.typePage(id)[16:24])
}

func (a *Alloc) setAllocItems(id uint16, n uint64) {
	binary.LittleEndian.PutUint64(a.typePage(id)[16:24], n)
}

// SetLive records the live entry count for containers that manage
// their own occupancy (the trade ring).
func (a *Alloc) SetLive(id uint16, n uint64) { a.setAllocItems(id, n) }

func (a *Alloc) addAllocItems(id uint16, d int64) {
	a.setAllocItems(id, uint64(int64(a.AllocItems(id))+d))
}

func (a *Alloc) pageEntry(id uint16, ordinal int) uint16 {
	return binary.LittleEndian.Uint16(a.typePage(id)[24+2*ordinal:])
}

func (a *Alloc) setPageEntry(id uint16, ordinal int, page uint16) {
	binary.LittleEndian.PutUint16(a.typePage(id)[24+2*ordinal:], page)
}

// claimedPages counts pages already assigned to a type. Pages are
// claimed densely in ordinal order and never released, and the global
// pool hands out index 0 first, so a zero entry past ordinal 0 means
// unclaimed.
func (a *Alloc) claimedPages(id uint16) int {
	if a.headerSize(id) == 0 {
		return 0
	}
	n := 1
	for n < TypeMaxPages && a.pageEntry(id, n) != 0 {
		n++
	}
	return n
}

// InitType registers a container type and claims its first page. The
// leading blob of headerSize bytes on the first page holds the type's
// overhead fields; the same reservation is repeated on every later
// page so item addressing is uniform.
func (a *Alloc) InitType(id uint16, headerSize int) error {
	if id >= TypeMax {
		return fmt.Errorf("%w: type %d", ErrBadHandle, id)
	}
	if a.headerSize(id) != 0 {
		return fmt.Errorf("slab: type %d already initialized", id)
	}
	if headerSize <= 0 || headerSize >= PageSize {
		return fmt.Errorf("%w: header size %d", ErrBadRegion, headerSize)
	}
	page, err := a.claimPage()
	if err != nil {
		return err
	}
	tp := a.typePage(id)
	binary.LittleEndian.PutUint64(tp[0:8], uint64(headerSize))
	binary.LittleEndian.PutUint64(tp[8:16], uint64(headerSize))
	binary.LittleEndian.PutUint64(tp[16:24], 0)
	a.setPageEntry(id, 0, page)
	hdr := a.Header(id)
	for i := range hdr {
		hdr[i] = 0
	}
	return nil
}

func (a *Alloc) claimPage() (uint16, error) {
	top := a.topUnusedPage()
	if int(top) >= a.pages {
		return 0, fmt.Errorf("%w: no free pages", ErrCapacity)
	}
	a.setTopUnusedPage(top + 1)
	return top, nil
}

func (a *Alloc) pageData(page uint16) []byte {
	off := tableSize + int(page)*PageSize
	return a.buf[off : off+PageSize]
}

// Header returns the leading blob of a type's first page.
func (a *Alloc) Header(id uint16) []byte {
	return a.pageData(a.pageEntry(id, 0))[:a.headerSize(id)]
}

func (a *Alloc) itemsPerPage(id uint16, itemSize int) int {
	return (PageSize - a.offsetSize(id)) / itemSize
}

// EnsureIndex makes index addressable, claiming a fresh page from the
// global pool when the index lands past the type's claimed pages.
// Fails with ErrCapacity once the pool or the type's page budget is
// exhausted; a claimed page is never returned to the pool.
func (a *Alloc) EnsureIndex(id uint16, itemSize, index int) error {
	per := a.itemsPerPage(id, itemSize)
	ordinal := index / per
	if ordinal >= TypeMaxPages {
		return fmt.Errorf("%w: type %d page budget", ErrCapacity, id)
	}
	claimed := a.claimedPages(id)
	if ordinal < claimed {
		return nil
	}
	if ordinal != claimed {
		return fmt.Errorf("%w: sparse page claim", ErrBadHandle)
	}
	page, err := a.claimPage()
	if err != nil {
		return err
	}
	a.setPageEntry(id, ordinal, page)
	// Fresh claims come from the zeroed tail of the region on format;
	// re-attached regions keep whatever was persisted.
	return nil
}

// Item returns the bytes of one record. The page holding index must
// already be claimed.
func (a *Alloc) Item(id uint16, itemSize, index int) ([]byte, error) {
	per := a.itemsPerPage(id, itemSize)
	ordinal := index / per
	if ordinal >= a.claimedPages(id) {
		return nil, fmt.Errorf("%w: type %d index %d", ErrBadHandle, id, index)
	}
	page := a.pageEntry(id, ordinal)
	off := a.offsetSize(id) + (index%per)*itemSize
	return a.pageData(page)[off : off+itemSize], nil
}
