// Package pager implements the buffer-manager abstraction the B+-tree core
// is built on top of: new_page, pin, unpin, and free_page, plus the slotted
// node-page substrate in slotted.go.
package pager

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/ncw/directio"

	"github.com/yoshihanslin/Database-BTree/pkg/config"
	"github.com/yoshihanslin/Database-BTree/pkg/list"
)

// Pagesize is the size of an individual page - defaults to 4kb, matching the
// OS block size directio requires for unbuffered I/O.
const Pagesize int64 = directio.BlockSize

// Error for when there are no free/unpinned pages to be used.
var ErrRanOutOfPages = errors.New("no available pages")

// ErrPageCorrupted is returned by Pin when a page's on-disk checksum does not
// match its contents.
var ErrPageCorrupted = errors.New("page failed checksum verification")

// ErrPagePinned is returned by FreePage when the target page is still pinned.
var ErrPagePinned = errors.New("cannot free a pinned page")

// Pager is the buffer manager: it owns a fixed-size pool of in-memory page
// frames and a backing file, and arbitrates pinning/unpinning/eviction
// between callers.
type Pager struct {
	file     *os.File // File descriptor for the file that backs this pager on disk.
	numPages int64    // The number of pages that have ever been allocated (high-water mark).

	freedPages *bitset.BitSet // Page numbers freed by FreePage and available for reuse by NewPage.

	freeList     *list.List // A list of pre-allocated (but unused) frames.
	unpinnedList *list.List // Frames holding page data that is not currently in use.
	pinnedList   *list.List // Frames currently pinned by a caller.

	// The page table, mapping pagenums to the link holding their frame.
	pageTable map[int64]*list.Link
}

// New constructs a new Pager, backing it with a database file at filePath.
// See [*Pager.Open] for details on how the backing file is handled.
func New(filePath string) (pager *Pager, err error) {
	pager = &Pager{}
	pager.pageTable = make(map[int64]*list.Link)
	pager.freedPages = bitset.New(0)
	pager.freeList = list.NewList()
	pager.unpinnedList = list.NewList()
	pager.pinnedList = list.NewList()
	frames := directio.AlignedBlock(int(Pagesize) * config.MaxPagesInBuffer)
	for i := 0; i < config.MaxPagesInBuffer; i++ {
		frame := frames[i*int(Pagesize) : (i+1)*int(Pagesize)]
		page := Page{pager: pager, pagenum: InvalidPage, dirty: false, data: frame}
		pager.freeList.PushTail(&page)
	}

	err = pager.Open(filePath)
	if err != nil {
		pager = nil
	}
	return
}

// GetFileName returns the file name/path used to open the pager's backing file.
func (pager *Pager) GetFileName() (filename string) {
	return pager.file.Name()
}

// GetNumPages returns the number of pages ever allocated by this pager.
func (pager *Pager) GetNumPages() (numPages int64) {
	return pager.numPages
}

// Open (re-)initializes the pager with a database file at the specified
// filePath, creating it if it doesn't exist. Returns an error if the file's
// contents are not aligned to Pagesize; the Pager should not be used if so.
func (pager *Pager) Open(filePath string) (err error) {
	// Drop frames still buffered from a previous file so that every page of
	// the newly opened one is read (and checksum-verified) from disk.
	for link := pager.unpinnedList.PeekHead(); link != nil; link = pager.unpinnedList.PeekHead() {
		link.PopSelf()
		page := link.GetValue().(*Page)
		delete(pager.pageTable, page.pagenum)
		page.pagenum = InvalidPage
		pager.freeList.PushTail(page)
	}
	if idx := strings.LastIndex(filePath, "/"); idx != -1 {
		err = os.MkdirAll(filePath[:idx], 0775)
		if err != nil {
			return err
		}
	}
	pager.file, err = directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	var info os.FileInfo
	var length int64
	if info, err = pager.file.Stat(); err == nil {
		length = info.Size()
		if length%Pagesize != 0 {
			return errors.New("index file has been corrupted")
		}
	}
	pager.numPages = length / Pagesize
	return nil
}

// Close flushes all dirty pages to disk and closes the backing file. Returns
// an error if any page is still pinned.
func (pager *Pager) Close() error {
	if curLink := pager.pinnedList.PeekHead(); curLink != nil {
		return errors.New("pages are still pinned on close")
	}
	pager.FlushAllPages()
	return pager.file.Close()
}

// fillPageFromDisk populates a page's data field from disk and verifies its
// checksum.
func (pager *Pager) fillPageFromDisk(page *Page) error {
	if _, err := pager.file.Seek(page.pagenum*Pagesize, 0); err != nil {
		return err
	}
	if _, err := pager.file.Read(page.data); err != nil && err != io.EOF {
		return err
	}
	if !page.verifyChecksum() {
		return ErrPageCorrupted
	}
	return nil
}

// newFrame returns a currently unused frame from the free or unpinned list,
// assigning it pagenum, or ErrRanOutOfPages if none are available.
func (pager *Pager) newFrame(pagenum int64) (newPage *Page, err error) {
	if freeLink := pager.freeList.PeekHead(); freeLink != nil {
		freeLink.PopSelf()
		newPage = freeLink.GetValue().(*Page)
	} else if unpinLink := pager.unpinnedList.PeekHead(); unpinLink != nil {
		unpinLink.PopSelf()
		newPage = unpinLink.GetValue().(*Page)
		pager.FlushPage(newPage)
		delete(pager.pageTable, newPage.pagenum)
	} else {
		return nil, ErrRanOutOfPages
	}
	newPage.pagenum = pagenum
	newPage.dirty = false
	newPage.pinCount = 1
	return newPage, nil
}

// nextPageNum returns the next page number to hand out, preferring a
// previously freed page number over growing the file.
func (pager *Pager) nextPageNum() int64 {
	if idx, ok := pager.freedPages.NextSet(0); ok {
		pager.freedPages.Clear(idx)
		return int64(idx)
	}
	pagenum := pager.numPages
	pager.numPages++
	return pagenum
}

// NewPage allocates and pins a fresh page, reusing a freed page number if one
// is available.
func (pager *Pager) NewPage() (page *Page, err error) {
	pagenum := pager.nextPageNum()
	page, err = pager.newFrame(pagenum)
	if err != nil {
		return nil, err
	}
	page.dirty = true
	newLink := pager.pinnedList.PushTail(page)
	pager.pageTable[pagenum] = newLink
	if pagenum >= pager.numPages {
		pager.numPages = pagenum + 1
	}
	return page, nil
}

// Pin returns the page with the given pagenum, reading it from disk if it is
// not already buffered, and increments its pin count.
func (pager *Pager) Pin(pagenum int64) (page *Page, err error) {
	var newLink *list.Link
	if pagenum < 0 || pagenum >= pager.numPages {
		return nil, errors.New("invalid pagenum")
	}
	if link, ok := pager.pageTable[pagenum]; ok {
		page = link.GetValue().(*Page)
		if link.GetList() == pager.unpinnedList {
			link.PopSelf()
			newLink = pager.pinnedList.PushTail(page)
			pager.pageTable[pagenum] = newLink
		}
		page.get()
		return page, nil
	}

	page, err = pager.newFrame(pagenum)
	if err != nil {
		return nil, err
	}
	page.dirty = false
	if err = pager.fillPageFromDisk(page); err != nil {
		pager.freeList.PushTail(page)
		return nil, err
	}
	newLink = pager.pinnedList.PushTail(page)
	pager.pageTable[pagenum] = newLink
	return page, nil
}

// Unpin releases a reference to page, marking it dirty (and stamping a fresh
// checksum) if dirty is true. Once its pin count drops to zero the page
// becomes eligible for eviction.
func (pager *Pager) Unpin(page *Page, dirty bool) error {
	if dirty {
		page.dirty = true
		page.writeChecksum()
	}
	ret := page.put()
	if ret == 0 {
		link := pager.pageTable[page.pagenum]
		link.PopSelf()
		newLink := pager.unpinnedList.PushTail(page)
		pager.pageTable[page.pagenum] = newLink
	}
	if ret < 0 {
		return errors.New("pinCount for page is < 0")
	}
	return nil
}

// FreePage releases pagenum back to the pool of reusable page numbers. It is
// an error to free a page that is currently pinned.
func (pager *Pager) FreePage(pagenum int64) error {
	if link, ok := pager.pageTable[pagenum]; ok {
		page := link.GetValue().(*Page)
		if link.GetList() == pager.pinnedList {
			return ErrPagePinned
		}
		link.PopSelf()
		delete(pager.pageTable, pagenum)
		pager.freeList.PushTail(page)
	}
	pager.freedPages.Set(uint(pagenum))
	return nil
}

// FreedPageNumbers returns every page number currently on the free list, used
// by the tree's invariant checker to confirm no freed page is still
// reachable from the root.
func (pager *Pager) FreedPageNumbers() []int64 {
	nums := make([]int64, 0, pager.freedPages.Count())
	for i, ok := pager.freedPages.NextSet(0); ok; i, ok = pager.freedPages.NextSet(i + 1) {
		nums = append(nums, int64(i))
	}
	return nums
}

// FlushPage flushes a page's data to disk if it is dirty.
func (pager *Pager) FlushPage(page *Page) {
	if page.IsDirty() {
		pager.file.WriteAt(page.data, page.pagenum*Pagesize)
		page.SetDirty(false)
	}
}

// FlushAllPages flushes every dirty page, pinned or not, to disk.
func (pager *Pager) FlushAllPages() {
	writer := func(link *list.Link) { pager.FlushPage(link.GetValue().(*Page)) }
	pager.pinnedList.Map(writer)
	pager.unpinnedList.Map(writer)
}
