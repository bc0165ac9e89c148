package pager

// InvalidPage is the sentinel page id denoting the absence of a page.
const InvalidPage int64 = -1

// Page caches a page from disk and stores additional metadata. It is the
// frame a buffer manager pins and unpins on a caller's behalf; the raw bytes
// under its data are interpreted by pkg/bptree as either a leaf or an index
// node through the slotted-page accessors in slotted.go.
//
// Concurrency note: unlike the teacher's Page, this one carries no lock.
// Single-writer cooperative access is assumed throughout (see spec.md §5);
// the pin count alone is enough to catch unbalanced pin/unpin pairs.
type Page struct {
	pager    *Pager // Pointer to the pager that this page belongs to.
	pagenum  int64  // Unique identifier for the page, also its offset in the backing file.
	pinCount int64  // The number of active references to this page.
	dirty    bool   // Whether the page's data has changed and needs to be written to disk.
	data     []byte // Serialized data (the actual Pagesize bytes of the page).
}

// GetPager returns the pager this page belongs to.
func (page *Page) GetPager() *Pager {
	return page.pager
}

// GetPageNum returns the page's pagenum (unique identifier).
func (page *Page) GetPageNum() int64 {
	return page.pagenum
}

// IsDirty reports whether the page's data has changed and needs to be written to disk.
func (page *Page) IsDirty() bool {
	return page.dirty
}

// SetDirty changes the dirty status of a page.
func (page *Page) SetDirty(dirty bool) {
	page.dirty = dirty
}

// GetData returns the byte data held by the page.
func (page *Page) GetData() []byte {
	return page.data
}

// Update overwrites `size` bytes of the page's data at the given offset and
// marks the page dirty.
func (page *Page) Update(data []byte, offset int64, size int64) {
	page.dirty = true
	copy(page.data[offset:offset+size], data)
}

// get increments the pin count, indicating that another caller is using this page.
func (page *Page) get() {
	page.pinCount++
}

// put decrements the pin count, indicating that a caller is done using this page.
func (page *Page) put() int64 {
	page.pinCount--
	return page.pinCount
}
