package pager

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// Slotted-page substrate. Each page is laid out as:
//
//	[0:1)   node type tag        (1 byte)
//	[1:3)   slot count           (uint16)
//	[3:5)   free space offset    (uint16, start of the heap region)
//	[5:13)  prev sibling page id (int64)
//	[13:21) next sibling page id (int64)
//	[21:29) xxhash64 checksum    (uint64, over everything else in the page)
//	[29:32) reserved/padding
//	[32:headerEnd+4*n) slot directory: n * (offset uint16, length uint16)
//	...free space...
//	[freeSpaceOffset:Pagesize) record heap, growing toward lower offsets
//
// This mirrors the header fields (prev/next pointers, checksum, slot array)
// documented in FeatureBaseDB-featurebase's bufferpool/page.go, adapted onto
// this pager's Page/Pager split and pin/unpin lifecycle.
const (
	nodeTypeOffset      = 0
	slotCountOffset     = 1
	freeSpaceOffsetOff  = 3
	prevPageOffset      = 5
	nextPageOffset      = 13
	checksumOffset      = 21
	SlottedHeaderSize   = 32
	slotEntrySize       = 4 // 2 bytes offset + 2 bytes length
)

// slotEntry is the in-memory form of one slot-directory entry.
type slotEntry struct {
	offset uint16
	length uint16
}

// InitNodePage resets the page to an empty slotted node of the given type tag.
func (page *Page) InitNodePage(nodeType byte) {
	for i := range page.data {
		page.data[i] = 0
	}
	page.dirty = true
	page.data[nodeTypeOffset] = nodeType
	page.setSlotCount(0)
	page.setFreeSpaceOffset(uint16(Pagesize))
	page.SetPrevPage(InvalidPage)
	page.SetNextPage(InvalidPage)
}

// NodeTypeTag returns the page's node-type tag byte.
func (page *Page) NodeTypeTag() byte {
	return page.data[nodeTypeOffset]
}

// SetNodeTypeTag overwrites the page's node-type tag byte.
func (page *Page) SetNodeTypeTag(tag byte) {
	page.dirty = true
	page.data[nodeTypeOffset] = tag
}

// GetPrevPage returns the page's previous-sibling pointer.
func (page *Page) GetPrevPage() int64 {
	return int64(binary.BigEndian.Uint64(page.data[prevPageOffset:]))
}

// SetPrevPage overwrites the page's previous-sibling pointer.
func (page *Page) SetPrevPage(pid int64) {
	page.dirty = true
	binary.BigEndian.PutUint64(page.data[prevPageOffset:], uint64(pid))
}

// GetNextPage returns the page's next-sibling pointer.
func (page *Page) GetNextPage() int64 {
	return int64(binary.BigEndian.Uint64(page.data[nextPageOffset:]))
}

// SetNextPage overwrites the page's next-sibling pointer.
func (page *Page) SetNextPage(pid int64) {
	page.dirty = true
	binary.BigEndian.PutUint64(page.data[nextPageOffset:], uint64(pid))
}

// NumSlots returns the number of records currently stored on the page.
func (page *Page) NumSlots() int {
	return int(binary.BigEndian.Uint16(page.data[slotCountOffset:]))
}

func (page *Page) setSlotCount(n int) {
	page.dirty = true
	binary.BigEndian.PutUint16(page.data[slotCountOffset:], uint16(n))
}

func (page *Page) freeSpaceOffset() uint16 {
	return binary.BigEndian.Uint16(page.data[freeSpaceOffsetOff:])
}

func (page *Page) setFreeSpaceOffset(off uint16) {
	page.dirty = true
	binary.BigEndian.PutUint16(page.data[freeSpaceOffsetOff:], off)
}

func slotPos(idx int) int {
	return SlottedHeaderSize + idx*slotEntrySize
}

func (page *Page) readSlot(idx int) slotEntry {
	pos := slotPos(idx)
	return slotEntry{
		offset: binary.BigEndian.Uint16(page.data[pos:]),
		length: binary.BigEndian.Uint16(page.data[pos+2:]),
	}
}

func (page *Page) writeSlot(idx int, s slotEntry) {
	pos := slotPos(idx)
	binary.BigEndian.PutUint16(page.data[pos:], s.offset)
	binary.BigEndian.PutUint16(page.data[pos+2:], s.length)
}

// AvailableSpace returns the number of free bytes that a new record, plus
// its slot-directory entry, could occupy on this page.
func (page *Page) AvailableSpace() int64 {
	used := int64(SlottedHeaderSize + page.NumSlots()*slotEntrySize)
	return int64(page.freeSpaceOffset()) - used
}

// EncodedRecordSpace returns how much a record of the given payload length
// would actually cost on the page, including its slot-directory entry.
func EncodedRecordSpace(payloadLen int) int64 {
	return int64(payloadLen + slotEntrySize)
}

// InsertAt inserts a new record at slot index idx, shifting slots
// [idx:NumSlots) one position to the right. The caller is responsible for
// choosing idx so that slot order continues to match logical key order.
// Returns false if the record does not fit in AvailableSpace.
func (page *Page) InsertAt(idx int, record []byte) bool {
	if EncodedRecordSpace(len(record)) > page.AvailableSpace() {
		return false
	}
	n := page.NumSlots()
	for i := n; i > idx; i-- {
		page.writeSlot(i, page.readSlot(i-1))
	}
	newFree := page.freeSpaceOffset() - uint16(len(record))
	copy(page.data[newFree:], record)
	page.writeSlot(idx, slotEntry{offset: newFree, length: uint16(len(record))})
	page.setFreeSpaceOffset(newFree)
	page.setSlotCount(n + 1)
	page.dirty = true
	return true
}

// DeleteAt removes the record at slot index idx, compacting the heap so the
// freed bytes are reusable by future inserts, and shifting slots
// [idx+1:NumSlots) one position to the left.
func (page *Page) DeleteAt(idx int) {
	n := page.NumSlots()
	del := page.readSlot(idx)
	freeOff := page.freeSpaceOffset()
	// Slide every record stored above the deleted one's offset (i.e. inserted
	// more recently, closer to the free-space boundary) up by its length.
	copy(page.data[freeOff+del.length:del.offset+del.length], page.data[freeOff:del.offset])
	for i := 0; i < n; i++ {
		if i == idx {
			continue
		}
		s := page.readSlot(i)
		if s.offset < del.offset {
			s.offset += del.length
			page.writeSlot(i, s)
		}
	}
	for i := idx; i < n-1; i++ {
		page.writeSlot(i, page.readSlot(i+1))
	}
	page.setFreeSpaceOffset(freeOff + del.length)
	page.setSlotCount(n - 1)
	page.dirty = true
}

// GetAt returns a copy of the record bytes stored at slot index idx.
func (page *Page) GetAt(idx int) []byte {
	s := page.readSlot(idx)
	out := make([]byte, s.length)
	copy(out, page.data[s.offset:s.offset+s.length])
	return out
}

// writeChecksum recomputes and stores the page's xxhash64 checksum over
// every byte except the checksum field itself.
func (page *Page) writeChecksum() {
	digest := xxhash.New()
	digest.Write(page.data[:checksumOffset])
	digest.Write(page.data[checksumOffset+8:])
	binary.BigEndian.PutUint64(page.data[checksumOffset:], digest.Sum64())
}

// verifyChecksum reports whether the page's stored checksum matches its
// current contents.
func (page *Page) verifyChecksum() bool {
	stored := binary.BigEndian.Uint64(page.data[checksumOffset:])
	digest := xxhash.New()
	digest.Write(page.data[:checksumOffset])
	digest.Write(page.data[checksumOffset+8:])
	return digest.Sum64() == stored
}
