// Package rid defines the opaque record identifier a leaf entry points at.
package rid

import "encoding/binary"

// Size is the number of bytes a marshaled RID occupies on a page.
const Size = 6

// RID (record id) addresses a tuple stored outside the index: the page it
// lives on plus its slot within that page. The index never interprets these
// bytes beyond ordering and equality.
type RID struct {
	PageID uint32
	Slot   int16
}

// New constructs a RID from a page id and slot.
func New(pageID uint32, slot int16) RID {
	return RID{PageID: pageID, Slot: slot}
}

// Marshal serializes the RID into a 6-byte big-endian encoding.
func (r RID) Marshal() []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint32(buf, r.PageID)
	binary.BigEndian.PutUint16(buf[4:], uint16(r.Slot))
	return buf
}

// Unmarshal decodes a RID from its 6-byte encoding.
func Unmarshal(data []byte) RID {
	return RID{
		PageID: binary.BigEndian.Uint32(data),
		Slot:   int16(binary.BigEndian.Uint16(data[4:])),
	}
}
