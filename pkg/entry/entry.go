// Package entry defines the on-page wire format for B+-tree leaf and index
// records: a length-prefixed key plus either a RID (leaf) or a child page id
// (index), the generalization of a fixed int64-pair entry to variable-length
// byte-string keys.
package entry

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// keyLenSize is the width of the length prefix in front of every key.
const keyLenSize = 2

// childSize is the width of an index entry's child page id field.
const childSize = 8

// LeafEntry is a (key, RID) pair stored in a leaf node.
type LeafEntry struct {
	Key []byte
	RID rid.RID
}

// IndexEntry is a (key, child page id) pair stored in an index node. For the
// node's leftmost child, Key is empty and carries no separator meaning.
type IndexEntry struct {
	Key   []byte
	Child int64
}

// NewLeaf constructs a LeafEntry.
func NewLeaf(key []byte, id rid.RID) LeafEntry {
	return LeafEntry{Key: key, RID: id}
}

// NewIndex constructs an IndexEntry.
func NewIndex(key []byte, child int64) IndexEntry {
	return IndexEntry{Key: key, Child: child}
}

// EncodedLeafLen returns the number of bytes MarshalLeaf would produce for a
// key of the given length.
func EncodedLeafLen(keyLen int) int {
	return keyLenSize + keyLen + rid.Size
}

// EncodedIndexLen returns the number of bytes MarshalIndex would produce for
// a key of the given length.
func EncodedIndexLen(keyLen int) int {
	return keyLenSize + keyLen + childSize
}

// MarshalLeaf serializes a leaf entry into its on-page record bytes.
func MarshalLeaf(key []byte, id rid.RID) []byte {
	buf := make([]byte, EncodedLeafLen(len(key)))
	binary.BigEndian.PutUint16(buf, uint16(len(key)))
	copy(buf[keyLenSize:], key)
	copy(buf[keyLenSize+len(key):], id.Marshal())
	return buf
}

// UnmarshalLeaf deserializes a leaf entry from its on-page record bytes.
func UnmarshalLeaf(data []byte) LeafEntry {
	keyLen := int(binary.BigEndian.Uint16(data))
	key := data[keyLenSize : keyLenSize+keyLen]
	return LeafEntry{
		Key: key,
		RID: rid.Unmarshal(data[keyLenSize+keyLen:]),
	}
}

// MarshalIndex serializes an index entry into its on-page record bytes.
func MarshalIndex(key []byte, child int64) []byte {
	buf := make([]byte, EncodedIndexLen(len(key)))
	binary.BigEndian.PutUint16(buf, uint16(len(key)))
	copy(buf[keyLenSize:], key)
	binary.BigEndian.PutUint64(buf[keyLenSize+len(key):], uint64(child))
	return buf
}

// UnmarshalIndex deserializes an index entry from its on-page record bytes.
func UnmarshalIndex(data []byte) IndexEntry {
	keyLen := int(binary.BigEndian.Uint16(data))
	key := data[keyLenSize : keyLenSize+keyLen]
	child := int64(binary.BigEndian.Uint64(data[keyLenSize+keyLen:]))
	return IndexEntry{Key: key, Child: child}
}

// Print writes a leaf entry to w in "(key, pageID:slot)" form.
func (e LeafEntry) Print(w io.Writer) {
	fmt.Fprintf(w, "(%q, %d:%d)", e.Key, e.RID.PageID, e.RID.Slot)
}
