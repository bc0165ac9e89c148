package bptree

import (
	"bytes"

	"github.com/yoshihanslin/Database-BTree/pkg/entry"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

// indexNode is a non-leaf node. Its slot array holds one entry per child:
// slot 0 carries the leftmost child and an ignored, empty key; slot i>=1
// carries child i and the separator key that is its inclusive lower bound
// (a key equal to a separator belongs to that separator's child, i.e. the
// right side). Reusing the slotted page's own slot directory for this means
// the leftmost-child-plus-separators layout needs no header fields beyond
// what pkg/pager/slotted.go already provides.
type indexNode struct {
	fr *frame
}

// newIndexNode allocates a fresh, empty index node.
func newIndexNode(pgr *pager.Pager) (*indexNode, error) {
	fr, err := allocFrame(pgr)
	if err != nil {
		return nil, err
	}
	fr.page.InitNodePage(indexNodeTag)
	return &indexNode{fr: fr}, nil
}

// openIndexNode pins the page at pageID and wraps it as an index node.
func openIndexNode(pgr *pager.Pager, pageID int64) (*indexNode, error) {
	fr, err := pinFrame(pgr, pageID)
	if err != nil {
		return nil, err
	}
	return &indexNode{fr: fr}, nil
}

func (n *indexNode) pid() int64      { return n.fr.id() }
func (n *indexNode) numSlots() int   { return n.fr.page.NumSlots() }

func (n *indexNode) childAt(i int) int64 {
	return entry.UnmarshalIndex(n.fr.page.GetAt(i)).Child
}

func (n *indexNode) separatorAt(i int) []byte {
	return entry.UnmarshalIndex(n.fr.page.GetAt(i)).Key
}

func (n *indexNode) leftmostChild() int64 {
	return n.childAt(0)
}

// setLeftmostChild places a brand new node's sole leftmost-child pointer.
// Only valid on a node with no slots yet.
func (n *indexNode) setLeftmostChild(pid int64) {
	n.fr.page.InsertAt(0, entry.MarshalIndex(nil, pid))
	n.fr.markDirty()
}

func (n *indexNode) deleteSlot(i int) {
	n.fr.page.DeleteAt(i)
	n.fr.markDirty()
}

// appendChild appends a (separator, child) pair as the new last slot.
func (n *indexNode) appendChild(sepKey []byte, child int64) bool {
	ok := n.fr.page.InsertAt(n.numSlots(), entry.MarshalIndex(sepKey, child))
	if ok {
		n.fr.markDirty()
	}
	return ok
}

// tryInsertChildAfter attempts to insert (sepKey, child) right after the
// child at pos, returning false if it doesn't fit.
func (n *indexNode) tryInsertChildAfter(pos int, sepKey []byte, child int64) bool {
	ok := n.fr.page.InsertAt(pos+1, entry.MarshalIndex(sepKey, child))
	if ok {
		n.fr.markDirty()
	}
	return ok
}

// findChildIndex returns the slot index of the child that key belongs
// under: the highest i with separatorAt(i) <= key, or 0 (the leftmost
// child) if key is smaller than every separator.
func (n *indexNode) findChildIndex(key []byte) int {
	for i := n.numSlots() - 1; i >= 1; i-- {
		if bytes.Compare(n.separatorAt(i), key) <= 0 {
			return i
		}
	}
	return 0
}

func (n *indexNode) isUnderfull() bool {
	return underfull(n.fr.page)
}

// splitIndexNode splits n: separators move back-to-front into a brand new
// node until the new node's free space is no longer greater than n's left
// behind (never touching n's own leftmost child). The first entry moved
// into the new node is then popped off and promoted to the caller -- its
// key becomes the separator the parent absorbs, and its child becomes the
// new node's leftmost_child. Returns the new node and the promoted key.
func splitIndexNode(n *indexNode) (*indexNode, []byte, error) {
	newNode, err := newIndexNode(n.fr.pgr)
	if err != nil {
		return nil, nil, err
	}
	for n.numSlots() > 1 && newNode.fr.page.AvailableSpace() > n.fr.page.AvailableSpace() {
		i := n.numSlots() - 1
		key := append([]byte{}, n.separatorAt(i)...)
		child := n.childAt(i)
		newNode.fr.page.InsertAt(0, entry.MarshalIndex(key, child))
		newNode.fr.markDirty()
		n.deleteSlot(i)
	}
	popped := entry.UnmarshalIndex(newNode.fr.page.GetAt(0))
	upKey := append([]byte{}, popped.Key...)
	newNode.fr.page.DeleteAt(0)
	newNode.fr.page.InsertAt(0, entry.MarshalIndex(nil, popped.Child))
	newNode.fr.markDirty()
	return newNode, upKey, nil
}

// mergeIndexNodes absorbs right's children into left, reusing boundaryKey
// (the separator that used to sit between left and right in their parent) as
// the separator for right's former leftmost child.
func mergeIndexNodes(left, right *indexNode, boundaryKey []byte) {
	left.appendChild(boundaryKey, right.leftmostChild())
	for i := 1; i < right.numSlots(); i++ {
		left.appendChild(right.separatorAt(i), right.childAt(i))
	}
}

// redistributeIndexFromRight moves right's leftmost child into left one at a
// time, as left's new last child, until left is no longer underfull. The
// first move uses boundaryKey (the old left/right separator) as its
// separator; later moves use what was right's first real separator at the
// time. Returns the new left/right boundary key.
func redistributeIndexFromRight(left, right *indexNode, boundaryKey []byte) []byte {
	for left.isUnderfull() && right.numSlots() > 1 {
		movedChild := right.leftmostChild()
		newBoundary := append([]byte{}, right.separatorAt(1)...)
		right.deleteSlot(0)
		left.appendChild(boundaryKey, movedChild)
		boundaryKey = newBoundary
	}
	return boundaryKey
}

// redistributeIndexFromLeft moves left's last child into right one at a
// time, as right's new leftmost child, until right is no longer underfull.
// Each move uses the current boundaryKey (the old left/right separator) as
// the separator for right's former leftmost child. Returns the new
// left/right boundary key.
func redistributeIndexFromLeft(left, right *indexNode, boundaryKey []byte) []byte {
	for right.isUnderfull() && left.numSlots() > 1 {
		lastIdx := left.numSlots() - 1
		movedChild := left.childAt(lastIdx)
		newBoundary := append([]byte{}, left.separatorAt(lastIdx)...)
		oldRightLeftmost := right.leftmostChild()
		left.deleteSlot(lastIdx)
		right.fr.page.InsertAt(0, entry.MarshalIndex(nil, movedChild))
		right.fr.markDirty()
		right.deleteSlot(1)
		right.fr.page.InsertAt(1, entry.MarshalIndex(boundaryKey, oldRightLeftmost))
		boundaryKey = newBoundary
	}
	return boundaryKey
}
