package bptree

import (
	"bytes"
	"sort"

	"github.com/yoshihanslin/Database-BTree/pkg/entry"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// leafNode is a node at the bottom of the tree, storing the actual
// (key, RID) entries in key order.
type leafNode struct {
	fr *frame
}

// newLeafNode allocates a fresh, empty leaf node.
func newLeafNode(pgr *pager.Pager) (*leafNode, error) {
	fr, err := allocFrame(pgr)
	if err != nil {
		return nil, err
	}
	fr.page.InitNodePage(leafNodeTag)
	return &leafNode{fr: fr}, nil
}

// openLeafNode pins the page at pageID and wraps it as a leaf node.
func openLeafNode(pgr *pager.Pager, pageID int64) (*leafNode, error) {
	fr, err := pinFrame(pgr, pageID)
	if err != nil {
		return nil, err
	}
	return &leafNode{fr: fr}, nil
}

func (n *leafNode) pid() int64        { return n.fr.id() }
func (n *leafNode) numEntries() int   { return n.fr.page.NumSlots() }
func (n *leafNode) getPrevPID() int64 { return n.fr.page.GetPrevPage() }
func (n *leafNode) getNextPID() int64 { return n.fr.page.GetNextPage() }

func (n *leafNode) setPrevPID(pid int64) {
	n.fr.page.SetPrevPage(pid)
	n.fr.markDirty()
}

func (n *leafNode) setNextPID(pid int64) {
	n.fr.page.SetNextPage(pid)
	n.fr.markDirty()
}

// entryAt returns the entry stored at slot index i.
func (n *leafNode) entryAt(i int) entry.LeafEntry {
	return entry.UnmarshalLeaf(n.fr.page.GetAt(i))
}

func (n *leafNode) keyAt(i int) []byte {
	return n.entryAt(i).Key
}

// find returns the first slot index whose key is >= key, and whether that
// slot is an exact match. If no slot qualifies, returns (numEntries(), false).
// Among duplicate keys this lands on the first (lowest-RID) occurrence.
func (n *leafNode) find(key []byte) (pos int, found bool) {
	num := n.numEntries()
	pos = sort.Search(num, func(i int) bool {
		return bytes.Compare(n.keyAt(i), key) >= 0
	})
	found = pos < num && bytes.Equal(n.keyAt(pos), key)
	return pos, found
}

// compareRID orders two RIDs by page id, then slot.
func compareRID(a, b rid.RID) int {
	switch {
	case a.PageID != b.PageID:
		if a.PageID < b.PageID {
			return -1
		}
		return 1
	case a.Slot != b.Slot:
		if a.Slot < b.Slot {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// compareAt compares the entry at slot i against (key, id) in full tuple
// order: key first, RID as the tiebreak among duplicate keys.
func (n *leafNode) compareAt(i int, key []byte, id rid.RID) int {
	e := n.entryAt(i)
	if c := bytes.Compare(e.Key, key); c != 0 {
		return c
	}
	return compareRID(e.RID, id)
}

// findInsertPos returns the slot index where (key, id) belongs in full
// tuple order, so duplicate keys with different RIDs sort deterministically
// side by side instead of colliding.
func (n *leafNode) findInsertPos(key []byte, id rid.RID) int {
	num := n.numEntries()
	return sort.Search(num, func(i int) bool {
		return n.compareAt(i, key, id) >= 0
	})
}

// findExact returns the slot index of the entry matching (key, id) exactly,
// and whether it was found. Used by delete, which matches on the full pair
// rather than key alone so that duplicate keys can be removed individually.
func (n *leafNode) findExact(key []byte, id rid.RID) (pos int, found bool) {
	pos = n.findInsertPos(key, id)
	found = pos < n.numEntries() && n.compareAt(pos, key, id) == 0
	return pos, found
}

// tryInsertAt attempts to place (key, id) at slot pos, returning false if it
// does not fit in the node's remaining space.
func (n *leafNode) tryInsertAt(pos int, key []byte, id rid.RID) bool {
	rec := entry.MarshalLeaf(key, id)
	if !n.fr.page.InsertAt(pos, rec) {
		return false
	}
	n.fr.markDirty()
	return true
}

func (n *leafNode) deleteAt(pos int) {
	n.fr.page.DeleteAt(pos)
	n.fr.markDirty()
}

func (n *leafNode) isUnderfull() bool {
	return underfull(n.fr.page)
}

// splitLeaf is the ordinary recursive-insert split: entries move,
// back-to-front, into a brand new leaf that becomes n's next sibling, until
// the new leaf's free space is no longer greater than n's (the move that
// would cross the half-way point is the last one). Returns the new leaf
// (still pinned, caller releases it) and the separator key (the new leaf's
// first key) to be promoted to the parent.
func splitLeaf(n *leafNode) (*leafNode, []byte, error) {
	newLeaf, err := newLeafNode(n.fr.pgr)
	if err != nil {
		return nil, nil, err
	}
	for n.numEntries() > 1 && newLeaf.fr.page.AvailableSpace() > n.fr.page.AvailableSpace() {
		i := n.numEntries() - 1
		e := n.entryAt(i)
		newLeaf.fr.page.InsertAt(0, entry.MarshalLeaf(e.Key, e.RID))
		n.deleteAt(i)
	}
	newLeaf.fr.markDirty()
	oldNext := n.getNextPID()
	newLeaf.setNextPID(oldNext)
	newLeaf.setPrevPID(n.pid())
	n.setNextPID(newLeaf.pid())
	if oldNext != pager.InvalidPage {
		sibling, err := openLeafNode(n.fr.pgr, oldNext)
		if err != nil {
			return nil, nil, err
		}
		sibling.setPrevPID(newLeaf.pid())
		if err := sibling.fr.release(); err != nil {
			return nil, nil, err
		}
	}
	return newLeaf, newLeaf.keyAt(0), nil
}

// splitRootLeaf is the special case of splitting a leaf that is also the
// tree's current root: entries move front-to-back into a new leaf that
// becomes n's *previous* sibling (conceptually the left half), while n keeps
// the back half and its own page id. This mirrors the original
// BTreeFile::Split1LeafNode asymmetry; functionally it differs from
// splitLeaf only in which physical page ends up holding which half, since
// the header page's root pointer (not a fixed page number) is what callers
// rely on.
func splitRootLeaf(n *leafNode) (*leafNode, []byte, error) {
	newLeaf, err := newLeafNode(n.fr.pgr)
	if err != nil {
		return nil, nil, err
	}
	for n.numEntries() > 1 && newLeaf.fr.page.AvailableSpace() > n.fr.page.AvailableSpace() {
		e := n.entryAt(0)
		newLeaf.fr.page.InsertAt(newLeaf.numEntries(), entry.MarshalLeaf(e.Key, e.RID))
		n.deleteAt(0)
	}
	newLeaf.fr.markDirty()
	oldPrev := n.getPrevPID()
	newLeaf.setPrevPID(oldPrev)
	newLeaf.setNextPID(n.pid())
	n.setPrevPID(newLeaf.pid())
	if oldPrev != pager.InvalidPage {
		sibling, err := openLeafNode(n.fr.pgr, oldPrev)
		if err != nil {
			return nil, nil, err
		}
		sibling.setNextPID(newLeaf.pid())
		if err := sibling.fr.release(); err != nil {
			return nil, nil, err
		}
	}
	return newLeaf, n.keyAt(0), nil
}

// mergeLeaves merges right's entries into left (left keeps its page id) and
// repairs the sibling chain around the freed right page. The caller is
// responsible for removing right's separator/child pair from the parent and
// freeing right's page once both frames are released.
func mergeLeaves(left, right *leafNode) error {
	for i := 0; i < right.numEntries(); i++ {
		e := right.entryAt(i)
		left.fr.page.InsertAt(left.numEntries(), entry.MarshalLeaf(e.Key, e.RID))
	}
	left.fr.markDirty()
	nextPID := right.getNextPID()
	left.setNextPID(nextPID)
	if nextPID != pager.InvalidPage {
		sibling, err := openLeafNode(left.fr.pgr, nextPID)
		if err != nil {
			return err
		}
		sibling.setPrevPID(left.pid())
		if err := sibling.fr.release(); err != nil {
			return err
		}
	}
	return nil
}

// redistributeFromLeft moves entries from left's tail into right, one at a
// time, until right is no longer underfull (or left would run dry). Both
// nodes are already pinned. Returns the new separator key for the child
// pointer pointing at right.
func redistributeFromLeft(left, right *leafNode) []byte {
	for right.isUnderfull() && left.numEntries() > 1 {
		i := left.numEntries() - 1
		e := left.entryAt(i)
		left.deleteAt(i)
		right.fr.page.InsertAt(0, entry.MarshalLeaf(e.Key, e.RID))
		right.fr.markDirty()
	}
	return right.keyAt(0)
}

// redistributeFromRight moves entries from right's head into left, one at a
// time, until left is no longer underfull (or right would run dry). Both
// nodes are already pinned. Returns the new separator key for the child
// pointer pointing at right.
func redistributeFromRight(left, right *leafNode) []byte {
	for left.isUnderfull() && right.numEntries() > 1 {
		e := right.entryAt(0)
		right.deleteAt(0)
		left.fr.page.InsertAt(left.numEntries(), entry.MarshalLeaf(e.Key, e.RID))
		left.fr.markDirty()
	}
	return right.keyAt(0)
}
