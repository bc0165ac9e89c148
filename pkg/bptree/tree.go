// Package bptree implements a disk-resident B+-tree secondary index on top
// of the pkg/pager buffer manager: leaf nodes hold the actual (key, RID)
// entries, index nodes hold a leftmost child plus ordered separator/child
// pairs, and every mutating operation pins its way down from the root,
// splitting or merging nodes as it returns back up.
package bptree

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/yoshihanslin/Database-BTree/pkg/config"
	"github.com/yoshihanslin/Database-BTree/pkg/entry"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// headerPID is the fixed page id of the tree's header page, which stores
// nothing but the current root's page id. Keeping the root pointer in a
// page of its own (rather than pinning the root to a fixed page id the way
// a single-level index would) is what lets the root itself move freely
// across splits, merges, and the root-collapse case in Delete.
const headerPID int64 = 0

// Tree is a disk-resident B+-tree secondary index.
type Tree struct {
	pgr *pager.Pager
}

// Open opens the B+-tree stored in the file at filename, creating an empty
// header (root = INVALID_PAGE) if the file is new. The first Insert
// allocates the tree's first leaf.
func Open(filename string) (*Tree, error) {
	pgr, err := pager.New(filename)
	if err != nil {
		return nil, err
	}
	t := &Tree{pgr: pgr}
	if pgr.GetNumPages() == 0 {
		hdr, err := pgr.NewPage()
		if err != nil {
			return nil, err
		}
		writeRootPointer(hdr, pager.InvalidPage)
		if err := pgr.Unpin(hdr, true); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetPager returns the tree's underlying buffer manager.
func (t *Tree) GetPager() *pager.Pager {
	return t.pgr
}

// Close flushes all changes to disk and closes the backing file.
func (t *Tree) Close() error {
	return t.pgr.Close()
}

// Destroy frees every page belonging to the tree and removes its backing
// file. The tree must not be used again afterward.
func (t *Tree) Destroy() error {
	rootPID, err := t.readRoot()
	if err != nil {
		return err
	}
	if rootPID != pager.InvalidPage {
		if err := t.freeSubtree(rootPID); err != nil {
			return err
		}
	}
	if err := t.pgr.FreePage(headerPID); err != nil {
		return err
	}
	filename := t.pgr.GetFileName()
	if err := t.pgr.Close(); err != nil {
		return err
	}
	return os.Remove(filename)
}

func (t *Tree) freeSubtree(pid int64) error {
	page, err := t.pgr.Pin(pid)
	if err != nil {
		return err
	}
	if isLeafPage(page) {
		if err := t.pgr.Unpin(page, false); err != nil {
			return err
		}
		return t.pgr.FreePage(pid)
	}
	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	children := make([]int64, idx.numSlots())
	for i := range children {
		children[i] = idx.childAt(i)
	}
	if err := idx.fr.release(); err != nil {
		return err
	}
	if err := t.pgr.FreePage(pid); err != nil {
		return err
	}
	for _, c := range children {
		if err := t.freeSubtree(c); err != nil {
			return err
		}
	}
	return nil
}

func writeRootPointer(page *pager.Page, rootPID int64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(rootPID))
	page.Update(buf, 0, 8)
}

func (t *Tree) readRoot() (int64, error) {
	page, err := t.pgr.Pin(headerPID)
	if err != nil {
		return 0, err
	}
	pid := int64(binary.BigEndian.Uint64(page.GetData()[:8]))
	if err := t.pgr.Unpin(page, false); err != nil {
		return 0, err
	}
	return pid, nil
}

func (t *Tree) writeRoot(rootPID int64) error {
	page, err := t.pgr.Pin(headerPID)
	if err != nil {
		return err
	}
	writeRootPointer(page, rootPID)
	return t.pgr.Unpin(page, true)
}

// RootPageID returns the tree's current root page id, or pager.InvalidPage
// if the tree is empty.
func (t *Tree) RootPageID() (int64, error) {
	return t.readRoot()
}

// Search descends to the leaf that would contain key and returns that
// leaf's page id, or ErrKeyNotFound if the key is absent. It reports where a
// key lives, not the RID stored there -- callers that need the RID scan the
// returned leaf (or call OpenScan) for the entry itself, since a key may be
// shared by several (key, RID) entries.
func (t *Tree) Search(key []byte) (int64, error) {
	rootPID, err := t.readRoot()
	if err != nil {
		return 0, err
	}
	if rootPID == pager.InvalidPage {
		return 0, ErrKeyNotFound
	}
	pid := rootPID
	for {
		page, err := t.pgr.Pin(pid)
		if err != nil {
			return 0, err
		}
		if isLeafPage(page) {
			leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
			_, found := leaf.find(key)
			leafPID := leaf.pid()
			if err := leaf.fr.release(); err != nil {
				return 0, err
			}
			if !found {
				return 0, ErrKeyNotFound
			}
			return leafPID, nil
		}
		idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
		childPID := idx.childAt(idx.findChildIndex(key))
		if err := idx.fr.release(); err != nil {
			return 0, err
		}
		pid = childPID
	}
}

// descent result kinds for the recursive insert.
type resultKind int

const (
	unchanged resultKind = iota
	promoted
)

// descendResult is the sum-typed signal a recursive insert step hands back
// to its caller: either nothing structural happened (unchanged), or the
// child split and a new separator/child pair must be absorbed by the
// caller (promoted).
type descendResult struct {
	kind     resultKind
	sepKey   []byte
	rightPID int64
}

// Insert adds a (key, RID) entry to the tree. Keys need not be unique: a
// duplicate key with a different RID is placed alongside the existing
// entries in (key, RID) order rather than rejected.
func (t *Tree) Insert(key []byte, id rid.RID) error {
	if len(key) > config.MaxKeySize {
		return ErrKeyTooLarge
	}
	if entry.EncodedLeafLen(len(key)) > int(pager.Pagesize)-pager.SlottedHeaderSize {
		return ErrNodeFull
	}
	rootPID, err := t.readRoot()
	if err != nil {
		return err
	}
	if rootPID == pager.InvalidPage {
		leaf, err := newLeafNode(t.pgr)
		if err != nil {
			return err
		}
		if !leaf.tryInsertAt(0, key, id) {
			leaf.fr.release()
			return ErrNodeFull
		}
		leafPID := leaf.pid()
		if err := leaf.fr.release(); err != nil {
			return err
		}
		return t.writeRoot(leafPID)
	}
	page, err := t.pgr.Pin(rootPID)
	if err != nil {
		return err
	}

	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		newRootPID, changed, err := t.insertRootLeaf(leaf, key, id)
		if err != nil {
			return err
		}
		if changed {
			return t.writeRoot(newRootPID)
		}
		return nil
	}

	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	result, err := t.insertIndexDescend(idx, key, id)
	if err != nil {
		return err
	}
	if result.kind != promoted {
		return nil
	}
	newRoot, err := newIndexNode(t.pgr)
	if err != nil {
		return err
	}
	newRoot.setLeftmostChild(rootPID)
	newRoot.appendChild(result.sepKey, result.rightPID)
	newRootPID := newRoot.pid()
	if err := newRoot.fr.release(); err != nil {
		return err
	}
	return t.writeRoot(newRootPID)
}

// insertRootLeaf handles the one case with no idiomatic symmetry: the root
// itself is a leaf and must split. It uses splitRootLeaf (new leaf to the
// left) rather than splitLeaf, per the original BTreeFile::Split1LeafNode
// asymmetry.
func (t *Tree) insertRootLeaf(leaf *leafNode, key []byte, id rid.RID) (newRootPID int64, changed bool, err error) {
	pos := leaf.findInsertPos(key, id)
	if leaf.tryInsertAt(pos, key, id) {
		return 0, false, leaf.fr.release()
	}
	newLeaf, sepKey, err := splitRootLeaf(leaf) // newLeaf is the left half, leaf keeps the right half
	if err != nil {
		leaf.fr.release()
		return 0, false, err
	}
	target := leaf
	if bytes.Compare(key, sepKey) < 0 {
		target = newLeaf
	}
	insertPos := target.findInsertPos(key, id)
	if !target.tryInsertAt(insertPos, key, id) {
		leaf.fr.release()
		newLeaf.fr.release()
		return 0, false, ErrNodeFull
	}
	newRoot, err := newIndexNode(t.pgr)
	if err != nil {
		leaf.fr.release()
		newLeaf.fr.release()
		return 0, false, err
	}
	newRoot.setLeftmostChild(newLeaf.pid())
	newRoot.appendChild(sepKey, leaf.pid())
	newRootPID = newRoot.pid()
	if err := leaf.fr.release(); err != nil {
		return 0, false, err
	}
	if err := newLeaf.fr.release(); err != nil {
		return 0, false, err
	}
	if err := newRoot.fr.release(); err != nil {
		return 0, false, err
	}
	return newRootPID, true, nil
}

// insertDescend inserts into the subtree rooted at pid, where pid is never
// the tree's current root (Insert handles the root directly so it can give
// a root leaf split special treatment). It pins and releases pid itself.
func (t *Tree) insertDescend(pid int64, key []byte, id rid.RID) (descendResult, error) {
	page, err := t.pgr.Pin(pid)
	if err != nil {
		return descendResult{}, err
	}
	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		return t.insertLeafChild(leaf, key, id)
	}
	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	return t.insertIndexDescend(idx, key, id)
}

func (t *Tree) insertLeafChild(leaf *leafNode, key []byte, id rid.RID) (descendResult, error) {
	pos := leaf.findInsertPos(key, id)
	if leaf.tryInsertAt(pos, key, id) {
		return descendResult{}, leaf.fr.release()
	}
	newLeaf, sepKey, err := splitLeaf(leaf) // newLeaf is the right sibling
	if err != nil {
		leaf.fr.release()
		return descendResult{}, err
	}
	target := leaf
	if bytes.Compare(key, sepKey) >= 0 {
		target = newLeaf
	}
	insertPos := target.findInsertPos(key, id)
	if !target.tryInsertAt(insertPos, key, id) {
		leaf.fr.release()
		newLeaf.fr.release()
		return descendResult{}, ErrNodeFull
	}
	rightPID := newLeaf.pid()
	if err := leaf.fr.release(); err != nil {
		return descendResult{}, err
	}
	if err := newLeaf.fr.release(); err != nil {
		return descendResult{}, err
	}
	return descendResult{kind: promoted, sepKey: sepKey, rightPID: rightPID}, nil
}

func (t *Tree) insertIndexDescend(idx *indexNode, key []byte, id rid.RID) (descendResult, error) {
	childPos := idx.findChildIndex(key)
	childPID := idx.childAt(childPos)
	result, err := t.insertDescend(childPID, key, id)
	if err != nil {
		idx.fr.release()
		return descendResult{}, err
	}
	if result.kind != promoted {
		return descendResult{}, idx.fr.release()
	}
	if idx.tryInsertChildAfter(childPos, result.sepKey, result.rightPID) {
		return descendResult{}, idx.fr.release()
	}
	newIdx, upKey, err := splitIndexNode(idx)
	if err != nil {
		idx.fr.release()
		return descendResult{}, err
	}
	target := idx
	if bytes.Compare(result.sepKey, upKey) >= 0 {
		target = newIdx
	}
	pos := target.findChildIndex(result.sepKey)
	if !target.tryInsertChildAfter(pos, result.sepKey, result.rightPID) {
		idx.fr.release()
		newIdx.fr.release()
		return descendResult{}, ErrNodeFull
	}
	rightPID := newIdx.pid()
	if err := idx.fr.release(); err != nil {
		return descendResult{}, err
	}
	if err := newIdx.fr.release(); err != nil {
		return descendResult{}, err
	}
	return descendResult{kind: promoted, sepKey: upKey, rightPID: rightPID}, nil
}

// Delete removes the slot whose (key, id) matches exactly, returning
// ErrKeyNotFound if no such entry exists. Underfull nodes are redistributed
// with a sibling or merged, cascading up to a root collapse if the root
// index node is left with only its leftmost child, or -- if the root is a
// leaf left with no entries at all -- all the way to an empty tree
// (root = INVALID_PAGE).
func (t *Tree) Delete(key []byte, id rid.RID) error {
	rootPID, err := t.readRoot()
	if err != nil {
		return err
	}
	if rootPID == pager.InvalidPage {
		return ErrKeyNotFound
	}
	page, err := t.pgr.Pin(rootPID)
	if err != nil {
		return err
	}

	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		pos, found := leaf.findExact(key, id)
		if !found {
			leaf.fr.release()
			return ErrKeyNotFound
		}
		leaf.deleteAt(pos)
		empty := leaf.numEntries() == 0
		if err := leaf.fr.release(); err != nil {
			return err
		}
		if empty {
			if err := t.pgr.FreePage(rootPID); err != nil {
				return err
			}
			return t.writeRoot(pager.InvalidPage)
		}
		return nil
	}

	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	if _, err := t.deleteIndexDescend(idx, key, id); err != nil {
		return err
	}

	rootPage, err := t.pgr.Pin(rootPID)
	if err != nil {
		return err
	}
	root := &indexNode{fr: &frame{pgr: t.pgr, page: rootPage}}
	if root.numSlots() == 1 {
		childPID := root.leftmostChild()
		if err := root.fr.release(); err != nil {
			return err
		}
		if err := t.pgr.FreePage(rootPID); err != nil {
			return err
		}
		return t.writeRoot(childPID)
	}
	return root.fr.release()
}

func (t *Tree) deleteDescend(pid int64, key []byte, id rid.RID) (bool, error) {
	page, err := t.pgr.Pin(pid)
	if err != nil {
		return false, err
	}
	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		pos, found := leaf.findExact(key, id)
		if !found {
			leaf.fr.release()
			return false, ErrKeyNotFound
		}
		leaf.deleteAt(pos)
		isUnderfull := leaf.isUnderfull()
		return isUnderfull, leaf.fr.release()
	}
	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	return t.deleteIndexDescend(idx, key, id)
}

func (t *Tree) deleteIndexDescend(idx *indexNode, key []byte, id rid.RID) (bool, error) {
	childPos := idx.findChildIndex(key)
	childPID := idx.childAt(childPos)
	childUnderfull, err := t.deleteDescend(childPID, key, id)
	if err != nil {
		idx.fr.release()
		return false, err
	}
	if !childUnderfull {
		return false, idx.fr.release()
	}
	if err := t.rebalanceChild(idx, childPos); err != nil {
		idx.fr.release()
		return false, err
	}
	isUnderfull := idx.isUnderfull()
	return isUnderfull, idx.fr.release()
}

// rebalanceChild fixes up the child at pos in parent (reported underfull by
// the recursive delete), pairing it with whichever neighbor exists -- the
// left one if pos > 0, else the right one -- and merging them if the pair
// would fit on a single page, or otherwise redistributing entries between
// them one at a time until the underfull side is no longer underfull.
func (t *Tree) rebalanceChild(parent *indexNode, pos int) error {
	leftPos := pos
	if pos > 0 {
		leftPos = pos - 1
	}
	rightPos := leftPos + 1

	leftPID := parent.childAt(leftPos)
	rightPID := parent.childAt(rightPos)
	boundary := append([]byte{}, parent.separatorAt(rightPos)...)

	leftPage, err := t.pgr.Pin(leftPID)
	if err != nil {
		return err
	}
	rightPage, err := t.pgr.Pin(rightPID)
	if err != nil {
		t.pgr.Unpin(leftPage, false)
		return err
	}

	if isLeafPage(leftPage) {
		left := &leafNode{fr: &frame{pgr: t.pgr, page: leftPage}}
		right := &leafNode{fr: &frame{pgr: t.pgr, page: rightPage}}
		if leafPairFits(left, right) {
			if err := mergeLeaves(left, right); err != nil {
				left.fr.release()
				right.fr.release()
				return err
			}
			freedPID := right.pid()
			if err := left.fr.release(); err != nil {
				return err
			}
			if err := right.fr.release(); err != nil {
				return err
			}
			parent.deleteSlot(rightPos)
			return t.pgr.FreePage(freedPID)
		}
		var newSep []byte
		if left.isUnderfull() {
			newSep = redistributeFromRight(left, right)
		} else {
			newSep = redistributeFromLeft(left, right)
		}
		newRightPID := right.pid()
		if err := left.fr.release(); err != nil {
			return err
		}
		if err := right.fr.release(); err != nil {
			return err
		}
		parent.deleteSlot(rightPos)
		parent.tryInsertChildAfter(leftPos, newSep, newRightPID)
		return nil
	}

	left := &indexNode{fr: &frame{pgr: t.pgr, page: leftPage}}
	right := &indexNode{fr: &frame{pgr: t.pgr, page: rightPage}}
	if indexPairFits(left, right) {
		mergeIndexNodes(left, right, boundary)
		freedPID := right.pid()
		if err := left.fr.release(); err != nil {
			return err
		}
		if err := right.fr.release(); err != nil {
			return err
		}
		parent.deleteSlot(rightPos)
		return t.pgr.FreePage(freedPID)
	}
	var newSep []byte
	if left.isUnderfull() {
		newSep = redistributeIndexFromRight(left, right, boundary)
	} else {
		newSep = redistributeIndexFromLeft(left, right, boundary)
	}
	newRightPID := right.pid()
	if err := left.fr.release(); err != nil {
		return err
	}
	if err := right.fr.release(); err != nil {
		return err
	}
	parent.deleteSlot(rightPos)
	parent.tryInsertChildAfter(leftPos, newSep, newRightPID)
	return nil
}

func leafPairFits(left, right *leafNode) bool {
	usable := pager.Pagesize - int64(pager.SlottedHeaderSize)
	usedLeft := usable - left.fr.page.AvailableSpace()
	usedRight := usable - right.fr.page.AvailableSpace()
	return usedLeft+usedRight <= usable
}

func indexPairFits(left, right *indexNode) bool {
	usable := pager.Pagesize - int64(pager.SlottedHeaderSize)
	usedLeft := usable - left.fr.page.AvailableSpace()
	usedRight := usable - right.fr.page.AvailableSpace()
	return usedLeft+usedRight <= usable
}
