package bptree

import (
	"bytes"

	"github.com/yoshihanslin/Database-BTree/pkg/entry"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

// Cursor scans a contiguous key range over the leaf chain, low to high. A
// nil lowKey starts at the leftmost leaf; a nil highKey never stops early.
// Passing the same key as both bounds yields every entry stored under that
// key (several, if it has duplicates), and nothing else.
type Cursor struct {
	t       *Tree
	leaf    *leafNode
	pos     int
	highKey []byte
	done    bool
}

// OpenScan positions a cursor at the first entry with key >= lowKey (or the
// very first entry if lowKey is nil), bounded above by highKey.
func (t *Tree) OpenScan(lowKey, highKey []byte) (*Cursor, error) {
	if lowKey != nil && highKey != nil && bytes.Compare(lowKey, highKey) > 0 {
		return nil, ErrInvalidRange
	}
	rootPID, err := t.readRoot()
	if err != nil {
		return nil, err
	}
	if rootPID == pager.InvalidPage {
		return &Cursor{t: t, done: true}, nil
	}
	pid := rootPID
	for {
		page, err := t.pgr.Pin(pid)
		if err != nil {
			return nil, err
		}
		if isLeafPage(page) {
			leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
			pos := 0
			if lowKey != nil {
				pos, _ = leaf.find(lowKey)
			}
			c := &Cursor{t: t, leaf: leaf, pos: pos, highKey: highKey}
			if err := c.skipToNonEmpty(); err != nil {
				return nil, err
			}
			c.checkBound()
			return c, nil
		}
		idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
		// Descend to the highest child whose separator is strictly below
		// lowKey: on a tie the lower sibling is taken, since duplicates of
		// lowKey may end the child left of an equal separator.
		childPos := 0
		if lowKey != nil {
			for i := idx.numSlots() - 1; i >= 1; i-- {
				if bytes.Compare(idx.separatorAt(i), lowKey) < 0 {
					childPos = i
					break
				}
			}
		}
		childPID := idx.childAt(childPos)
		if err := idx.fr.release(); err != nil {
			return nil, err
		}
		pid = childPID
	}
}

// CursorAtStart opens an unbounded scan over the whole tree.
func (t *Tree) CursorAtStart() (*Cursor, error) {
	return t.OpenScan(nil, nil)
}

// skipToNonEmpty hops forward over empty leaves (which can only occur
// transiently, between a delete and its rebalance) until the cursor lands on
// a real entry or the chain runs out.
func (c *Cursor) skipToNonEmpty() error {
	for c.leaf != nil && c.pos >= c.leaf.numEntries() {
		nextPID := c.leaf.getNextPID()
		if err := c.leaf.fr.release(); err != nil {
			return err
		}
		c.leaf = nil
		if nextPID == pager.InvalidPage {
			c.done = true
			return nil
		}
		next, err := openLeafNode(c.t.pgr, nextPID)
		if err != nil {
			return err
		}
		c.leaf = next
		c.pos = 0
	}
	return nil
}

func (c *Cursor) checkBound() {
	if c.done || c.leaf == nil {
		c.done = true
		return
	}
	if c.highKey != nil && bytes.Compare(c.leaf.keyAt(c.pos), c.highKey) > 0 {
		c.done = true
	}
}

// Next advances the cursor, returning false once the scan has run past the
// last entry in range.
func (c *Cursor) Next() bool {
	if c.done || c.leaf == nil {
		return false
	}
	c.pos++
	if c.pos >= c.leaf.numEntries() {
		if err := c.skipToNonEmpty(); err != nil {
			c.done = true
			return false
		}
	}
	c.checkBound()
	return !c.done
}

// GetEntry returns the entry currently under the cursor.
func (c *Cursor) GetEntry() (entry.LeafEntry, error) {
	if c.done || c.leaf == nil || c.pos >= c.leaf.numEntries() {
		return entry.LeafEntry{}, ErrKeyNotFound
	}
	return c.leaf.entryAt(c.pos), nil
}

// Close releases the cursor's pinned leaf, if any. Safe to call more than
// once.
func (c *Cursor) Close() error {
	if c.leaf == nil {
		return nil
	}
	err := c.leaf.fr.release()
	c.leaf = nil
	c.done = true
	return err
}
