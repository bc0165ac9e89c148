package bptree

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

// Verify walks the tree from its root and checks every testable structural
// property: non-descending (duplicates allowed), in-bound keys within each
// leaf, correct separator
// bounds at every index node, every non-root node at least half full, every
// leaf at the same depth, an exact next/prev inverse along the leaf chain,
// and that no page is simultaneously reachable from the root and sitting on
// the buffer manager's free list. An empty tree (root = INVALID_PAGE)
// trivially satisfies all of these.
func (t *Tree) Verify() error {
	rootPID, err := t.readRoot()
	if err != nil {
		return err
	}
	reachable := bitset.New(0)
	reachable.Set(uint(headerPID))
	if rootPID != pager.InvalidPage {
		if _, _, _, err := t.verifySubtree(rootPID, reachable, nil, nil, true); err != nil {
			return err
		}
	}
	for _, pid := range t.pgr.FreedPageNumbers() {
		if reachable.Test(uint(pid)) {
			return fmt.Errorf("%w: page %d is both reachable and freed", ErrStructuralInvariantViolated, pid)
		}
	}
	if rootPID == pager.InvalidPage {
		return nil
	}
	return t.verifyLeafChain()
}

// verifySubtree returns the lowest and highest key found in the subtree
// rooted at pid (checking that every key in it falls within
// [lowBound, highBound), a nil bound being unconstrained on that side) and
// the depth of every leaf beneath pid, which must agree (Testable Property:
// all leaves at equal depth). isRoot exempts pid from the half-full check,
// since the root may be arbitrarily underfull.
func (t *Tree) verifySubtree(pid int64, reachable *bitset.BitSet, lowBound, highBound []byte, isRoot bool) (low, high []byte, leafDepth int, err error) {
	reachable.Set(uint(pid))
	page, err := t.pgr.Pin(pid)
	if err != nil {
		return nil, nil, 0, err
	}
	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		defer leaf.fr.release()
		if !isRoot && leaf.isUnderfull() {
			return nil, nil, 0, fmt.Errorf("%w: leaf %d is underfull", ErrStructuralInvariantViolated, pid)
		}
		num := leaf.numEntries()
		for i := 0; i < num; i++ {
			k := leaf.keyAt(i)
			if i > 0 && bytes.Compare(leaf.keyAt(i-1), k) > 0 {
				return nil, nil, 0, fmt.Errorf("%w: leaf %d keys out of order", ErrStructuralInvariantViolated, pid)
			}
			if lowBound != nil && bytes.Compare(k, lowBound) < 0 {
				return nil, nil, 0, fmt.Errorf("%w: leaf %d key below its lower bound", ErrStructuralInvariantViolated, pid)
			}
			if highBound != nil && bytes.Compare(k, highBound) >= 0 {
				return nil, nil, 0, fmt.Errorf("%w: leaf %d key at or above its upper bound", ErrStructuralInvariantViolated, pid)
			}
		}
		if num == 0 {
			return nil, nil, 0, nil
		}
		return leaf.keyAt(0), leaf.keyAt(num - 1), 0, nil
	}

	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	defer idx.fr.release()
	if !isRoot && idx.isUnderfull() {
		return nil, nil, 0, fmt.Errorf("%w: index node %d is underfull", ErrStructuralInvariantViolated, pid)
	}
	num := idx.numSlots()
	var treeLow, treeHigh []byte
	depth := -1
	for i := 0; i < num; i++ {
		childLow, childHigh := lowBound, highBound
		if i > 0 {
			childLow = idx.separatorAt(i)
		}
		if i+1 < num {
			childHigh = idx.separatorAt(i + 1)
		}
		cl, ch, childDepth, err := t.verifySubtree(idx.childAt(i), reachable, childLow, childHigh, false)
		if err != nil {
			return nil, nil, 0, err
		}
		if depth == -1 {
			depth = childDepth
		} else if depth != childDepth {
			return nil, nil, 0, fmt.Errorf("%w: leaves beneath index node %d are at unequal depth", ErrStructuralInvariantViolated, pid)
		}
		if i == 0 {
			treeLow = cl
		}
		if i == num-1 {
			treeHigh = ch
		}
	}
	return treeLow, treeHigh, depth + 1, nil
}

// verifyLeafChain walks from the leftmost leaf to the rightmost and checks
// that every next/prev pair is a true inverse of the other.
func (t *Tree) verifyLeafChain() error {
	leftmost, err := t.GetLeftmostLeaf()
	if err != nil {
		return err
	}
	prevPID := pager.InvalidPage
	pid := leftmost
	for pid != pager.InvalidPage {
		leaf, err := openLeafNode(t.pgr, pid)
		if err != nil {
			return err
		}
		if leaf.getPrevPID() != prevPID {
			leaf.fr.release()
			return fmt.Errorf("%w: leaf %d has a broken prev pointer", ErrStructuralInvariantViolated, pid)
		}
		next := leaf.getNextPID()
		if err := leaf.fr.release(); err != nil {
			return err
		}
		prevPID = pid
		pid = next
	}
	return nil
}
