package bptree

import (
	"fmt"
	"io"

	"github.com/spaolacci/murmur3"

	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

// PrintTree pretty-prints the whole tree starting at its root.
func (t *Tree) PrintTree(w io.Writer) error {
	rootPID, err := t.readRoot()
	if err != nil {
		return err
	}
	if rootPID == pager.InvalidPage {
		fmt.Fprintln(w, "[empty tree]")
		return nil
	}
	return t.PrintNode(rootPID, true, w)
}

// PrintNode prints the node at pageID. If recursive is false, only that
// single node is printed; if true, its entire subtree is printed too.
func (t *Tree) PrintNode(pageID int64, recursive bool, w io.Writer) error {
	return t.printNode(pageID, recursive, "", "", w)
}

func (t *Tree) printNode(pageID int64, recursive bool, firstPrefix, prefix string, w io.Writer) error {
	page, err := t.pgr.Pin(pageID)
	if err != nil {
		return err
	}
	if isLeafPage(page) {
		leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
		defer leaf.fr.release()
		fmt.Fprintf(w, "%v[%v] Leaf size: %v\n", firstPrefix, pageID, leaf.numEntries())
		for i := 0; i < leaf.numEntries(); i++ {
			e := leaf.entryAt(i)
			fmt.Fprintf(w, "%v |--> ", prefix)
			e.Print(w)
			fmt.Fprintln(w)
		}
		return nil
	}
	idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
	defer idx.fr.release()
	fmt.Fprintf(w, "%v[%v] Internal size: %v\n", firstPrefix, pageID, idx.numSlots())
	if !recursive {
		return nil
	}
	nextFirstPrefix := prefix + " |--> "
	nextPrefix := prefix + " |    "
	for i := 0; i < idx.numSlots(); i++ {
		if i > 0 {
			fmt.Fprintf(w, "%v[KEY] %q\n", nextPrefix, idx.separatorAt(i))
		}
		if err := t.printNode(idx.childAt(i), true, nextFirstPrefix, nextPrefix, w); err != nil {
			return err
		}
	}
	return nil
}

// GetLeftmostLeaf returns the page id of the tree's leftmost leaf, or
// pager.InvalidPage if the tree is empty.
func (t *Tree) GetLeftmostLeaf() (int64, error) {
	rootPID, err := t.readRoot()
	if err != nil {
		return 0, err
	}
	if rootPID == pager.InvalidPage {
		return pager.InvalidPage, nil
	}
	pid := rootPID
	for {
		page, err := t.pgr.Pin(pid)
		if err != nil {
			return 0, err
		}
		if isLeafPage(page) {
			if err := t.pgr.Unpin(page, false); err != nil {
				return 0, err
			}
			return pid, nil
		}
		idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
		pid = idx.leftmostChild()
		if err := idx.fr.release(); err != nil {
			return 0, err
		}
	}
}

// Statistics summarizes the physical shape of the tree for diagnostics.
type Statistics struct {
	Height          int
	TotalDataPages  int
	TotalIndexPages int
	AvgLeafFill     float64
	AvgIndexFill    float64
	Fingerprint     uint64 // murmur3 hash of every (key, RID) pair, XOR-folded so traversal order doesn't matter
}

// DumpStatistics walks the whole tree once, accumulating per-page fill
// factors, height, and a content fingerprint: two trees holding the same
// entries under different physical layouts report the same fingerprint.
func (t *Tree) DumpStatistics(w io.Writer) (Statistics, error) {
	rootPID, err := t.readRoot()
	if err != nil {
		return Statistics{}, err
	}
	var stats Statistics
	var totalFillData, totalFillIndex float64
	var fingerprint uint64
	usable := float64(pager.Pagesize - int64(pager.SlottedHeaderSize))

	var walk func(pid int64, depth int) error
	walk = func(pid int64, depth int) error {
		page, err := t.pgr.Pin(pid)
		if err != nil {
			return err
		}
		if isLeafPage(page) {
			leaf := &leafNode{fr: &frame{pgr: t.pgr, page: page}}
			defer leaf.fr.release()
			stats.TotalDataPages++
			used := usable - float64(leaf.fr.page.AvailableSpace())
			totalFillData += used / usable
			for i := 0; i < leaf.numEntries(); i++ {
				e := leaf.entryAt(i)
				fingerprint ^= murmur3.Sum64(append(append([]byte{}, e.Key...), e.RID.Marshal()...))
			}
			if depth+1 > stats.Height {
				stats.Height = depth + 1
			}
			return nil
		}
		idx := &indexNode{fr: &frame{pgr: t.pgr, page: page}}
		defer idx.fr.release()
		stats.TotalIndexPages++
		used := usable - float64(idx.fr.page.AvailableSpace())
		totalFillIndex += used / usable
		for i := 0; i < idx.numSlots(); i++ {
			if err := walk(idx.childAt(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if rootPID != pager.InvalidPage {
		if err := walk(rootPID, 0); err != nil {
			return Statistics{}, err
		}
	}
	if stats.TotalDataPages > 0 {
		stats.AvgLeafFill = totalFillData / float64(stats.TotalDataPages)
	}
	if stats.TotalIndexPages > 0 {
		stats.AvgIndexFill = totalFillIndex / float64(stats.TotalIndexPages)
	}
	stats.Fingerprint = fingerprint
	fmt.Fprintf(w, "height: %d, data pages: %d (avg fill %.2f), index pages: %d (avg fill %.2f), fingerprint: %x\n",
		stats.Height, stats.TotalDataPages, stats.AvgLeafFill, stats.TotalIndexPages, stats.AvgIndexFill, stats.Fingerprint)
	return stats, nil
}
