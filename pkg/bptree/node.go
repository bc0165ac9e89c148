package bptree

import (
	"github.com/yoshihanslin/Database-BTree/pkg/config"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

// Node type tags stored in a page's NodeTypeTag byte.
const (
	indexNodeTag byte = 0
	leafNodeTag  byte = 1
)

// isLeafPage reports whether page holds a leaf node.
func isLeafPage(page *pager.Page) bool {
	return page.NodeTypeTag() == leafNodeTag
}

// underfull reports whether a node's available space exceeds the
// configured half-full threshold of the page's usable data region,
// signalling that its parent should redistribute or merge it with a sibling.
func underfull(page *pager.Page) bool {
	usable := pager.Pagesize - int64(pager.SlottedHeaderSize)
	return page.AvailableSpace()*int64(config.MinFillDenominator) > usable*int64(config.MinFillNumerator)
}
