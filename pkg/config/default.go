// Global index config.
package config

// Name of the index engine.
const IndexName = "bptreeindex"

// The maximum number of pages that can be in the pager's buffer at once.
const MaxPagesInBuffer = 32

// MaxKeySize is the maximum length, in bytes, of an index key.
const MaxKeySize = 512

// MinFillNumerator and MinFillDenominator define the half-full threshold used
// by delete to decide whether a node needs rebalancing: a node is underfull
// when its available space exceeds MinFillNumerator/MinFillDenominator of the
// page's usable data size.
const (
	MinFillNumerator   = 1
	MinFillDenominator = 2
)
