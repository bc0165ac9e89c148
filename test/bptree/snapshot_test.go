package bptree_test

import (
	"path/filepath"
	"testing"

	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/test/utils"
)

// snapshotTree flushes tree's buffered pages, copies its backing file aside,
// and reopens the copy as an
// independent Tree, so the caller can mutate the live tree afterward and
// compare against what was actually durable at the time of the snapshot.
func snapshotTree(t *testing.T, tree *bptree.Tree) *bptree.Tree {
	src := tree.GetPager().GetFileName()
	tree.GetPager().FlushAllPages()
	dst := filepath.Join(t.TempDir(), filepath.Base(src)+".snapshot")
	require.NoError(t, copy.Copy(src, dst))
	snap, err := bptree.Open(dst)
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })
	return snap
}

// fullScanKeys drains a CursorAtStart scan into a slice of keys.
func fullScanKeys(t *testing.T, tree *bptree.Tree) []string {
	cursor, err := tree.CursorAtStart()
	require.NoError(t, err)
	return collectScan(t, cursor)
}

// TestSnapshotPreservesAtRestLayout checks that a file-level snapshot taken
// before a destructive mutation (split, merge, or destroy) still reads back
// as the exact pre-mutation entry set, independent of the live tree.
func TestSnapshotPreservesAtRestLayout(t *testing.T) {
	t.Run("AcrossSplits", testSnapshotAcrossSplits)
	t.Run("AcrossMerges", testSnapshotAcrossMerges)
	t.Run("AcrossDestroy", testSnapshotAcrossDestroy)
}

func testSnapshotAcrossSplits(t *testing.T) {
	n := int64(500)
	tree := standardTreeSetup(t, n)
	before := fullScanKeys(t, tree)
	snap := snapshotTree(t, tree)

	for i := n; i < n+2000; i++ {
		utils.InsertEntry(t, tree, key(i), valueFor(i))
	}

	require.Equal(t, before, fullScanKeys(t, snap))
}

func testSnapshotAcrossMerges(t *testing.T) {
	n := int64(3000)
	tree := standardTreeSetup(t, n)
	for i := int64(0); i < n; i += 2 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	before := fullScanKeys(t, tree)
	snap := snapshotTree(t, tree)

	for i := int64(1); i < n; i += 2 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}

	require.Equal(t, before, fullScanKeys(t, snap))
}

func testSnapshotAcrossDestroy(t *testing.T) {
	n := int64(300)
	tree := standardTreeSetup(t, n)
	before := fullScanKeys(t, tree)
	snap := snapshotTree(t, tree)

	require.NoError(t, tree.Destroy())

	require.Equal(t, before, fullScanKeys(t, snap))
}
