package bptree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/pkg/pager"
)

func TestDelete(t *testing.T) {
	t.Run("Basic", testDeleteBasic)
	t.Run("NotFound", testDeleteNotFound)
	t.Run("CascadingMerges", testDeleteCascadingMerges)
	t.Run("AllEntriesCollapsesToEmptyTree", testDeleteAllEntriesCollapsesRoot)
}

func testDeleteBasic(t *testing.T) {
	n := int64(1000)
	tree := standardTreeSetup(t, n)

	for i := int64(0); i < n; i += 2 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	require.NoError(t, tree.Verify())

	for i := int64(0); i < n; i++ {
		_, err := tree.Search([]byte(key(i)))
		if i%2 == 0 {
			require.ErrorIs(t, err, bptree.ErrKeyNotFound)
		} else {
			require.NoError(t, err)
		}
	}
}

func testDeleteNotFound(t *testing.T) {
	tree := standardTreeSetup(t, 100)
	err := tree.Delete([]byte(key(10000)), valueFor(10000))
	require.ErrorIs(t, err, bptree.ErrKeyNotFound)

	// Same key, wrong RID: must also miss.
	err = tree.Delete([]byte(key(5)), valueFor(10000))
	require.ErrorIs(t, err, bptree.ErrKeyNotFound)
}

// Inserts enough entries to build a multi-level tree, then deletes most of
// them in an order designed to force merges and redistributions all the way
// up through the index levels, checking the tree's structural invariants
// hold at every step.
func testDeleteCascadingMerges(t *testing.T) {
	n := int64(5000)
	tree := standardTreeSetup(t, n)
	require.NoError(t, tree.Verify())

	// Delete every third entry first (forces redistribution/merge without
	// emptying contiguous runs), then verify, then delete a large
	// contiguous run (forces cascading merges up multiple levels).
	for i := int64(0); i < n; i += 3 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	require.NoError(t, tree.Verify())

	for i := int64(1); i < n; i += 3 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	require.NoError(t, tree.Verify())

	remaining, expected := 0, 0
	for i := int64(0); i < n; i++ {
		if i%3 == 2 {
			expected++
		}
		_, err := tree.Search([]byte(key(i)))
		if err == nil {
			remaining++
		}
	}
	require.Equal(t, expected, remaining)
}

func testDeleteAllEntriesCollapsesRoot(t *testing.T) {
	n := int64(3000)
	tree := standardTreeSetup(t, n)

	for i := int64(0); i < n; i++ {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	require.NoError(t, tree.Verify())

	rootPID, err := tree.RootPageID()
	require.NoError(t, err)
	require.EqualValues(t, pager.InvalidPage, rootPID)

	cursor, err := tree.CursorAtStart()
	require.NoError(t, err)
	_, err = cursor.GetEntry()
	require.ErrorIs(t, err, bptree.ErrKeyNotFound)
	require.False(t, cursor.Next())
	require.NoError(t, cursor.Close())
}
