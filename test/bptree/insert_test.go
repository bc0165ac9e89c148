package bptree_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
	"github.com/yoshihanslin/Database-BTree/test/utils"
)

// setupTree creates and opens an empty Tree.
func setupTree(t *testing.T) *bptree.Tree {
	t.Parallel()
	dbName := utils.GetTempDbFile(t)
	tree, err := bptree.Open(dbName)
	require.NoError(t, err, "failed to create B+-tree")
	utils.EnsureCleanup(t, func() { _ = tree.Close() })
	return tree
}

// key formats i so lexicographic byte-string order matches numeric order
// over the ranges these tests use.
func key(i int64) string {
	return fmt.Sprintf("key-%09d", i)
}

func valueFor(i int64) rid.RID {
	return rid.New(uint32(i), int16(i%1000))
}

// closeAndReopen closes and reopens tree, which should trigger
// writing/reading its data from disk.
func closeAndReopen(t *testing.T, tree *bptree.Tree) *bptree.Tree {
	filename := tree.GetPager().GetFileName()
	require.NoError(t, tree.Close(), "failed to close tree")
	reopened, err := bptree.Open(filename)
	require.NoError(t, err, "failed to reopen tree")
	return reopened
}

func standardTreeSetup(t *testing.T, numInserts int64) *bptree.Tree {
	tree := setupTree(t)
	for i := int64(0); i < numInserts; i++ {
		utils.InsertEntry(t, tree, key(i), valueFor(i))
	}
	if t.Failed() {
		t.FailNow()
	}
	return tree
}

func TestInsert(t *testing.T) {
	t.Run("Ascending", testInsertAscending)
	t.Run("Descending", testInsertDescending)
	t.Run("Random", testInsertRandom)
	t.Run("Duplicates", testInsertDuplicateKeys)
	t.Run("KeyTooLarge", testInsertKeyTooLarge)
}

func testInsertAscending(t *testing.T) {
	for name, n := range map[string]int64{"Small": 10, "ForcesSplits": 2000} {
		n := n
		t.Run(name, func(t *testing.T) {
			tree := standardTreeSetup(t, n)
			for i := int64(0); i < n; i++ {
				utils.CheckFindEntry(t, tree, key(i), valueFor(i))
			}
			reopened := closeAndReopen(t, tree)
			for i := int64(0); i < n; i++ {
				utils.CheckFindEntry(t, reopened, key(i), valueFor(i))
			}
			require.NoError(t, reopened.Close())
		})
	}
}

func testInsertDescending(t *testing.T) {
	n := int64(2000)
	tree := setupTree(t)
	for i := n - 1; i >= 0; i-- {
		utils.InsertEntry(t, tree, key(i), valueFor(i))
	}
	for i := int64(0); i < n; i++ {
		utils.CheckFindEntry(t, tree, key(i), valueFor(i))
	}
	require.NoError(t, tree.Verify())
}

func testInsertRandom(t *testing.T) {
	for name, n := range map[string]int64{"Small": 200, "Large": 3000} {
		n := n
		t.Run(name, func(t *testing.T) {
			tree := setupTree(t)
			entries, answerKey := utils.GenerateRandomKeyValuePairs(n)
			for _, e := range entries {
				utils.InsertEntry(t, tree, e.Key, e.Val)
			}
			if t.Failed() {
				t.FailNow()
			}
			for k, v := range answerKey {
				utils.CheckFindEntry(t, tree, k, v)
			}
			require.NoError(t, tree.Verify())
		})
	}
}

// Inserts a batch of unique keys, then piles 50 distinct-RID duplicates
// under one of those keys (they all fit in the leaf already holding it, so
// that leaf does not split), and checks every duplicate survives a
// close/reopen and that the tree's structural invariants still hold.
func testInsertDuplicateKeys(t *testing.T) {
	n := int64(1000)
	tree := standardTreeSetup(t, n)

	dupKey := key(500)
	want := []rid.RID{valueFor(500)}
	for slot := int16(0); slot < 50; slot++ {
		r := rid.New(999, slot)
		want = append(want, r)
		require.NoError(t, tree.Insert([]byte(dupKey), r))
	}
	require.ElementsMatch(t, want, scanRIDs(t, tree, []byte(dupKey)))
	require.NoError(t, tree.Verify())

	tree = closeAndReopen(t, tree)
	require.ElementsMatch(t, want, scanRIDs(t, tree, []byte(dupKey)))
	require.NoError(t, tree.Close())
}

// scanRIDs collects every RID stored under key via a bounded scan.
func scanRIDs(t *testing.T, tree *bptree.Tree, key []byte) []rid.RID {
	cursor, err := tree.OpenScan(key, key)
	require.NoError(t, err)
	var rids []rid.RID
	for {
		e, err := cursor.GetEntry()
		if err != nil {
			break
		}
		rids = append(rids, e.RID)
		if !cursor.Next() {
			break
		}
	}
	require.NoError(t, cursor.Close())
	return rids
}

func testInsertKeyTooLarge(t *testing.T) {
	tree := setupTree(t)
	bigKey := make([]byte, 4096)
	for i := range bigKey {
		bigKey[i] = byte(rand.Intn(256))
	}
	err := tree.Insert(bigKey, rid.New(0, 0))
	require.ErrorIs(t, err, bptree.ErrKeyTooLarge)
}
