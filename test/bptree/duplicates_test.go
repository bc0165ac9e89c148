package bptree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// TestDuplicateKeys exercises duplicate keys with different RIDs coexisting,
// delete matching on the exact (key, RID) pair rather than the key alone,
// and a range scan over a duplicate key surfacing every surviving RID.
func TestDuplicateKeys(t *testing.T) {
	tree := setupTree(t)
	k := []byte("k")
	r1, r2, r3 := rid.New(9, 1), rid.New(9, 2), rid.New(9, 3)

	require.NoError(t, tree.Insert(k, r1))
	require.NoError(t, tree.Insert(k, r2))
	require.NoError(t, tree.Insert(k, r3))

	require.ElementsMatch(t, []rid.RID{r1, r2, r3}, scanRIDs(t, tree, k))

	require.NoError(t, tree.Delete(k, r2))
	require.ElementsMatch(t, []rid.RID{r1, r3}, scanRIDs(t, tree, k))

	require.ErrorIs(t, tree.Delete(k, r2), bptree.ErrKeyNotFound)
}
