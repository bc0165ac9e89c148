package bptree_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/test/utils"
)

// TestConcurrentIndependentTrees drives inserts, deletes, and scans against
// several disjoint trees (each with its own backing file and pager) from
// separate goroutines at once. Nothing here shares mutable state across
// goroutines; each owns its own Tree end to end.
func TestConcurrentIndependentTrees(t *testing.T) {
	const numTrees = 8
	const entriesPerTree = int64(500)

	var g errgroup.Group
	for tr := 0; tr < numTrees; tr++ {
		tr := tr
		g.Go(func() error {
			dbName := utils.GetTempDbFile(t)
			tree, err := bptree.Open(dbName)
			if err != nil {
				return err
			}
			defer tree.Close()

			for i := int64(0); i < entriesPerTree; i++ {
				k := treeLocalKey(tr, i)
				if err := tree.Insert([]byte(k), valueFor(i)); err != nil {
					return err
				}
			}
			for i := int64(0); i < entriesPerTree; i += 2 {
				if err := tree.Delete([]byte(treeLocalKey(tr, i)), valueFor(i)); err != nil {
					return err
				}
			}
			if err := tree.Verify(); err != nil {
				return err
			}
			cursor, err := tree.CursorAtStart()
			if err != nil {
				return err
			}
			count := 0
			for {
				if _, err := cursor.GetEntry(); err != nil {
					break
				}
				count++
				if !cursor.Next() {
					break
				}
			}
			if err := cursor.Close(); err != nil {
				return err
			}
			if int64(count) != entriesPerTree/2 {
				t.Errorf("tree %d: expected %d surviving entries, got %d", tr, entriesPerTree/2, count)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func treeLocalKey(tr int, i int64) string {
	return key(int64(tr)*1_000_000 + i)
}
