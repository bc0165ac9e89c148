package bptree_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/test/utils"
)

func TestVerify(t *testing.T) {
	t.Run("Empty", testVerifyEmpty)
	t.Run("AfterMixedOps", testVerifyAfterMixedOps)
}

func testVerifyEmpty(t *testing.T) {
	tree := setupTree(t)
	require.NoError(t, tree.Verify())
}

func testVerifyAfterMixedOps(t *testing.T) {
	n := int64(4000)
	tree := standardTreeSetup(t, n)
	require.NoError(t, tree.Verify())

	for i := int64(0); i < n; i += 5 {
		require.NoError(t, tree.Delete([]byte(key(i)), valueFor(i)))
	}
	require.NoError(t, tree.Verify())

	for i := int64(0); i < n; i += 5 {
		utils.InsertEntry(t, tree, key(i), valueFor(i))
	}
	require.NoError(t, tree.Verify())
}

func TestDumpStatistics(t *testing.T) {
	n := int64(2000)
	tree := standardTreeSetup(t, n)

	var buf bytes.Buffer
	stats, err := tree.DumpStatistics(&buf)
	require.NoError(t, err)
	require.Greater(t, stats.TotalDataPages, 0)
	require.Greater(t, stats.Height, 0)
	require.NotEmpty(t, buf.String())

	// Re-running the walk on an unchanged tree must produce the exact same
	// content fingerprint.
	var buf2 bytes.Buffer
	stats2, err := tree.DumpStatistics(&buf2)
	require.NoError(t, err)
	require.Equal(t, stats.Fingerprint, stats2.Fingerprint)
}

func TestDestroy(t *testing.T) {
	tree := standardTreeSetup(t, 500)
	require.NoError(t, tree.Destroy())
}
