package utils

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// Mod vals by this value to prevent hardcoding tests
// + 1 is necessary because rand.Int63n(_) can return 0
var Salt int64 = rand.Int63n(1000) + 1

// GetTempDbFile creates a uniquely-named file in the OS's temp directory for
// testing, returning the file's name. Once the test is done running, the
// file is deleted.
func GetTempDbFile(t *testing.T) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ".db"
	path := filepath.Join(os.TempDir(), name)
	if err := os.WriteFile(path, nil, 0666); err != nil {
		t.Fatal(err)
	}

	EnsureCleanup(t, func() {
		_ = os.Remove(path)
	})
	return path
}

// InsertEntry tries to insert (key, id) into tree, requiring the operation
// to succeed.
func InsertEntry(t *testing.T, tree *bptree.Tree, key string, id rid.RID) {
	err := tree.Insert([]byte(key), id)
	require.NoErrorf(t, err, "failed to insert (%q, %v) into the tree", key, id)
}

// CheckFindEntry verifies that tree holds (key, expected), requiring Search
// to locate the key and a scan of that leaf to surface expected among the
// (possibly several, if key is a duplicate) entries stored under it.
func CheckFindEntry(t *testing.T, tree *bptree.Tree, key string, expected rid.RID) {
	_, err := tree.Search([]byte(key))
	require.NoErrorf(t, err, "failed to find inserted entry (%q, %v)", key, expected)

	cursor, err := tree.OpenScan([]byte(key), []byte(key))
	require.NoError(t, err)
	found := false
	for {
		e, err := cursor.GetEntry()
		if err != nil {
			break
		}
		if e.RID == expected {
			found = true
		}
		if !cursor.Next() {
			break
		}
	}
	require.NoErrorf(t, cursor.Close(), "failed to close scan for key %q", key)
	require.Truef(t, found, "entry for key %q with RID %v not found among its stored entries", key, expected)
}
