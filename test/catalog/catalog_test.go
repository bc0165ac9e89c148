package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yoshihanslin/Database-BTree/pkg/catalog"
	"github.com/yoshihanslin/Database-BTree/test/utils"
)

func setupCatalog(t *testing.T) *catalog.Catalog {
	t.Parallel()
	c, err := catalog.Open(utils.GetTempDbFile(t))
	require.NoError(t, err)
	utils.EnsureCleanup(t, func() { _ = c.Close() })
	return c
}

func TestCatalog(t *testing.T) {
	t.Run("AddAndGet", testCatalogAddAndGet)
	t.Run("NotFound", testCatalogNotFound)
	t.Run("Delete", testCatalogDelete)
	t.Run("SurvivesReopen", testCatalogSurvivesReopen)
}

func testCatalogAddAndGet(t *testing.T) {
	c := setupCatalog(t)
	require.NoError(t, c.AddFileEntry("orders", 7))
	pageID, err := c.GetFileEntry("orders")
	require.NoError(t, err)
	require.EqualValues(t, 7, pageID)
}

func testCatalogNotFound(t *testing.T) {
	c := setupCatalog(t)
	_, err := c.GetFileEntry("missing")
	require.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func testCatalogDelete(t *testing.T) {
	c := setupCatalog(t)
	require.NoError(t, c.AddFileEntry("orders", 7))
	require.NoError(t, c.DeleteFileEntry("orders"))
	_, err := c.GetFileEntry("orders")
	require.ErrorIs(t, err, catalog.ErrEntryNotFound)
}

func testCatalogSurvivesReopen(t *testing.T) {
	path := utils.GetTempDbFile(t)
	c, err := catalog.Open(path)
	require.NoError(t, err)
	require.NoError(t, c.AddFileEntry("customers", 42))
	require.NoError(t, c.Close())

	reopened, err := catalog.Open(path)
	require.NoError(t, err)
	pageID, err := reopened.GetFileEntry("customers")
	require.NoError(t, err)
	require.EqualValues(t, 42, pageID)
	require.NoError(t, reopened.Close())
}
