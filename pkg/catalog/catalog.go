// Package catalog maps a table's filename to the page id of its B+-tree
// header, so a name can be resolved back to a tree across restarts. Rather
// than invent a second on-disk format for this, the binding itself is
// stored as an entry in a B+-tree: the catalog is just pkg/bptree used on
// itself, with the bound page id packed into a RID.
package catalog

import (
	"errors"

	"github.com/yoshihanslin/Database-BTree/pkg/bptree"
	"github.com/yoshihanslin/Database-BTree/pkg/rid"
)

// ErrEntryNotFound is returned by GetFileEntry when name has no binding.
var ErrEntryNotFound = errors.New("catalog: no entry for name")

// Catalog is the filename -> header-page-id directory for a set of
// B+-trees kept under one base path.
type Catalog struct {
	t *bptree.Tree
}

// Open opens the catalog file at path, creating it if it doesn't exist.
func Open(path string) (*Catalog, error) {
	t, err := bptree.Open(path)
	if err != nil {
		return nil, err
	}
	return &Catalog{t: t}, nil
}

// Close closes the catalog's backing file.
func (c *Catalog) Close() error {
	return c.t.Close()
}

// GetFileEntry returns the header page id bound to name, or
// ErrEntryNotFound if name has never been added (or has been deleted).
func (c *Catalog) GetFileEntry(name string) (int64, error) {
	r, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	return int64(r.PageID), nil
}

// AddFileEntry binds name to pageID.
func (c *Catalog) AddFileEntry(name string, pageID int64) error {
	return c.t.Insert([]byte(name), rid.New(uint32(pageID), 0))
}

// DeleteFileEntry removes name's binding, returning ErrEntryNotFound if
// name has no binding.
func (c *Catalog) DeleteFileEntry(name string) error {
	r, err := c.lookup(name)
	if err != nil {
		return err
	}
	return c.t.Delete([]byte(name), r)
}

// lookup returns the RID bound to name. Names are unique, so scanning the
// single-key range [name, name] on the underlying tree always yields at
// most the one entry bound to it.
func (c *Catalog) lookup(name string) (rid.RID, error) {
	cursor, err := c.t.OpenScan([]byte(name), []byte(name))
	if err != nil {
		return rid.RID{}, err
	}
	e, err := cursor.GetEntry()
	if err != nil {
		cursor.Close()
		if errors.Is(err, bptree.ErrKeyNotFound) {
			return rid.RID{}, ErrEntryNotFound
		}
		return rid.RID{}, err
	}
	if err := cursor.Close(); err != nil {
		return rid.RID{}, err
	}
	return e.RID, nil
}
