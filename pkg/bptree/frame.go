package bptree

import "github.com/yoshihanslin/Database-BTree/pkg/pager"

// frame wraps a single pinned page for the lifetime of a lexical scope:
// acquire it with pinFrame or allocFrame, defer its release, and call
// markDirty whenever its contents change. This is the replacement for the
// parent-pointer/lock bookkeeping a concurrent B+-tree would need: since the
// tree has exactly one writer, a parent field would either duplicate state
// already implied by the recursion or rot the moment a split moves a node,
// so descent passes page ids down the call stack instead, and every
// recursive step owns exactly one frame whose release is never missed on an
// early return.
type frame struct {
	pgr   *pager.Pager
	page  *pager.Page
	dirty bool
}

// pinFrame pins an existing page by id.
func pinFrame(pgr *pager.Pager, pageID int64) (*frame, error) {
	page, err := pgr.Pin(pageID)
	if err != nil {
		return nil, err
	}
	return &frame{pgr: pgr, page: page}, nil
}

// allocFrame allocates and pins a brand new page.
func allocFrame(pgr *pager.Pager) (*frame, error) {
	page, err := pgr.NewPage()
	if err != nil {
		return nil, ErrPageAllocFail
	}
	return &frame{pgr: pgr, page: page, dirty: true}, nil
}

// markDirty records that this frame's page must be written back on release.
func (f *frame) markDirty() {
	f.dirty = true
}

// release unpins the frame's page, if it hasn't already been released.
// Safe to call multiple times and on a nil frame.
func (f *frame) release() error {
	if f == nil || f.page == nil {
		return nil
	}
	err := f.pgr.Unpin(f.page, f.dirty)
	f.page = nil
	return err
}

// id returns the page id backing this frame.
func (f *frame) id() int64 {
	return f.page.GetPageNum()
}
