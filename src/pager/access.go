package pager

import (
	"github.com/dstrohschein/miniql/src/pagelayout"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// filePosition returns the absolute file offset of a Position. Page
// index 0 is reserved for the header (see HeaderSize); data pages start
// at index 1, so this is the same `page*PageSize + cell` arithmetic the
// original pager uses, made consistent by never handing out page 0.
func filePosition(pos schema.Position) int64 {
	return int64(pos.Page)*PageSize + int64(pos.Cell)
}

func (c *Core) readPageFromDisk(pos schema.Position, table *schema.TableSchema) (*PageContainer, error) {
	header := make([]byte, pagelayout.NodeMetadataSize)
	if _, err := c.file.ReadAt(header, filePosition(pos)); err != nil {
		return nil, status.New(status.InternalExceptionReadFailed, err.Error())
	}
	n := int(header[0])

	keyLength, err := table.KeyLength()
	if err != nil {
		return nil, err
	}
	rowLength, err := table.RowLength()
	if err != nil {
		return nil, err
	}

	span := pagelayout.NodeSpan(n, keyLength, rowLength)
	buf := make([]byte, span)
	if _, err := c.file.ReadAt(buf, filePosition(pos)); err != nil {
		return nil, status.New(status.InternalExceptionReadFailed, err.Error())
	}
	return &PageContainer{Data: buf, Position: pos}, nil
}

func (c *Core) writePageToDisk(pos schema.Position, page *PageContainer) error {
	if len(page.Data) > PageSize {
		return status.New(status.InternalExceptionWriteFailed, "node span exceeds page size")
	}
	if _, err := c.file.WriteAt(page.Data, filePosition(pos)); err != nil {
		return status.New(status.InternalExceptionWriteFailed, err.Error())
	}
	return nil
}

// AccessPageRead returns the cached page at pos (the live cache entry,
// not a copy) for the named table, loading it from disk on a cache miss and installing it
// into the cache.
func (a *Accessor) AccessPageRead(tableName string, pos schema.Position) (*PageContainer, error) {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()

	if page, ok := a.core.cache[pos]; ok {
		return page, nil
	}
	table, err := a.core.schema.Table(tableName)
	if err != nil {
		return nil, err
	}
	page, err := a.core.readPageFromDisk(pos, table)
	if err != nil {
		return nil, err
	}
	a.core.cache[pos] = page
	return page, nil
}

// AccessPageWrite returns a mutable handle to the page at pos, marking
// it dirty. A cache miss loads from disk first.
func (a *Accessor) AccessPageWrite(tableName string, pos schema.Position) (*PageContainer, error) {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()

	page, ok := a.core.cache[pos]
	if !ok {
		table, err := a.core.schema.Table(tableName)
		if err != nil {
			return nil, err
		}
		loaded, err := a.core.readPageFromDisk(pos, table)
		if err != nil {
			return nil, err
		}
		page = loaded
		a.core.cache[pos] = page
	}
	pagelayout.SetDirty(page.Data, true)
	return page, nil
}

// ReplacePageData installs newData as the page's content (used after an
// operation that resizes the node, e.g. WriteKeysVecResizeWithRows).
func (a *Accessor) ReplacePageData(pos schema.Position, newData []byte) error {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()
	page, ok := a.core.cache[pos]
	if !ok {
		return status.New(status.InternalExceptionCacheDenied, "page not cached")
	}
	pagelayout.SetDirty(newData, true)
	page.Data = newData
	return nil
}

// AllocatePage returns the next unused Position file-wide and advances
// the pager's single allocation counter. One node occupies exactly one
// page under this pager's packing policy. table.NextPosition is updated
// too, purely as an on-disk record of this table's latest allocation
// (see the Core.nextFreePage field doc for why it isn't the source of
// truth).
func (a *Accessor) AllocatePage(tableName string) (schema.Position, error) {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()

	table, err := a.core.schema.Table(tableName)
	if err != nil {
		return schema.Position{}, err
	}
	if a.core.nextFreePage == 0 {
		a.core.nextFreePage = 1
	}
	pos := schema.Position{Page: a.core.nextFreePage, Cell: 0}
	a.core.nextFreePage++
	table.NextPosition = schema.Position{Page: a.core.nextFreePage, Cell: 0}
	return pos, nil
}

// CreatePage allocates a page for table and initializes it as a node
// with the given keys/children/rows, installing it into the cache dirty.
func (a *Accessor) CreatePage(tableName string, keys, rows [][]byte, leaf bool) (schema.Position, error) {
	pos, err := a.AllocatePage(tableName)
	if err != nil {
		return schema.Position{}, err
	}

	a.core.mu.Lock()
	defer a.core.mu.Unlock()
	table, err := a.core.schema.Table(tableName)
	if err != nil {
		return schema.Position{}, err
	}
	keyLength, err := table.KeyLength()
	if err != nil {
		return schema.Position{}, err
	}
	rowLength, err := table.RowLength()
	if err != nil {
		return schema.Position{}, err
	}
	if pagelayout.NodeSpan(len(keys), keyLength, rowLength) > PageSize {
		return schema.Position{}, status.New(status.InternalExceptionInvalidColCount, "node exceeds page size")
	}

	data := pagelayout.NewNodeBytes(keys, rows, keyLength, rowLength, leaf)
	pagelayout.SetDirty(data, true)
	a.core.cache[pos] = &PageContainer{Data: data, Position: pos}
	return pos, nil
}

// Table returns a pointer to the live TableSchema entry so callers (the
// btree) can read/update Root in place.
func (a *Accessor) Table(name string) (*schema.TableSchema, error) {
	a.core.mu.RLock()
	defer a.core.mu.RUnlock()
	return a.core.schema.Table(name)
}

// AddTable registers a new table and invalidates the cache, matching
// spec.md §4.7's Create table contract.
func (a *Accessor) AddTable(t schema.TableSchema) error {
	a.core.mu.Lock()
	if err := a.core.schema.AddTable(t); err != nil {
		a.core.mu.Unlock()
		return err
	}
	a.core.mu.Unlock()
	a.InvalidateCache()
	return nil
}

// DropTable removes a table from the catalog. Per spec.md §9's noted
// source ambiguity, this does not reclaim the table's pages.
func (a *Accessor) DropTable(name string) error {
	a.core.mu.Lock()
	if err := a.core.schema.DropTable(name); err != nil {
		a.core.mu.Unlock()
		return err
	}
	a.core.mu.Unlock()
	a.InvalidateCache()
	return nil
}
