// Package pager owns the single backing file: it reads and writes pages
// at a fixed size, caches them in memory, tracks which are dirty, and
// flushes them back to disk. Nothing outside this package touches the
// file handle directly.
package pager

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/dstrohschein/miniql/src/pagelayout"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// Fixed on-disk widths that aren't already owned by codec.
const (
	PageSize         = 1024
	NodeMetadataSize = 2 // n (1B) + flag (1B)
	TableNameSize    = 32
	FieldNameSize    = 16

	// HeaderSize reserves exactly one page's worth of space at the front
	// of the file for the serialized schema; data pages begin at page
	// index 1. This keeps the header region fixed-size and sidesteps the
	// original encoder's page/offset arithmetic, which shifts its own
	// page boundaries as the header grows.
	HeaderSize = PageSize
)

// Core owns the file handle and the page cache. It is never used
// directly by other packages — they go through an Accessor.
type Core struct {
	mu     sync.RWMutex
	file   *os.File
	cache  map[schema.Position]*PageContainer
	schema *schema.Schema
	t      int // btree minimum degree
	hash   uuid.UUID
	log    *zap.SugaredLogger

	// nextFreePage is the single, pager-wide page allocation counter.
	// Each TableSchema also carries its own NextPosition field (per
	// spec.md §6's header layout, kept for on-disk compatibility and
	// inspection), but it is not the source of truth for allocation:
	// per-table counters would let two tables hand out the same page
	// index once either one grows far enough, since the original
	// single-table source never had to arbitrate between tables. This
	// counter is the fix, persisted as one extra header field.
	nextFreePage uint16
}

// Accessor is the handle every other package holds. It carries a copy of
// the Core's identity hash so Verify can detect a stale accessor left
// over from a previous, since-closed Core.
type Accessor struct {
	core *Core
	hash uuid.UUID
}

// Open opens an existing database file, reads its schema header, and
// returns an Accessor bound to it. The file must already exist — Open
// never creates one (CREATE TABLE allocates within an existing file;
// provisioning a brand new file is Create's job).
func Open(path string, t int, log *zap.SugaredLogger) (*Accessor, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.New(status.ExceptionFileNotFoundOrPermissionDenied, path)
		}
		return nil, status.New(status.InternalExceptionFileNotFound, err.Error())
	}

	if err := validateFileLayout(file); err != nil {
		file.Close()
		return nil, err
	}

	sch, nextFreePage, err := readSchema(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	core := &Core{
		file:         file,
		cache:        make(map[schema.Position]*PageContainer),
		schema:       sch,
		t:            t,
		hash:         uuid.New(),
		log:          log,
		nextFreePage: nextFreePage,
	}
	log.Debugw("pager opened", "path", path, "hash", core.hash, "tables", len(sch.Tables))
	return &Accessor{core: core, hash: core.hash}, nil
}

// Create provisions a brand new, empty database file: an empty schema
// header and no data pages.
func Create(path string, t int, log *zap.SugaredLogger) (*Accessor, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, status.New(status.InternalExceptionWriteFailed, err.Error())
	}
	sch := schema.NewSchema()
	if err := writeSchema(file, sch, 1); err != nil {
		file.Close()
		return nil, err
	}
	core := &Core{
		file:         file,
		cache:        make(map[schema.Position]*PageContainer),
		schema:       sch,
		t:            t,
		hash:         uuid.New(),
		log:          log,
		nextFreePage: 1,
	}
	log.Debugw("pager created", "path", path, "hash", core.hash)
	return &Accessor{core: core, hash: core.hash}, nil
}

// validateFileLayout mmaps the file read-only just long enough to check
// its length is at least HeaderSize and warm the OS page cache; it never
// serves reads or writes afterward, which stay on the *os.File handle.
func validateFileLayout(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return status.New(status.InternalExceptionReadFailed, err.Error())
	}
	if info.Size() < HeaderSize {
		return status.New(status.InternalExceptionInvalidSchema, "file shorter than header region")
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Mmap validation is best-effort: some filesystems/environments
		// don't support it. Fall back to the plain Stat check above.
		return nil
	}
	defer unix.Munmap(data)
	return nil
}

// Verify reports whether hash matches this Accessor's identity,
// detecting a stale reference kept around after the underlying file was
// closed and reopened under a new Accessor.
func (a *Accessor) Verify(hash uuid.UUID) bool {
	return a.hash == hash
}

// Hash returns the pager's process-lifetime identity.
func (a *Accessor) Hash() uuid.UUID {
	return a.hash
}

// Schema returns the in-memory catalog.
func (a *Accessor) Schema() *schema.Schema {
	a.core.mu.RLock()
	defer a.core.mu.RUnlock()
	return a.core.schema
}

// InvalidateCache drops every cached page, forcing the next access to
// reload from disk. Used after a schema mutation (e.g. CREATE TABLE)
// that could have changed page-length assumptions.
func (a *Accessor) InvalidateCache() {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()
	a.core.cache = make(map[schema.Position]*PageContainer)
	a.core.log.Debug("pager cache invalidated")
}

// Flush serializes the schema header and writes every dirty cached page
// back to disk. Multiple page-write failures are aggregated rather than
// stopping at the first.
func (a *Accessor) Flush() error {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()
	return a.core.flush()
}

func (c *Core) flush() error {
	if err := writeSchema(c.file, c.schema, c.nextFreePage); err != nil {
		return err
	}

	var errs error
	for pos, page := range c.cache {
		if !pagelayout.IsDirty(page.Data) {
			continue
		}
		if err := c.writePageToDisk(pos, page); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		pagelayout.SetDirty(page.Data, false)
	}
	if errs != nil {
		c.log.Errorw("flush encountered page write failures", "error", errs)
	}
	return errs
}

// Close flushes and releases the file handle.
func (a *Accessor) Close() error {
	a.core.mu.Lock()
	defer a.core.mu.Unlock()
	err := a.core.flush()
	if cerr := a.core.file.Close(); cerr != nil && err == nil {
		err = status.New(status.InternalExceptionWriteFailed, cerr.Error())
	}
	return err
}

// MinDegree returns the configured B-tree minimum degree t.
func (a *Accessor) MinDegree() int {
	a.core.mu.RLock()
	defer a.core.mu.RUnlock()
	return a.core.t
}
