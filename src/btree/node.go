// Package btree implements a classical B-tree of minimum degree t over
// the pager's pages: insert with pre-emptive split, delete with
// pre-emptive fill (borrow/merge), point lookup, and a bounded range
// walk. Keys and rows are co-located at the same index within a node,
// at every level (not just leaves), so internal-node key promotion
// during a split or merge carries its row along too.
package btree

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/pagelayout"
	"github.com/dstrohschein/miniql/src/schema"
)

// node is a cheap, stateless handle to a B-tree node: everything it
// needs lives on the page the pager caches at pos. It mirrors the
// original's BTreeNode(position, table_schema, pager_accessor) handle,
// minus the duplicated in-memory keys/children vectors that handle
// carried (and warned against carrying, in its own comments) — every
// read here goes straight through the pager's cache.
type node struct {
	bt  *BTree
	pos schema.Position
}

func (n node) fieldInfo() (keyLength, rowLength int, err error) {
	table, err := n.bt.pager.Table(n.bt.tableName)
	if err != nil {
		return 0, 0, err
	}
	keyLength, err = table.KeyLength()
	if err != nil {
		return 0, 0, err
	}
	rowLength, err = table.RowLength()
	if err != nil {
		return 0, 0, err
	}
	return keyLength, rowLength, nil
}

func (n node) read() (*pager.PageContainer, error) {
	return n.bt.pager.AccessPageRead(n.bt.tableName, n.pos)
}

func (n node) write() (*pager.PageContainer, error) {
	return n.bt.pager.AccessPageWrite(n.bt.tableName, n.pos)
}

func (n node) isLeaf() (bool, error) {
	pc, err := n.read()
	if err != nil {
		return false, err
	}
	return pagelayout.IsLeaf(pc.Data), nil
}

func (n node) keysCount() (int, error) {
	pc, err := n.read()
	if err != nil {
		return 0, err
	}
	return pagelayout.NKeys(pc.Data), nil
}

func (n node) key(i int) ([]byte, error) {
	pc, err := n.read()
	if err != nil {
		return nil, err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return nil, err
	}
	return pagelayout.ReadKey(pc.Data, i, keyLength)
}

func (n node) row(i int) ([]byte, error) {
	pc, err := n.read()
	if err != nil {
		return nil, err
	}
	keyLength, rowLength, err := n.fieldInfo()
	if err != nil {
		return nil, err
	}
	return pagelayout.ReadData(pc.Data, i, keyLength, rowLength)
}

func (n node) child(i int) (schema.Position, error) {
	pc, err := n.read()
	if err != nil {
		return schema.Position{}, err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return schema.Position{}, err
	}
	return pagelayout.ReadChild(pc.Data, i, keyLength)
}

func (n node) keys() ([][]byte, error) {
	pc, err := n.read()
	if err != nil {
		return nil, err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return nil, err
	}
	return pagelayout.ReadKeysAsVec(pc.Data, keyLength), nil
}

func (n node) rows() ([][]byte, error) {
	pc, err := n.read()
	if err != nil {
		return nil, err
	}
	keyLength, rowLength, err := n.fieldInfo()
	if err != nil {
		return nil, err
	}
	return pagelayout.ReadDataAsVec(pc.Data, keyLength, rowLength), nil
}

// allChildren returns exactly n+1 children, including the empty
// sentinel slots a leaf node carries. Split/merge/borrow need the exact
// vector, not ReadChildrenAsVec's early-stop-at-empty view.
func (n node) allChildren() ([]schema.Position, error) {
	pc, err := n.read()
	if err != nil {
		return nil, err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return nil, err
	}
	return pagelayout.ReadAllChildrenAsVec(pc.Data, keyLength), nil
}

func (n node) childrenCount() (int, error) {
	count, err := n.keysCount()
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

// setKeysRows replaces the node's whole key/row vector, resizing the
// children region to match (padding with the empty sentinel on growth,
// dropping the tail on shrink — see pagelayout.WriteKeysVecResizeWithRows).
// Callers that need the surviving children somewhere other than the
// surviving prefix must follow up with an explicit setChildren.
func (n node) setKeysRows(keys, rows [][]byte) error {
	pc, err := n.write()
	if err != nil {
		return err
	}
	keyLength, rowLength, err := n.fieldInfo()
	if err != nil {
		return err
	}
	newData, err := pagelayout.WriteKeysVecResizeWithRows(pc.Data, keys, rows, keyLength, rowLength)
	if err != nil {
		return err
	}
	return n.bt.pager.ReplacePageData(n.pos, newData)
}

// setKeyAt overwrites a single key/row pair in place without touching
// the node's count (used when rotating a key through a parent during
// borrow/predecessor-successor substitution).
func (n node) setKeyAt(i int, key, row []byte) error {
	pc, err := n.write()
	if err != nil {
		return err
	}
	keyLength, rowLength, err := n.fieldInfo()
	if err != nil {
		return err
	}
	if err := pagelayout.WriteKey(pc.Data, i, key, keyLength); err != nil {
		return err
	}
	return pagelayout.WriteData(pc.Data, i, row, keyLength, rowLength)
}

func (n node) setChild(i int, pos schema.Position) error {
	pc, err := n.write()
	if err != nil {
		return err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return err
	}
	return pagelayout.WriteChild(pc.Data, i, pos, keyLength)
}

func (n node) setChildren(children []schema.Position) error {
	for i, c := range children {
		if err := n.setChild(i, c); err != nil {
			return err
		}
	}
	return nil
}

func (n node) setTomb(i int, kt codec.Type, value bool) error {
	pc, err := n.write()
	if err != nil {
		return err
	}
	keyLength, _, err := n.fieldInfo()
	if err != nil {
		return err
	}
	key, err := pagelayout.ReadKey(pc.Data, i, keyLength)
	if err != nil {
		return err
	}
	codec.SetTomb(key, kt, value)
	return nil
}

func keyType(table *schema.TableSchema) (codec.Type, error) {
	f, err := table.KeyField()
	if err != nil {
		return 0, err
	}
	return f.Type, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func insertBytesAt(s [][]byte, i int, v []byte) [][]byte {
	out := make([][]byte, len(s)+1)
	copy(out, s[:i])
	out[i] = v
	copy(out[i+1:], s[i:])
	return out
}

func insertPositionAt(s []schema.Position, i int, v schema.Position) []schema.Position {
	out := make([]schema.Position, len(s)+1)
	copy(out, s[:i])
	out[i] = v
	copy(out[i+1:], s[i:])
	return out
}
