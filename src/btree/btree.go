package btree

import (
	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// BTree is a facade over one table's tree: every operation resolves the
// table's current root from the pager's live schema rather than caching
// a copy, so a concurrent schema lookup (e.g. the planner inspecting
// table.Root) never sees a stale value. The minimum degree is read from
// the pager once, at Open.
type BTree struct {
	pager     *pager.Accessor
	tableName string
	t         int
	log       *zap.SugaredLogger
}

// Open returns a BTree facade over tableName. The table must already
// exist in the pager's schema (created via CREATE TABLE); Open itself
// never creates a table.
func Open(p *pager.Accessor, tableName string, log *zap.SugaredLogger) (*BTree, error) {
	if _, err := p.Table(tableName); err != nil {
		return nil, err
	}
	return &BTree{pager: p, tableName: tableName, t: p.MinDegree(), log: log}, nil
}

// Insert adds (key, row) to the tree, pre-emptively splitting any full
// node found on the descent path (classical CLRS single-pass insert).
// A key already present — live or tombed — is an integrity violation:
// callers that want upsert-or-replace semantics must check existence
// (e.g. via Find) before calling Insert.
func (bt *BTree) Insert(key, row []byte) error {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return err
	}
	kt, err := keyType(table)
	if err != nil {
		return err
	}

	if table.Root.IsNone() {
		pos, err := bt.pager.CreatePage(bt.tableName, [][]byte{cloneBytes(key)}, [][]byte{cloneBytes(row)}, true)
		if err != nil {
			return err
		}
		table.Root = pos
		table.EntryCount++
		bt.log.Debugw("btree: created root", "table", bt.tableName, "pos", pos)
		return nil
	}

	root := node{bt, table.Root}
	n, err := root.keysCount()
	if err != nil {
		return err
	}

	if n == 2*bt.t-1 {
		newRootPos, err := bt.pager.CreatePage(bt.tableName, nil, nil, false)
		if err != nil {
			return err
		}
		newRoot := node{bt, newRootPos}
		if err := newRoot.setChild(0, table.Root); err != nil {
			return err
		}
		table.Root = newRootPos
		if err := bt.splitChild(newRootPos, 0); err != nil {
			return err
		}
		if err := bt.insertNonFull(newRootPos, key, row, kt); err != nil {
			return err
		}
		bt.log.Debugw("btree: root split", "table", bt.tableName)
	} else {
		if err := bt.insertNonFull(table.Root, key, row, kt); err != nil {
			return err
		}
	}
	table.EntryCount++
	return nil
}

func (bt *BTree) insertNonFull(pos schema.Position, key, row []byte, kt codec.Type) error {
	n := node{bt, pos}
	leaf, err := n.isLeaf()
	if err != nil {
		return err
	}

	if leaf {
		keys, err := n.keys()
		if err != nil {
			return err
		}
		rows, err := n.rows()
		if err != nil {
			return err
		}

		i := len(keys)
		keys = append(keys, nil)
		rows = append(rows, nil)
		for i > 0 {
			cmp, err := codec.Compare(key, keys[i-1], kt)
			if err != nil {
				return err
			}
			if cmp == codec.Equal {
				return duplicateKeyError()
			}
			if cmp != codec.Less {
				break
			}
			keys[i] = keys[i-1]
			rows[i] = rows[i-1]
			i--
		}
		keys[i] = cloneBytes(key)
		rows[i] = cloneBytes(row)
		return n.setKeysRows(keys, rows)
	}

	keys, err := n.keys()
	if err != nil {
		return err
	}
	i := len(keys)
	for i > 0 {
		cmp, err := codec.Compare(key, keys[i-1], kt)
		if err != nil {
			return err
		}
		if cmp == codec.Equal {
			return duplicateKeyError()
		}
		if cmp != codec.Less {
			break
		}
		i--
	}

	child, err := n.child(i)
	if err != nil {
		return err
	}
	childCount, err := (node{bt, child}).keysCount()
	if err != nil {
		return err
	}
	if childCount == 2*bt.t-1 {
		if err := bt.splitChild(pos, i); err != nil {
			return err
		}
		promoted, err := n.key(i)
		if err != nil {
			return err
		}
		cmp, err := codec.Compare(key, promoted, kt)
		if err != nil {
			return err
		}
		if cmp == codec.Greater {
			i++
		}
		child, err = n.child(i)
		if err != nil {
			return err
		}
	}
	return bt.insertNonFull(child, key, row, kt)
}

// splitChild splits the full child at index i of the node at parentPos:
// the child's rightmost t-1 keys/rows (and, if internal, its rightmost
// t children) move to a freshly allocated sibling, its middle key/row
// is promoted into the parent at index i, and the sibling is linked in
// at index i+1. Existing child ordering is preserved on both sides.
func (bt *BTree) splitChild(parentPos schema.Position, i int) error {
	parent := node{bt, parentPos}
	children, err := parent.allChildren()
	if err != nil {
		return err
	}
	y := node{bt, children[i]}

	yLeaf, err := y.isLeaf()
	if err != nil {
		return err
	}
	yKeys, err := y.keys()
	if err != nil {
		return err
	}
	yRows, err := y.rows()
	if err != nil {
		return err
	}

	t := bt.t
	if len(yKeys) != 2*t-1 {
		return status.New(status.InternalExceptionIntegrityCheckFailed, "splitChild called on a non-full node")
	}

	zKeys := append([][]byte{}, yKeys[t:]...)
	zRows := append([][]byte{}, yRows[t:]...)

	zPos, err := bt.pager.CreatePage(bt.tableName, zKeys, zRows, yLeaf)
	if err != nil {
		return err
	}
	z := node{bt, zPos}

	if !yLeaf {
		yChildren, err := y.allChildren()
		if err != nil {
			return err
		}
		if err := z.setChildren(append([]schema.Position{}, yChildren[t:]...)); err != nil {
			return err
		}
	}

	promotedKey, promotedRow := yKeys[t-1], yRows[t-1]
	if err := y.setKeysRows(yKeys[:t-1], yRows[:t-1]); err != nil {
		return err
	}

	pKeys, err := parent.keys()
	if err != nil {
		return err
	}
	pRows, err := parent.rows()
	if err != nil {
		return err
	}
	pKeys = insertBytesAt(pKeys, i, promotedKey)
	pRows = insertBytesAt(pRows, i, promotedRow)
	if err := parent.setKeysRows(pKeys, pRows); err != nil {
		return err
	}

	pChildren := insertPositionAt(children, i+1, zPos)
	return parent.setChildren(pChildren)
}

func duplicateKeyError() error {
	return status.New(status.InternalExceptionIntegrityCheckFailed, "duplicate key on insert")
}
