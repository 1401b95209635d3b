package btree

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
)

// Entry is a single key/row pair returned by a scan.
type Entry struct {
	Key []byte
	Row []byte
}

// Find returns the row stored under key, and whether it was present.
// A tombed key is still "found": Find does not filter tombed entries
// out and does not report whether the key is tombed, since that
// filtering is a scan-level (FindRange) concern, not a lookup one.
func (bt *BTree) Find(key []byte) (row []byte, found bool, err error) {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return nil, false, err
	}
	if table.Root.IsNone() {
		return nil, false, nil
	}
	kt, err := keyType(table)
	if err != nil {
		return nil, false, err
	}
	return bt.find(table.Root, key, kt)
}

func (bt *BTree) find(pos schema.Position, key []byte, kt codec.Type) ([]byte, bool, error) {
	n := node{bt, pos}
	keys, err := n.keys()
	if err != nil {
		return nil, false, err
	}

	i := 0
	for i < len(keys) {
		cmp, err := codec.Compare(key, keys[i], kt)
		if err != nil {
			return nil, false, err
		}
		if cmp == codec.Equal {
			row, err := n.row(i)
			return row, true, err
		}
		if cmp == codec.Less {
			break
		}
		i++
	}

	leaf, err := n.isLeaf()
	if err != nil {
		return nil, false, err
	}
	if leaf {
		return nil, false, nil
	}
	child, err := n.child(i)
	if err != nil {
		return nil, false, err
	}
	return bt.find(child, key, kt)
}

// FindRange performs a bounded in-order walk of the tree, visiting every
// live (non-tomb) entry with key >= low (or from the very first entry
// when low is nil) and key <= high (or through the very last entry when
// high is nil), calling visit for each in ascending key order. Walking
// stops early, without error, the first time visit returns false.
//
// This is a self-contained recursive walk rather than a delegation to
// the cursor package: cursor is the general bidirectional traversal API
// the executor/planner drive directly, and having it depend on btree
// (for node access) while btree depended back on it for this range scan
// would be a cycle, so the bounded walk a range scan needs is
// implemented here instead, independently of cursor.
func (bt *BTree) FindRange(low, high []byte, visit func(Entry) (bool, error)) error {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return err
	}
	if table.Root.IsNone() {
		return nil
	}
	kt, err := keyType(table)
	if err != nil {
		return err
	}
	_, err = bt.rangeWalk(table.Root, low, high, kt, visit)
	return err
}

// rangeWalk returns false once visit has asked to stop, so every
// caller up the recursion can unwind without visiting further siblings.
func (bt *BTree) rangeWalk(pos schema.Position, low, high []byte, kt codec.Type, visit func(Entry) (bool, error)) (bool, error) {
	n := node{bt, pos}
	leaf, err := n.isLeaf()
	if err != nil {
		return false, err
	}
	keys, err := n.keys()
	if err != nil {
		return false, err
	}
	rows, err := n.rows()
	if err != nil {
		return false, err
	}

	for i := 0; i <= len(keys); i++ {
		if !leaf {
			// Child i holds keys strictly between keys[i-1] and keys[i]
			// (open at whichever end has no neighbor), so it can only be
			// pruned when that whole interval falls outside [low, high].
			descend := true
			if high != nil && i > 0 {
				cmp, err := codec.Compare(keys[i-1], high, kt)
				if err != nil {
					return false, err
				}
				if cmp == codec.Greater {
					descend = false
				}
			}
			if low != nil && i < len(keys) {
				cmp, err := codec.Compare(keys[i], low, kt)
				if err != nil {
					return false, err
				}
				if cmp == codec.Less {
					descend = false
				}
			}
			if descend {
				child, err := n.child(i)
				if err != nil {
					return false, err
				}
				cont, err := bt.rangeWalk(child, low, high, kt, visit)
				if err != nil || !cont {
					return cont, err
				}
			}
		}

		if i == len(keys) {
			break
		}

		if low != nil {
			cmp, err := codec.Compare(keys[i], low, kt)
			if err != nil {
				return false, err
			}
			if cmp == codec.Less {
				continue
			}
		}
		if high != nil {
			cmp, err := codec.Compare(keys[i], high, kt)
			if err != nil {
				return false, err
			}
			if cmp == codec.Greater {
				return false, nil
			}
		}
		if codec.IsTomb(keys[i], kt) {
			continue
		}

		cont, err := visit(Entry{Key: cloneBytes(keys[i]), Row: cloneBytes(rows[i])})
		if err != nil || !cont {
			return cont, err
		}
	}

	return true, nil
}
