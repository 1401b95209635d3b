package btree

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// Delete physically removes key from the tree (classical CLRS delete
// with pre-emptive fill), returning InternalExceptionKeyNotFound if it
// isn't present. This is the rebalancing primitive the executor's
// logical DELETE drives through MarkTomb — see MarkTomb's doc for why
// the two are split.
func (bt *BTree) Delete(key []byte) error {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return err
	}
	if table.Root.IsNone() {
		return status.New(status.InternalExceptionKeyNotFound, "delete on empty tree")
	}
	kt, err := keyType(table)
	if err != nil {
		return err
	}

	found, err := bt.deleteFrom(table.Root, key, kt)
	if err != nil {
		return err
	}
	if !found {
		return status.New(status.InternalExceptionKeyNotFound, "key not found")
	}
	table.EntryCount--
	return nil
}

// MarkTomb sets the tomb bit on key without restructuring the tree,
// matching spec's deletion model: a query-level DELETE sets the
// tomb bit on each matched row during its scan, and only triggers
// physical Delete (rebalancing) when the containing node's live (non-
// tomb) key count would underflow below t-1 — tombing alone never
// changes a node's key count, so it can never by itself violate the
// structural invariant; underflow is a statement about how many of a
// node's keys are still meaningful, not how many physically remain.
func (bt *BTree) MarkTomb(key []byte) (underflowed bool, err error) {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return false, err
	}
	if table.Root.IsNone() {
		return false, status.New(status.InternalExceptionKeyNotFound, "delete on empty tree")
	}
	kt, err := keyType(table)
	if err != nil {
		return false, err
	}

	pos, idx, err := bt.locate(table.Root, key, kt)
	if err != nil {
		return false, err
	}
	if pos.IsNone() {
		return false, status.New(status.InternalExceptionKeyNotFound, "key not found")
	}

	n := node{bt, pos}
	if err := n.setTomb(idx, kt, true); err != nil {
		return false, err
	}
	table.EntryCount--

	keys, err := n.keys()
	if err != nil {
		return false, err
	}
	live := 0
	for _, k := range keys {
		if !codec.IsTomb(k, kt) {
			live++
		}
	}
	return live < bt.t-1, nil
}

// locate descends to the node and index holding key, ignoring tomb
// state. Returns the zero Position if key isn't present anywhere.
func (bt *BTree) locate(pos schema.Position, key []byte, kt codec.Type) (schema.Position, int, error) {
	n := node{bt, pos}
	keys, err := n.keys()
	if err != nil {
		return schema.Position{}, 0, err
	}
	i := 0
	for i < len(keys) {
		cmp, err := codec.Compare(key, keys[i], kt)
		if err != nil {
			return schema.Position{}, 0, err
		}
		if cmp == codec.Equal {
			return pos, i, nil
		}
		if cmp == codec.Less {
			break
		}
		i++
	}
	leaf, err := n.isLeaf()
	if err != nil {
		return schema.Position{}, 0, err
	}
	if leaf {
		return schema.Position{}, 0, nil
	}
	child, err := n.child(i)
	if err != nil {
		return schema.Position{}, 0, err
	}
	return bt.locate(child, key, kt)
}

func (bt *BTree) deleteFrom(pos schema.Position, key []byte, kt codec.Type) (bool, error) {
	n := node{bt, pos}
	keys, err := n.keys()
	if err != nil {
		return false, err
	}
	i := 0
	for i < len(keys) {
		cmp, err := codec.Compare(key, keys[i], kt)
		if err != nil {
			return false, err
		}
		if cmp != codec.Greater {
			break
		}
		i++
	}

	leaf, err := n.isLeaf()
	if err != nil {
		return false, err
	}

	if leaf {
		if i < len(keys) {
			cmp, err := codec.Compare(key, keys[i], kt)
			if err != nil {
				return false, err
			}
			if cmp == codec.Equal {
				rows, err := n.rows()
				if err != nil {
					return false, err
				}
				newKeys := append(append([][]byte{}, keys[:i]...), keys[i+1:]...)
				newRows := append(append([][]byte{}, rows[:i]...), rows[i+1:]...)
				if err := n.setKeysRows(newKeys, newRows); err != nil {
					return false, err
				}
				return true, nil
			}
		}
		return false, nil
	}

	if i < len(keys) {
		cmp, err := codec.Compare(key, keys[i], kt)
		if err != nil {
			return false, err
		}
		if cmp == codec.Equal {
			return true, bt.deleteInternalNode(pos, key, i, kt)
		}
	}

	child, err := n.child(i)
	if err != nil {
		return false, err
	}
	childCount, err := (node{bt, child}).keysCount()
	if err != nil {
		return false, err
	}
	if childCount < bt.t {
		newI, err := bt.fill(pos, i, kt)
		if err != nil {
			return false, err
		}
		i = newI
		child, err = n.child(i)
		if err != nil {
			return false, err
		}
	}
	return bt.deleteFrom(child, key, kt)
}

func (bt *BTree) deleteInternalNode(pos schema.Position, key []byte, i int, kt codec.Type) error {
	n := node{bt, pos}
	leftPos, err := n.child(i)
	if err != nil {
		return err
	}
	leftCount, err := (node{bt, leftPos}).keysCount()
	if err != nil {
		return err
	}
	if leftCount >= bt.t {
		predKey, predRow, err := bt.predecessor(leftPos)
		if err != nil {
			return err
		}
		if err := n.setKeyAt(i, predKey, predRow); err != nil {
			return err
		}
		_, err = bt.deleteFrom(leftPos, predKey, kt)
		return err
	}

	rightPos, err := n.child(i + 1)
	if err != nil {
		return err
	}
	rightCount, err := (node{bt, rightPos}).keysCount()
	if err != nil {
		return err
	}
	if rightCount >= bt.t {
		succKey, succRow, err := bt.successor(rightPos)
		if err != nil {
			return err
		}
		if err := n.setKeyAt(i, succKey, succRow); err != nil {
			return err
		}
		_, err = bt.deleteFrom(rightPos, succKey, kt)
		return err
	}

	if err := bt.merge(pos, i, kt); err != nil {
		return err
	}
	mergedPos, err := n.child(i)
	if err != nil {
		return err
	}
	_, err = bt.deleteFrom(mergedPos, key, kt)
	return err
}

func (bt *BTree) predecessor(pos schema.Position) ([]byte, []byte, error) {
	cur := node{bt, pos}
	for {
		leaf, err := cur.isLeaf()
		if err != nil {
			return nil, nil, err
		}
		if leaf {
			break
		}
		cnt, err := cur.keysCount()
		if err != nil {
			return nil, nil, err
		}
		child, err := cur.child(cnt)
		if err != nil {
			return nil, nil, err
		}
		cur = node{bt, child}
	}
	cnt, err := cur.keysCount()
	if err != nil {
		return nil, nil, err
	}
	k, err := cur.key(cnt - 1)
	if err != nil {
		return nil, nil, err
	}
	r, err := cur.row(cnt - 1)
	if err != nil {
		return nil, nil, err
	}
	return k, r, nil
}

func (bt *BTree) successor(pos schema.Position) ([]byte, []byte, error) {
	cur := node{bt, pos}
	for {
		leaf, err := cur.isLeaf()
		if err != nil {
			return nil, nil, err
		}
		if leaf {
			break
		}
		child, err := cur.child(0)
		if err != nil {
			return nil, nil, err
		}
		cur = node{bt, child}
	}
	k, err := cur.key(0)
	if err != nil {
		return nil, nil, err
	}
	r, err := cur.row(0)
	if err != nil {
		return nil, nil, err
	}
	return k, r, nil
}

// merge folds child i, the parent's key/row at i, and child i+1 into a
// single node stored at child i's position; child i+1's page is left
// orphaned (pages are never freed, per the no-compaction policy).
func (bt *BTree) merge(pos schema.Position, i int, kt codec.Type) error {
	n := node{bt, pos}
	parentKeys, err := n.keys()
	if err != nil {
		return err
	}
	parentRows, err := n.rows()
	if err != nil {
		return err
	}
	parentChildren, err := n.allChildren()
	if err != nil {
		return err
	}

	left := node{bt, parentChildren[i]}
	right := node{bt, parentChildren[i+1]}

	leftKeys, err := left.keys()
	if err != nil {
		return err
	}
	leftRows, err := left.rows()
	if err != nil {
		return err
	}
	leftLeaf, err := left.isLeaf()
	if err != nil {
		return err
	}

	rightKeys, err := right.keys()
	if err != nil {
		return err
	}
	rightRows, err := right.rows()
	if err != nil {
		return err
	}

	var leftChildren, rightChildren []schema.Position
	if !leftLeaf {
		leftChildren, err = left.allChildren()
		if err != nil {
			return err
		}
		rightChildren, err = right.allChildren()
		if err != nil {
			return err
		}
	}

	mergedKeys := append(append(append([][]byte{}, leftKeys...), parentKeys[i]), rightKeys...)
	mergedRows := append(append(append([][]byte{}, leftRows...), parentRows[i]), rightRows...)
	if err := left.setKeysRows(mergedKeys, mergedRows); err != nil {
		return err
	}
	if !leftLeaf {
		mergedChildren := append(append([]schema.Position{}, leftChildren...), rightChildren...)
		if err := left.setChildren(mergedChildren); err != nil {
			return err
		}
	}

	newParentKeys := append(append([][]byte{}, parentKeys[:i]...), parentKeys[i+1:]...)
	newParentRows := append(append([][]byte{}, parentRows[:i]...), parentRows[i+1:]...)
	if err := n.setKeysRows(newParentKeys, newParentRows); err != nil {
		return err
	}
	newParentChildren := append(append([]schema.Position{}, parentChildren[:i+1]...), parentChildren[i+2:]...)
	return n.setChildren(newParentChildren)
}

// fill ensures the child at index i has at least t keys before the
// caller descends into it: borrows from a sibling with keys to spare,
// or merges with one otherwise. Merging right-with-left-as-last shifts
// the index to recurse into, since the child originally at i no longer
// exists afterward — the returned index is what the caller must use.
func (bt *BTree) fill(pos schema.Position, i int, kt codec.Type) (int, error) {
	n := node{bt, pos}
	childrenCount, err := n.childrenCount()
	if err != nil {
		return i, err
	}

	if i != 0 {
		children, err := n.allChildren()
		if err != nil {
			return i, err
		}
		leftCount, err := (node{bt, children[i-1]}).keysCount()
		if err != nil {
			return i, err
		}
		if leftCount >= bt.t {
			return i, bt.borrowFromPrev(pos, i)
		}
	}
	if i != childrenCount-1 {
		children, err := n.allChildren()
		if err != nil {
			return i, err
		}
		rightCount, err := (node{bt, children[i+1]}).keysCount()
		if err != nil {
			return i, err
		}
		if rightCount >= bt.t {
			return i, bt.borrowFromNext(pos, i)
		}
	}
	if i != childrenCount-1 {
		return i, bt.merge(pos, i, kt)
	}
	return i - 1, bt.merge(pos, i-1, kt)
}

func (bt *BTree) borrowFromPrev(pos schema.Position, i int) error {
	n := node{bt, pos}
	children, err := n.allChildren()
	if err != nil {
		return err
	}
	child := node{bt, children[i]}
	sibling := node{bt, children[i-1]}

	parentKeys, err := n.keys()
	if err != nil {
		return err
	}
	parentRows, err := n.rows()
	if err != nil {
		return err
	}

	siblingKeys, err := sibling.keys()
	if err != nil {
		return err
	}
	siblingRows, err := sibling.rows()
	if err != nil {
		return err
	}

	childKeys, err := child.keys()
	if err != nil {
		return err
	}
	childRows, err := child.rows()
	if err != nil {
		return err
	}
	childLeaf, err := child.isLeaf()
	if err != nil {
		return err
	}

	lastSibKey := siblingKeys[len(siblingKeys)-1]
	lastSibRow := siblingRows[len(siblingRows)-1]

	var childChildren, siblingChildren []schema.Position
	if !childLeaf {
		childChildren, err = child.allChildren()
		if err != nil {
			return err
		}
		siblingChildren, err = sibling.allChildren()
		if err != nil {
			return err
		}
	}

	newChildKeys := append([][]byte{cloneBytes(parentKeys[i-1])}, childKeys...)
	newChildRows := append([][]byte{cloneBytes(parentRows[i-1])}, childRows...)
	if err := child.setKeysRows(newChildKeys, newChildRows); err != nil {
		return err
	}
	if !childLeaf {
		newChildChildren := append([]schema.Position{siblingChildren[len(siblingChildren)-1]}, childChildren...)
		if err := child.setChildren(newChildChildren); err != nil {
			return err
		}
	}

	if err := sibling.setKeysRows(siblingKeys[:len(siblingKeys)-1], siblingRows[:len(siblingRows)-1]); err != nil {
		return err
	}

	return n.setKeyAt(i-1, lastSibKey, lastSibRow)
}

func (bt *BTree) borrowFromNext(pos schema.Position, i int) error {
	n := node{bt, pos}
	children, err := n.allChildren()
	if err != nil {
		return err
	}
	child := node{bt, children[i]}
	sibling := node{bt, children[i+1]}

	parentKeys, err := n.keys()
	if err != nil {
		return err
	}
	parentRows, err := n.rows()
	if err != nil {
		return err
	}

	childKeys, err := child.keys()
	if err != nil {
		return err
	}
	childRows, err := child.rows()
	if err != nil {
		return err
	}
	childLeaf, err := child.isLeaf()
	if err != nil {
		return err
	}

	siblingKeys, err := sibling.keys()
	if err != nil {
		return err
	}
	siblingRows, err := sibling.rows()
	if err != nil {
		return err
	}

	firstSibKey := siblingKeys[0]
	firstSibRow := siblingRows[0]

	var siblingChildren []schema.Position
	if !childLeaf {
		siblingChildren, err = sibling.allChildren()
		if err != nil {
			return err
		}
	}

	newChildKeys := append(append([][]byte{}, childKeys...), cloneBytes(parentKeys[i]))
	newChildRows := append(append([][]byte{}, childRows...), cloneBytes(parentRows[i]))
	if err := child.setKeysRows(newChildKeys, newChildRows); err != nil {
		return err
	}
	if !childLeaf {
		newCount, err := child.keysCount()
		if err != nil {
			return err
		}
		if err := child.setChild(newCount, siblingChildren[0]); err != nil {
			return err
		}
	}

	newSiblingKeys := siblingKeys[1:]
	newSiblingRows := siblingRows[1:]
	if err := sibling.setKeysRows(newSiblingKeys, newSiblingRows); err != nil {
		return err
	}
	if !childLeaf {
		if err := sibling.setChildren(siblingChildren[1:]); err != nil {
			return err
		}
	}

	return n.setKeyAt(i, firstSibKey, firstSibRow)
}
