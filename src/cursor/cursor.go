// Package cursor implements a stack-based, bidirectional B-tree
// traversal: a general-purpose iterator the executor and planner drive
// directly, distinct from btree's own bounded FindRange walk (kept
// separate there to avoid an import cycle between the two packages).
package cursor

import (
	"github.com/dstrohschein/miniql/src/btree"
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
)

// noIndex is the sentinel a leaf frame's index takes on once decrease
// walks past its first key — mirroring the original's usize::MAX,
// which also means "exhausted on this side" rather than a real index.
const noIndex = -1

type frame struct {
	pos schema.Position
	idx int
}

// Cursor walks one table's tree via an explicit position stack, so
// Advance/Decrease can step to the adjacent key without re-descending
// from the root.
type Cursor struct {
	bt    *btree.BTree
	stack []frame
}

// New returns a cursor over bt, positioned before the first entry
// (IsValid is false) until one of the Move/GoTo methods is called.
func New(bt *btree.BTree) *Cursor {
	return &Cursor{bt: bt}
}

// IsValid reports whether the cursor currently sits on an entry.
func (c *Cursor) IsValid() bool {
	return len(c.stack) > 0
}

func (c *Cursor) top() *frame {
	return &c.stack[len(c.stack)-1]
}

func (c *Cursor) pushLeftmost(pos schema.Position) error {
	for {
		c.stack = append(c.stack, frame{pos: pos, idx: 0})
		leaf, err := c.bt.NodeIsLeaf(pos)
		if err != nil {
			return err
		}
		if leaf {
			return nil
		}
		pos, err = c.bt.NodeChild(pos, 0)
		if err != nil {
			return err
		}
	}
}

func (c *Cursor) pushRightmost(pos schema.Position) error {
	for {
		count, err := c.bt.NodeKeysCount(pos)
		if err != nil {
			return err
		}
		leaf, err := c.bt.NodeIsLeaf(pos)
		if err != nil {
			return err
		}
		if leaf {
			c.stack = append(c.stack, frame{pos: pos, idx: count - 1})
			return nil
		}
		c.stack = append(c.stack, frame{pos: pos, idx: count})
		pos, err = c.bt.NodeChild(pos, count)
		if err != nil {
			return err
		}
	}
}

// MoveToStart repositions the cursor on the tree's first (smallest) key.
func (c *Cursor) MoveToStart() error {
	c.stack = nil
	root, err := c.bt.Root()
	if err != nil {
		return err
	}
	if root.IsNone() {
		return nil
	}
	count, err := c.bt.NodeKeysCount(root)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return c.pushLeftmost(root)
}

// MoveToEnd repositions the cursor on the tree's last (largest) key.
func (c *Cursor) MoveToEnd() error {
	c.stack = nil
	root, err := c.bt.Root()
	if err != nil {
		return err
	}
	if root.IsNone() {
		return nil
	}
	count, err := c.bt.NodeKeysCount(root)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return c.pushRightmost(root)
}

// Current returns the key/row at the cursor's position, or ok=false if
// the cursor isn't valid.
func (c *Cursor) Current() (key, row []byte, ok bool, err error) {
	if !c.IsValid() {
		return nil, nil, false, nil
	}
	f := c.top()
	count, err := c.bt.NodeKeysCount(f.pos)
	if err != nil {
		return nil, nil, false, err
	}
	if f.idx < 0 || f.idx >= count {
		return nil, nil, false, nil
	}
	key, row, err = c.bt.NodeKeyRow(f.pos, f.idx)
	if err != nil {
		return nil, nil, false, err
	}
	return key, row, true, nil
}

// SetCurrent overwrites the key/row at the cursor's current position in
// place. Per the caveat carried from the original: this must never
// change the key's sort order, since the tree isn't restructured around
// it — callers that need to change a key's value use delete+insert.
func (c *Cursor) SetCurrent(key, row []byte) error {
	if !c.IsValid() {
		return nil
	}
	f := c.top()
	return c.bt.NodeSetKeyRow(f.pos, f.idx, key, row)
}

// Advance steps the cursor to the next key in ascending order. Once the
// last key is passed, the cursor becomes invalid.
func (c *Cursor) Advance() error {
	if len(c.stack) == 0 {
		return nil
	}

	f := c.top()
	leaf, err := c.bt.NodeIsLeaf(f.pos)
	if err != nil {
		return err
	}
	if leaf {
		f.idx++
	} else {
		f.idx++
		child, err := c.bt.NodeChild(f.pos, f.idx)
		if err != nil {
			return err
		}
		return c.pushLeftmost(child)
	}

	for len(c.stack) > 0 {
		f := c.top()
		count, err := c.bt.NodeKeysCount(f.pos)
		if err != nil {
			return err
		}
		if f.idx < count {
			return nil
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	return nil
}

// Decrease steps the cursor to the previous key in ascending order.
// Once the first key is passed, the cursor becomes invalid.
func (c *Cursor) Decrease() error {
	if len(c.stack) == 0 {
		return nil
	}

	f := c.top()
	leaf, err := c.bt.NodeIsLeaf(f.pos)
	if err != nil {
		return err
	}
	if leaf {
		if f.idx == 0 {
			f.idx = noIndex
		} else {
			f.idx--
		}
	} else {
		child, err := c.bt.NodeChild(f.pos, f.idx)
		if err != nil {
			return err
		}
		return c.pushRightmost(child)
	}

	for {
		if len(c.stack) == 0 {
			return nil
		}
		top := c.top()
		if top.idx != noIndex {
			return nil
		}
		c.stack = c.stack[:len(c.stack)-1]
		if len(c.stack) == 0 {
			return nil
		}
		parent := c.top()
		if parent.idx == 0 {
			parent.idx = noIndex
		} else {
			parent.idx--
		}
	}
}

// GoTo positions the cursor exactly on key, or invalidates it if key
// isn't present — it does not fall back to a neighboring key.
func (c *Cursor) GoTo(key []byte) error {
	c.stack = nil
	root, err := c.bt.Root()
	if err != nil {
		return err
	}
	if root.IsNone() {
		return nil
	}
	count, err := c.bt.NodeKeysCount(root)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	kt, err := c.bt.KeyType()
	if err != nil {
		return err
	}

	pos := root
	for {
		n, err := c.bt.NodeKeysCount(pos)
		if err != nil {
			return err
		}
		i := 0
		for i < n {
			k, _, err := c.bt.NodeKeyRow(pos, i)
			if err != nil {
				return err
			}
			cmp, err := codec.Compare(k, key, kt)
			if err != nil {
				return err
			}
			if cmp != codec.Less {
				break
			}
			i++
		}

		if i < n {
			k, _, err := c.bt.NodeKeyRow(pos, i)
			if err != nil {
				return err
			}
			cmp, err := codec.Compare(k, key, kt)
			if err != nil {
				return err
			}
			if cmp == codec.Equal {
				c.stack = append(c.stack, frame{pos: pos, idx: i})
				return nil
			}
		}

		leaf, err := c.bt.NodeIsLeaf(pos)
		if err != nil {
			return err
		}
		if leaf {
			c.stack = nil
			return nil
		}

		c.stack = append(c.stack, frame{pos: pos, idx: i})
		pos, err = c.bt.NodeChild(pos, i)
		if err != nil {
			return err
		}
	}
}

// GoToLessThanEqual positions the cursor on key if present. Otherwise
// it steps the deepest frame of the descent path back by one index,
// which lands on the largest smaller key held in that leaf; if the
// leaf has no smaller key the cursor is invalidated, even when an
// ancestor holds a smaller key (ancestors are not searched).
func (c *Cursor) GoToLessThanEqual(key []byte) error {
	c.stack = nil
	root, err := c.bt.Root()
	if err != nil {
		return err
	}
	if root.IsNone() {
		return nil
	}
	count, err := c.bt.NodeKeysCount(root)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	kt, err := c.bt.KeyType()
	if err != nil {
		return err
	}

	pos := root
	found := false
	for {
		n, err := c.bt.NodeKeysCount(pos)
		if err != nil {
			return err
		}
		i := 0
		for i < n {
			k, _, err := c.bt.NodeKeyRow(pos, i)
			if err != nil {
				return err
			}
			cmp, err := codec.Compare(k, key, kt)
			if err != nil {
				return err
			}
			if cmp != codec.Less {
				break
			}
			i++
		}

		c.stack = append(c.stack, frame{pos: pos, idx: i})

		if i < n {
			k, _, err := c.bt.NodeKeyRow(pos, i)
			if err != nil {
				return err
			}
			cmp, err := codec.Compare(k, key, kt)
			if err != nil {
				return err
			}
			if cmp == codec.Equal {
				found = true
				break
			}
		}

		leaf, err := c.bt.NodeIsLeaf(pos)
		if err != nil {
			return err
		}
		if leaf {
			break
		}
		pos, err = c.bt.NodeChild(pos, i)
		if err != nil {
			return err
		}
	}

	if !found {
		f := c.top()
		if f.idx > 0 {
			f.idx--
		} else {
			c.stack = nil
		}
	}
	return nil
}
