package pagelayout

import "github.com/dstrohschein/miniql/src/schema"

func keysStart() int { return NodeMetadataSize }

func childrenStart(n, keyLength int) int {
	return keysStart() + n*keyLength
}

func dataStart(n, keyLength int) int {
	return childrenStart(n, keyLength) + (n+1)*schema.PositionSize
}

// ReadKey returns the i-th key.
func ReadKey(page []byte, i, keyLength int) ([]byte, error) {
	n := NKeys(page)
	if i < 0 || i >= n {
		return nil, ErrOutOfRange
	}
	start := keysStart() + i*keyLength
	return page[start : start+keyLength], nil
}

// WriteKey overwrites the i-th key in place.
func WriteKey(page []byte, i int, key []byte, keyLength int) error {
	n := NKeys(page)
	if i < 0 || i >= n {
		return ErrOutOfRange
	}
	start := keysStart() + i*keyLength
	copy(page[start:start+keyLength], key)
	return nil
}

// ReadChild returns the i-th child Position (0..n inclusive).
func ReadChild(page []byte, i, keyLength int) (schema.Position, error) {
	n := NKeys(page)
	if i < 0 || i > n {
		return schema.Position{}, ErrOutOfRange
	}
	start := childrenStart(n, keyLength) + i*schema.PositionSize
	return schema.DecodePosition(page[start : start+schema.PositionSize])
}

// WriteChild overwrites the i-th child Position in place. Writing the
// empty sentinel forces is_leaf true for this node, per spec.md's stated
// invariant (the original source's write_child appears to invert this
// condition; this implementation follows the explicit invariant text
// rather than that apparent bug).
func WriteChild(page []byte, i int, child schema.Position, keyLength int) error {
	n := NKeys(page)
	if i < 0 || i > n {
		return ErrOutOfRange
	}
	start := childrenStart(n, keyLength) + i*schema.PositionSize
	copy(page[start:start+schema.PositionSize], child.Encode())
	if child.IsNone() {
		SetIsLeaf(page, true)
	}
	return nil
}

// ReadData returns the i-th row.
func ReadData(page []byte, i, keyLength, rowLength int) ([]byte, error) {
	n := NKeys(page)
	if i < 0 || i >= n {
		return nil, ErrOutOfRange
	}
	start := dataStart(n, keyLength) + i*rowLength
	return page[start : start+rowLength], nil
}

// WriteData overwrites the i-th row in place.
func WriteData(page []byte, i int, row []byte, keyLength, rowLength int) error {
	n := NKeys(page)
	if i < 0 || i >= n {
		return ErrOutOfRange
	}
	start := dataStart(n, keyLength) + i*rowLength
	copy(page[start:start+rowLength], row)
	return nil
}

// ReadKeysAsVec returns every key in the node.
func ReadKeysAsVec(page []byte, keyLength int) [][]byte {
	n := NKeys(page)
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i], _ = ReadKey(page, i, keyLength)
	}
	return out
}

// ReadChildrenAsVec returns the node's children, stopping at the first
// empty-position sentinel (btree structure guarantees an internal node's
// real children are never followed by a real one after an empty slot).
func ReadChildrenAsVec(page []byte, keyLength int) []schema.Position {
	n := NKeys(page)
	out := make([]schema.Position, 0, n+1)
	for i := 0; i <= n; i++ {
		c, err := ReadChild(page, i, keyLength)
		if err != nil || c.IsNone() {
			break
		}
		out = append(out, c)
	}
	return out
}

// ReadAllChildrenAsVec returns exactly n+1 children regardless of
// emptiness. Resize uses it to preserve existing slots; the btree
// package uses it wherever it needs the literal child vector of an
// internal node (split/merge), since ReadChildrenAsVec's early stop at
// an empty sentinel would truncate a node whose fill-in is in progress.
func ReadAllChildrenAsVec(page []byte, keyLength int) []schema.Position {
	n := NKeys(page)
	out := make([]schema.Position, n+1)
	for i := 0; i <= n; i++ {
		out[i], _ = ReadChild(page, i, keyLength)
	}
	return out
}

// ReadDataAsVec returns every row in the node.
func ReadDataAsVec(page []byte, keyLength, rowLength int) [][]byte {
	n := NKeys(page)
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i], _ = ReadData(page, i, keyLength, rowLength)
	}
	return out
}

// WriteKeysVecResizeWithRows replaces the node's keys and rows wholesale,
// resizing all three regions (keys, children, rows) atomically: children
// grow padded with the empty sentinel and shrink by dropping the tail,
// preserving the existing children for surviving indices. Returns the
// rebuilt page bytes; the caller installs this as the page's new
// content.
func WriteKeysVecResizeWithRows(page []byte, keys, rows [][]byte, keyLength, rowLength int) ([]byte, error) {
	if len(keys) != len(rows) {
		return nil, ErrOutOfRange
	}
	oldChildren := ReadAllChildrenAsVec(page, keyLength)
	newN := len(keys)
	newChildren := make([]schema.Position, newN+1)
	copy(newChildren, oldChildren)

	leaf := IsLeaf(page)
	deleted := IsDeleted(page)
	out := make([]byte, 0, NodeSpan(newN, keyLength, rowLength))
	out = append(out, byte(newN), 0)
	SetIsLeaf(out, leaf)
	SetDeleted(out, deleted)
	for _, k := range keys {
		out = append(out, k...)
	}
	for _, c := range newChildren {
		out = append(out, c.Encode()...)
	}
	for _, r := range rows {
		out = append(out, r...)
	}
	return out, nil
}

// CopyNode returns a fresh copy of src's node bytes.
func CopyNode(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// SwitchNodes swaps two nodes' bytes and rewrites any child reference
// within either node that pointed at the other node's own Position, so
// that self-references stay consistent after the swap (used to relocate
// a root node's storage while keeping the child link on whichever node
// took its place).
func SwitchNodes(pageA, pageB []byte, posA, posB schema.Position, keyLength int) ([]byte, []byte) {
	newA := CopyNode(pageB)
	newB := CopyNode(pageA)

	rewriteSelfReferences(newA, posA, posB, keyLength)
	rewriteSelfReferences(newB, posB, posA, keyLength)
	return newA, newB
}

func rewriteSelfReferences(page []byte, from, to schema.Position, keyLength int) {
	n := NKeys(page)
	for i := 0; i <= n; i++ {
		c, err := ReadChild(page, i, keyLength)
		if err != nil {
			continue
		}
		if c == from {
			_ = WriteChild(page, i, to, keyLength)
		}
	}
}

// ShiftPageBlock moves the byte range [from, from+length) to start at
// to, overwriting whatever was there. It's the primitive the resize
// routines above are built from conceptually; kept as a standalone
// utility for any future layout change that needs a raw block move
// instead of a wholesale rebuild.
func ShiftPageBlock(page []byte, from, to, length int) {
	if from == to || length <= 0 {
		return
	}
	copy(page[to:to+length], page[from:from+length])
}
