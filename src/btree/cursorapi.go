package btree

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
)

// The methods in this file are the narrow surface the cursor package
// drives a traversal through: root lookup plus the handful of per-node
// reads a stack-based walk needs. Everything else about node layout
// stays private to this package.

// Root returns the tree's current root Position, or the zero Position
// if the tree is empty.
func (bt *BTree) Root() (schema.Position, error) {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return schema.Position{}, err
	}
	return table.Root, nil
}

// NodeIsLeaf reports whether the node at pos is a leaf.
func (bt *BTree) NodeIsLeaf(pos schema.Position) (bool, error) {
	return (node{bt, pos}).isLeaf()
}

// NodeKeysCount returns the node's key count.
func (bt *BTree) NodeKeysCount(pos schema.Position) (int, error) {
	return (node{bt, pos}).keysCount()
}

// NodeKeyRow returns the key/row pair at index i of the node at pos.
func (bt *BTree) NodeKeyRow(pos schema.Position, i int) (key, row []byte, err error) {
	n := node{bt, pos}
	key, err = n.key(i)
	if err != nil {
		return nil, nil, err
	}
	row, err = n.row(i)
	if err != nil {
		return nil, nil, err
	}
	return key, row, nil
}

// NodeSetKeyRow overwrites the key/row pair at index i in place, for
// the cursor's in-place update action.
func (bt *BTree) NodeSetKeyRow(pos schema.Position, i int, key, row []byte) error {
	return (node{bt, pos}).setKeyAt(i, key, row)
}

// NodeChild returns the child Position at index i of the node at pos.
func (bt *BTree) NodeChild(pos schema.Position, i int) (schema.Position, error) {
	return (node{bt, pos}).child(i)
}

// KeyType returns the table's key type, for callers (cursor, executor)
// that need to compare against keys read through this API.
func (bt *BTree) KeyType() (codec.Type, error) {
	table, err := bt.pager.Table(bt.tableName)
	if err != nil {
		return 0, err
	}
	return keyType(table)
}
