// Package pagelayout reads and writes B-tree nodes packed into a page's
// raw bytes: the key count, the per-node flag byte, keys, child
// Positions, and row data. It never touches a file or a cache — it only
// knows how to interpret and mutate a []byte.
//
// This implementation packs exactly one node per page (the allocation
// policy spec.md leaves as a tunable), so a node always starts at byte 0
// of its page and the page buffer's length is the node's current total
// span, capped at PageSize.
package pagelayout

import (
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// Flag-byte bit positions (byte index 1 of a node).
const (
	bitDirty = iota
	bitLeaf
	bitDeleted
	bitLock
)

// NKeys returns a node's key count, n.
func NKeys(page []byte) int {
	return int(page[0])
}

func setNKeys(page []byte, n int) {
	page[0] = byte(n)
}

func flagByte(page []byte) byte { return page[1] }

func setFlagBit(page []byte, pos uint, value bool) {
	if value {
		page[1] |= 1 << pos
	} else {
		page[1] &^= 1 << pos
	}
}

func IsDirty(page []byte) bool    { return page[1]&(1<<bitDirty) != 0 }
func IsLeaf(page []byte) bool     { return page[1]&(1<<bitLeaf) != 0 }
func IsDeleted(page []byte) bool  { return page[1]&(1<<bitDeleted) != 0 }
func IsLocked(page []byte) bool   { return page[1]&(1<<bitLock) != 0 }

func SetDirty(page []byte, v bool)   { setFlagBit(page, bitDirty, v) }
func SetIsLeaf(page []byte, v bool)  { setFlagBit(page, bitLeaf, v) }
func SetDeleted(page []byte, v bool) { setFlagBit(page, bitDeleted, v) }
func SetLocked(page []byte, v bool)  { setFlagBit(page, bitLock, v) }

// IsTomb reports whether a key's tomb bit is set. Delegates to codec,
// kept here too since spec.md lists it as a page-layout/node operation.
func IsTomb(key []byte, t codec.Type) bool { return codec.IsTomb(key, t) }

// NewNodeBytes builds a freshly initialized node: n keys, is_leaf=leaf,
// n+1 empty children, n zeroed rows.
func NewNodeBytes(keys [][]byte, rows [][]byte, keyLength, rowLength int, leaf bool) []byte {
	n := len(keys)
	out := make([]byte, 0, NodeMetadataSize+n*keyLength+(n+1)*schema.PositionSize+n*rowLength)
	out = append(out, byte(n), 0)
	SetIsLeaf(out, leaf)
	for _, k := range keys {
		out = append(out, k...)
	}
	for i := 0; i < n+1; i++ {
		out = append(out, schema.NoPosition.Encode()...)
	}
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// NodeMetadataSize is the fixed (n, flag) header every node starts with.
const NodeMetadataSize = 2

// NodeSpan returns the total byte length a node with n keys occupies.
func NodeSpan(n, keyLength, rowLength int) int {
	return NodeMetadataSize + n*keyLength + (n+1)*schema.PositionSize + n*rowLength
}

// ErrOutOfRange is returned by accessors given an out-of-bounds index.
var ErrOutOfRange = status.New(status.InternalExceptionIndexOutOfRange, "pagelayout: index out of range")
