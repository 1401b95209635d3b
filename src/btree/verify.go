package btree

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
)

// VerifyInvariants walks the whole tree and reports every structural
// violation it finds (rather than stopping at the first), aggregated
// via multierr so a caller gets the complete picture in one error.
// Intended for tests and ad-hoc diagnostics, not the hot insert/delete
// path.
func (bt *BTree) VerifyInvariants() error {
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

	var errs error
	_, _, _, verr := bt.verifyNode(table.Root, kt, true, nil, nil)
	errs = multierr.Append(errs, verr)
	return errs
}

// verifyNode returns the node's key count, height, whether it is a
// leaf, and any accumulated violation found in its subtree. low/high
// bound the keys this subtree is allowed to hold, per its position in
// the parent (nil means unbounded on that side).
func (bt *BTree) verifyNode(pos schema.Position, kt codec.Type, isRoot bool, low, high []byte) (count, height int, leaf bool, err error) {
	n := node{bt, pos}
	leaf, lerr := n.isLeaf()
	if lerr != nil {
		return 0, 0, false, lerr
	}
	keys, kerr := n.keys()
	if kerr != nil {
		return 0, 0, false, kerr
	}

	var errs error

	if !isRoot {
		if len(keys) < bt.t-1 {
			errs = multierr.Append(errs, fmt.Errorf("node at %+v has %d keys, fewer than the minimum %d", pos, len(keys), bt.t-1))
		}
	}
	if len(keys) > 2*bt.t-1 {
		errs = multierr.Append(errs, fmt.Errorf("node at %+v has %d keys, more than the maximum %d", pos, len(keys), 2*bt.t-1))
	}

	for i := 1; i < len(keys); i++ {
		cmp, cerr := codec.Compare(keys[i-1], keys[i], kt)
		if cerr != nil {
			errs = multierr.Append(errs, cerr)
			continue
		}
		if cmp != codec.Less {
			errs = multierr.Append(errs, fmt.Errorf("node at %+v keys out of order at index %d", pos, i))
		}
	}
	if low != nil && len(keys) > 0 {
		cmp, cerr := codec.Compare(keys[0], low, kt)
		if cerr == nil && cmp == codec.Less {
			errs = multierr.Append(errs, fmt.Errorf("node at %+v holds a key below its allowed lower bound", pos))
		}
	}
	if high != nil && len(keys) > 0 {
		cmp, cerr := codec.Compare(keys[len(keys)-1], high, kt)
		if cerr == nil && cmp == codec.Greater {
			errs = multierr.Append(errs, fmt.Errorf("node at %+v holds a key above its allowed upper bound", pos))
		}
	}

	if leaf {
		return len(keys), 1, true, errs
	}

	children, cerr := n.allChildren()
	if cerr != nil {
		errs = multierr.Append(errs, cerr)
		return len(keys), 1, false, errs
	}
	if len(children) != len(keys)+1 {
		errs = multierr.Append(errs, fmt.Errorf("node at %+v has %d children, expected %d", pos, len(children), len(keys)+1))
	}

	var childHeight int
	heights := map[int]bool{}
	for i, c := range children {
		if c.IsNone() {
			errs = multierr.Append(errs, fmt.Errorf("node at %+v has a missing child at index %d", pos, i))
			continue
		}
		var childLow, childHigh []byte
		if i > 0 {
			childLow = keys[i-1]
		}
		if i < len(keys) {
			childHigh = keys[i]
		}
		_, h, _, verr := bt.verifyNode(c, kt, false, childLow, childHigh)
		errs = multierr.Append(errs, verr)
		childHeight = h
		heights[h] = true
	}
	if len(heights) > 1 {
		errs = multierr.Append(errs, fmt.Errorf("node at %+v has children of unequal height", pos))
	}

	return len(keys), childHeight + 1, false, errs
}
