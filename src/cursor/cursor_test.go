package cursor

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/btree"
	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/pager"
	"github.com/dstrohschein/miniql/src/schema"
)

func setupTestCursor(t *testing.T, n int) (*Cursor, func()) {
	path := fmt.Sprintf("/tmp/miniql-cursor-test-%d-%d.db", os.Getpid(), len(t.Name()))
	os.Remove(path)

	log := zap.NewNop().Sugar()
	p, err := pager.Create(path, 3, log)
	if err != nil {
		t.Fatalf("pager.Create failed: %v", err)
	}
	table := schema.TableSchema{
		Name:        "nums",
		Fields:      []schema.Field{{Identifier: "id", Type: codec.Integer}},
		KeyPosition: 0,
	}
	if err := p.AddTable(table); err != nil {
		t.Fatalf("AddTable failed: %v", err)
	}
	bt, err := btree.Open(p, "nums", log)
	if err != nil {
		t.Fatalf("btree.Open failed: %v", err)
	}
	for i := 0; i < n; i++ {
		k, _ := codec.EncodeInteger(uint32(i))
		if err := bt.Insert(k, nil); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	cleanup := func() {
		p.Close()
		os.Remove(path)
	}
	return New(bt), cleanup
}

func keyValue(t *testing.T, c *Cursor) uint32 {
	t.Helper()
	k, _, ok, err := c.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected cursor to be positioned on a valid entry")
	}
	v, err := codec.DecodeInteger(k)
	if err != nil {
		t.Fatalf("DecodeInteger failed: %v", err)
	}
	return v
}

func TestMoveToStartAndAdvance(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	if err := c.MoveToStart(); err != nil {
		t.Fatalf("MoveToStart failed: %v", err)
	}

	for i := uint32(0); i < 30; i++ {
		if !c.IsValid() {
			t.Fatalf("expected cursor to be valid at index %d", i)
		}
		if got := keyValue(t, c); got != i {
			t.Fatalf("expected key %d, got %d", i, got)
		}
		if err := c.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	if c.IsValid() {
		t.Fatalf("expected cursor to be invalid after stepping past the last key")
	}
}

func TestMoveToEndAndDecrease(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	if err := c.MoveToEnd(); err != nil {
		t.Fatalf("MoveToEnd failed: %v", err)
	}
	for i := int32(29); i >= 0; i-- {
		if got := keyValue(t, c); got != uint32(i) {
			t.Fatalf("expected key %d, got %d", i, got)
		}
		if err := c.Decrease(); err != nil {
			t.Fatalf("Decrease failed: %v", err)
		}
	}
	if c.IsValid() {
		t.Fatalf("expected cursor to be invalid after stepping past the first key")
	}
}

func TestGoToExactMatch(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	k, _ := codec.EncodeInteger(15)
	if err := c.GoTo(k); err != nil {
		t.Fatalf("GoTo failed: %v", err)
	}
	if !c.IsValid() {
		t.Fatalf("expected GoTo to land on an existing key")
	}
	if got := keyValue(t, c); got != 15 {
		t.Fatalf("expected key 15, got %d", got)
	}
}

func TestGoToMissingKeyInvalidates(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	k, _ := codec.EncodeInteger(9999)
	if err := c.GoTo(k); err != nil {
		t.Fatalf("GoTo failed: %v", err)
	}
	if c.IsValid() {
		t.Fatalf("expected GoTo on a missing key to invalidate the cursor")
	}
}

func TestGoToLessThanEqualFallsBackToPredecessor(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	// The tree holds keys 0..29; key 100 is above all of them, so the
	// lookup should fall back to the largest existing key, 29.
	k, _ := codec.EncodeInteger(100)
	if err := c.GoToLessThanEqual(k); err != nil {
		t.Fatalf("GoToLessThanEqual failed: %v", err)
	}
	if !c.IsValid() {
		t.Fatalf("expected a fallback position to exist")
	}
	if got := keyValue(t, c); got != 29 {
		t.Fatalf("expected fallback to land on 29, got %d", got)
	}
}

func TestGoToLessThanEqualBelowEverythingInvalidates(t *testing.T) {
	c, cleanup := setupTestCursor(t, 30)
	defer cleanup()

	// Key 0 equals the Integer minimum, so remove it first: the remaining
	// keys 1..29 all lie above the probe.
	zero, _ := codec.EncodeInteger(0)
	if err := c.bt.Delete(zero); err != nil {
		t.Fatalf("Delete(0) failed: %v", err)
	}

	below := codec.NegativeInfinity(codec.Integer)
	if err := c.GoToLessThanEqual(below); err != nil {
		t.Fatalf("GoToLessThanEqual failed: %v", err)
	}
	if c.IsValid() {
		t.Fatalf("expected no key at or below the type's minimum to exist")
	}
}
