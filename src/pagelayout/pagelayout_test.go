package pagelayout

import (
	"bytes"
	"testing"

	"github.com/dstrohschein/miniql/src/schema"
)

const (
	testKeyLength = 5
	testRowLength = 3
)

func sampleKeys(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = bytes.Repeat([]byte{byte(i + 1)}, testKeyLength)
	}
	return out
}

func sampleRows(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = bytes.Repeat([]byte{byte(i + 100)}, testRowLength)
	}
	return out
}

func TestNewNodeBytesLeafFlagAndCounts(t *testing.T) {
	keys := sampleKeys(3)
	rows := sampleRows(3)
	page := NewNodeBytes(keys, rows, testKeyLength, testRowLength, true)

	if NKeys(page) != 3 {
		t.Fatalf("expected 3 keys, got %d", NKeys(page))
	}
	if !IsLeaf(page) {
		t.Fatalf("expected leaf flag to be set")
	}
	if len(page) != NodeSpan(3, testKeyLength, testRowLength) {
		t.Fatalf("expected span %d, got %d", NodeSpan(3, testKeyLength, testRowLength), len(page))
	}
}

func TestReadWriteKeyAndData(t *testing.T) {
	page := NewNodeBytes(sampleKeys(2), sampleRows(2), testKeyLength, testRowLength, true)

	k, err := ReadKey(page, 0, testKeyLength)
	if err != nil {
		t.Fatalf("ReadKey failed: %v", err)
	}
	if !bytes.Equal(k, bytes.Repeat([]byte{1}, testKeyLength)) {
		t.Fatalf("unexpected key 0: %v", k)
	}

	newKey := bytes.Repeat([]byte{9}, testKeyLength)
	if err := WriteKey(page, 0, newKey, testKeyLength); err != nil {
		t.Fatalf("WriteKey failed: %v", err)
	}
	got, _ := ReadKey(page, 0, testKeyLength)
	if !bytes.Equal(got, newKey) {
		t.Fatalf("expected updated key, got %v", got)
	}

	d, err := ReadData(page, 1, testKeyLength, testRowLength)
	if err != nil {
		t.Fatalf("ReadData failed: %v", err)
	}
	if !bytes.Equal(d, bytes.Repeat([]byte{101}, testRowLength)) {
		t.Fatalf("unexpected row 1: %v", d)
	}

	newRow := bytes.Repeat([]byte{200}, testRowLength)
	if err := WriteData(page, 1, newRow, testKeyLength, testRowLength); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	gotRow, _ := ReadData(page, 1, testKeyLength, testRowLength)
	if !bytes.Equal(gotRow, newRow) {
		t.Fatalf("expected updated row, got %v", gotRow)
	}
}

func TestReadKeyOutOfRange(t *testing.T) {
	page := NewNodeBytes(sampleKeys(1), sampleRows(1), testKeyLength, testRowLength, true)
	if _, err := ReadKey(page, 5, testKeyLength); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestChildReadWriteAndLeafInvalidation(t *testing.T) {
	page := NewNodeBytes(sampleKeys(2), sampleRows(2), testKeyLength, testRowLength, false)
	if IsLeaf(page) {
		t.Fatalf("expected internal node to start non-leaf")
	}

	child := schema.Position{Page: 7, Cell: 0}
	if err := WriteChild(page, 0, child, testKeyLength); err != nil {
		t.Fatalf("WriteChild failed: %v", err)
	}
	got, err := ReadChild(page, 0, testKeyLength)
	if err != nil {
		t.Fatalf("ReadChild failed: %v", err)
	}
	if got != child {
		t.Fatalf("expected %+v, got %+v", child, got)
	}
	if IsLeaf(page) {
		t.Fatalf("expected writing a real child to leave leaf flag false")
	}

	if err := WriteChild(page, 1, schema.NoPosition, testKeyLength); err != nil {
		t.Fatalf("WriteChild failed: %v", err)
	}
	if !IsLeaf(page) {
		t.Fatalf("expected writing the empty sentinel child to set leaf flag true")
	}
}

func TestReadKeysAndDataAsVec(t *testing.T) {
	keys := sampleKeys(4)
	rows := sampleRows(4)
	page := NewNodeBytes(keys, rows, testKeyLength, testRowLength, true)

	gotKeys := ReadKeysAsVec(page, testKeyLength)
	if len(gotKeys) != 4 {
		t.Fatalf("expected 4 keys, got %d", len(gotKeys))
	}
	for i := range keys {
		if !bytes.Equal(gotKeys[i], keys[i]) {
			t.Fatalf("key %d mismatch: want %v got %v", i, keys[i], gotKeys[i])
		}
	}

	gotRows := ReadDataAsVec(page, testKeyLength, testRowLength)
	for i := range rows {
		if !bytes.Equal(gotRows[i], rows[i]) {
			t.Fatalf("row %d mismatch: want %v got %v", i, rows[i], gotRows[i])
		}
	}
}

func TestReadAllChildrenAsVecReturnsNPlusOne(t *testing.T) {
	page := NewNodeBytes(sampleKeys(3), sampleRows(3), testKeyLength, testRowLength, false)
	children := ReadAllChildrenAsVec(page, testKeyLength)
	if len(children) != 4 {
		t.Fatalf("expected 4 children slots, got %d", len(children))
	}
}

func TestReadChildrenAsVecStopsAtFirstEmpty(t *testing.T) {
	page := NewNodeBytes(sampleKeys(2), sampleRows(2), testKeyLength, testRowLength, false)
	if err := WriteChild(page, 0, schema.Position{Page: 3}, testKeyLength); err != nil {
		t.Fatalf("WriteChild failed: %v", err)
	}
	children := ReadChildrenAsVec(page, testKeyLength)
	if len(children) != 1 {
		t.Fatalf("expected to stop at the first empty slot, got %d children", len(children))
	}
}

func TestWriteKeysVecResizeWithRowsGrowsAndShrinks(t *testing.T) {
	page := NewNodeBytes(sampleKeys(2), sampleRows(2), testKeyLength, testRowLength, true)

	grown, err := WriteKeysVecResizeWithRows(page, sampleKeys(4), sampleRows(4), testKeyLength, testRowLength)
	if err != nil {
		t.Fatalf("resize (grow) failed: %v", err)
	}
	if NKeys(grown) != 4 {
		t.Fatalf("expected 4 keys after growing, got %d", NKeys(grown))
	}
	if !IsLeaf(grown) {
		t.Fatalf("expected leaf flag preserved across resize")
	}

	shrunk, err := WriteKeysVecResizeWithRows(grown, sampleKeys(1), sampleRows(1), testKeyLength, testRowLength)
	if err != nil {
		t.Fatalf("resize (shrink) failed: %v", err)
	}
	if NKeys(shrunk) != 1 {
		t.Fatalf("expected 1 key after shrinking, got %d", NKeys(shrunk))
	}
}

func TestWriteKeysVecResizeWithRowsRejectsMismatch(t *testing.T) {
	page := NewNodeBytes(sampleKeys(2), sampleRows(2), testKeyLength, testRowLength, true)
	if _, err := WriteKeysVecResizeWithRows(page, sampleKeys(3), sampleRows(2), testKeyLength, testRowLength); err != ErrOutOfRange {
		t.Fatalf("expected ErrOutOfRange for mismatched keys/rows lengths, got %v", err)
	}
}

func TestSwitchNodesRewritesSelfReferences(t *testing.T) {
	posA := schema.Position{Page: 1}
	posB := schema.Position{Page: 2}

	// Each node points at the other, so after the swap each copy holds a
	// reference to its own new position, which SwitchNodes must rewrite.
	pageA := NewNodeBytes(sampleKeys(1), sampleRows(1), testKeyLength, testRowLength, false)
	_ = WriteChild(pageA, 0, posB, testKeyLength)
	pageB := NewNodeBytes(sampleKeys(1), sampleRows(1), testKeyLength, testRowLength, false)
	_ = WriteChild(pageB, 0, posA, testKeyLength)

	newA, newB := SwitchNodes(pageA, pageB, posA, posB, testKeyLength)

	childOfNewA, _ := ReadChild(newA, 0, testKeyLength)
	if childOfNewA != posB {
		t.Fatalf("expected newA's self-reference rewritten to posB, got %+v", childOfNewA)
	}
	childOfNewB, _ := ReadChild(newB, 0, testKeyLength)
	if childOfNewB != posA {
		t.Fatalf("expected newB's self-reference rewritten to posA, got %+v", childOfNewB)
	}
}

func TestFlagBitsIndependent(t *testing.T) {
	page := NewNodeBytes(sampleKeys(1), sampleRows(1), testKeyLength, testRowLength, true)
	SetDirty(page, true)
	SetDeleted(page, true)
	SetLocked(page, true)

	if !IsDirty(page) || !IsDeleted(page) || !IsLocked(page) {
		t.Fatalf("expected all three flags set independently")
	}
	if !IsLeaf(page) {
		t.Fatalf("expected leaf flag to remain set alongside the others")
	}

	SetDirty(page, false)
	if IsDirty(page) {
		t.Fatalf("expected dirty flag cleared")
	}
	if !IsDeleted(page) || !IsLocked(page) {
		t.Fatalf("expected clearing dirty to not disturb deleted/locked")
	}
}

func TestShiftPageBlock(t *testing.T) {
	page := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ShiftPageBlock(page, 0, 4, 4)
	want := []byte{1, 2, 3, 4, 1, 2, 3, 4}
	if !bytes.Equal(page, want) {
		t.Fatalf("expected %v, got %v", want, page)
	}
}
