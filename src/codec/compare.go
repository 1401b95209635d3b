package codec

import "bytes"

// Ordering mirrors the three-way comparator result used throughout the
// btree and planner.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Compare orders two encoded values of the same type:
//   - Integer by unsigned magnitude (the trailing flag byte is ignored)
//   - Date by (year, month, day)
//   - String lexicographically over the raw bytes
//   - Boolean by value (false < true)
//   - Null is always Equal
func Compare(a, b []byte, t Type) (Ordering, error) {
	switch t {
	case String:
		// The tomb bit for a String key lives in bit 0 of the buffer's
		// last byte (there's no separate flag byte to hold it), so it
		// must be masked out here — otherwise tombing a key could
		// reorder it relative to its neighbors and break the tree's
		// sorted invariant.
		if len(a) != StringSize || len(b) != StringSize {
			return Equal, ErrTypeMismatch
		}
		return ordering(bytes.Compare(maskTombBit(a, t), maskTombBit(b, t))), nil
	case Integer:
		if len(a) != IntegerSize || len(b) != IntegerSize {
			return Equal, ErrTypeMismatch
		}
		// Unsigned big-endian magnitude over the first 4 bytes, matching
		// compare_integers in the original serializer: the trailing flag
		// byte is never part of the ordering.
		return ordering(bytes.Compare(a[:4], b[:4])), nil
	case Date:
		ya, ma, da, err := DecodeDate(a)
		if err != nil {
			return Equal, err
		}
		yb, mb, db, err := DecodeDate(b)
		if err != nil {
			return Equal, err
		}
		if ya != yb {
			return ordering(ya - yb), nil
		}
		if ma != mb {
			return ordering(ma - mb), nil
		}
		return ordering(da - db), nil
	case Boolean:
		if len(a) < 1 || len(b) < 1 {
			return Equal, ErrTypeMismatch
		}
		va, vb := a[0]&1, b[0]&1
		switch {
		case va < vb:
			return Less, nil
		case va > vb:
			return Greater, nil
		default:
			return Equal, nil
		}
	case Null:
		return Equal, nil
	default:
		return Equal, ErrTypeMismatch
	}
}

func ordering(n int) Ordering {
	switch {
	case n < 0:
		return Less
	case n > 0:
		return Greater
	default:
		return Equal
	}
}

// Infinity returns a maximal byte pattern for the type, used by the
// planner to close open-ended `<`/`<=` predicates into a bounded range.
func Infinity(t Type) []byte {
	switch t {
	case String:
		return bytes.Repeat([]byte{0xFF}, StringSize)
	case Integer:
		// Compare orders Integer by unsigned magnitude, so the maximal
		// pattern is all-ones over the 4 magnitude bytes, not INT32_MAX.
		return []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	case Date:
		return []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	case Boolean:
		return []byte{1}
	default:
		return []byte{0}
	}
}

// NegativeInfinity returns a minimal byte pattern for the type, used by
// the planner to close open-ended `>`/`>=` predicates into a bounded
// range.
func NegativeInfinity(t Type) []byte {
	switch t {
	case String:
		return bytes.Repeat([]byte{0x00}, StringSize)
	case Integer:
		return []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	case Date:
		return []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	case Boolean:
		return []byte{0}
	default:
		return []byte{0}
	}
}

// FlagBit reads a single bit within the last byte of an encoded value
// (the conventional location of the null/tomb flag for every type except
// Boolean, which only has one byte total and so uses bit 1 of that byte).
func FlagBit(v []byte, t Type, pos uint) (bool, error) {
	size, err := SizeOf(t)
	if err != nil {
		return false, err
	}
	if len(v) != size {
		return false, ErrTypeMismatch
	}
	if t == Null {
		return false, ErrTypeMismatch
	}
	return byteBit(v[size-1], pos), nil
}

// SetFlagBit sets or clears a single bit within the last byte of an
// encoded value, in place.
func SetFlagBit(v []byte, t Type, pos uint, value bool) error {
	size, err := SizeOf(t)
	if err != nil {
		return err
	}
	if len(v) != size {
		return ErrTypeMismatch
	}
	if t == Null {
		return ErrTypeMismatch
	}
	writeByteBit(&v[size-1], pos, value)
	return nil
}

func byteBit(b byte, pos uint) bool {
	return b&(1<<pos) != 0
}

func writeByteBit(b *byte, pos uint, value bool) {
	if value {
		*b |= 1 << pos
	} else {
		*b &^= 1 << pos
	}
}

// tombBitPosition returns which bit of a key's last byte carries the
// tomb flag. Boolean keys are a single byte whose bit 0 is already the
// value, so their tomb bit is bit 1 (matching the null/tomb bit spec.md
// assigns Boolean); every other type has its tomb bit at bit 0, either
// in a dedicated trailing flag byte (Integer, Date) or, for String,
// sharing the buffer's last content byte.
func tombBitPosition(t Type) uint {
	if t == Boolean {
		return 1
	}
	return 0
}

// IsTomb reports whether the key's tomb bit is set.
func IsTomb(key []byte, t Type) bool {
	if len(key) == 0 {
		return false
	}
	return byteBit(key[len(key)-1], tombBitPosition(t))
}

// SetTomb sets or clears the key's tomb bit in place.
func SetTomb(key []byte, t Type, value bool) {
	if len(key) == 0 {
		return
	}
	writeByteBit(&key[len(key)-1], tombBitPosition(t), value)
}

// maskTombBit returns a copy of v with its tomb bit cleared, used only
// to compute an order-stable comparison key; it never mutates v.
func maskTombBit(v []byte, t Type) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	if len(out) > 0 {
		writeByteBit(&out[len(out)-1], tombBitPosition(t), false)
	}
	return out
}
