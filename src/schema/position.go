package schema

import "encoding/binary"

// PositionSize is the fixed on-disk width of a Position: 2 bytes page
// index, 2 bytes cell index, both big-endian.
const PositionSize = 4

// Position addresses a cell within a page: the page index in the file and
// the cell's slot within that page. The zero value, (0, 0), is the
// reserved "no position" sentinel — page 0 is the file header and is
// never a valid node page, so it can never collide with a real address.
type Position struct {
	Page uint16
	Cell uint16
}

// NoPosition is the canonical absent-position sentinel.
var NoPosition = Position{}

// IsNone reports whether p is the absent-position sentinel.
func (p Position) IsNone() bool {
	return p.Page == 0 && p.Cell == 0
}

// Encode writes p as 2 big-endian bytes of Page followed by 2 big-endian
// bytes of Cell. This is the standard big-endian contract spec.md names
// explicitly; it intentionally does not replicate the original decoder's
// `bytes[0] + 8*bytes[1]` reconstruction, which does not invert its own
// encoder.
func (p Position) Encode() []byte {
	out := make([]byte, PositionSize)
	binary.BigEndian.PutUint16(out[0:2], p.Page)
	binary.BigEndian.PutUint16(out[2:4], p.Cell)
	return out
}

// DecodePosition reverses Encode.
func DecodePosition(b []byte) (Position, error) {
	if len(b) != PositionSize {
		return Position{}, ErrMalformedPosition
	}
	return Position{
		Page: binary.BigEndian.Uint16(b[0:2]),
		Cell: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}
