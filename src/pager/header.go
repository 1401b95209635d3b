package pager

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/dstrohschein/miniql/src/codec"
	"github.com/dstrohschein/miniql/src/schema"
	"github.com/dstrohschein/miniql/src/status"
)

// readSchema parses the header region (offset 0, HeaderSize bytes) per
// spec.md §6: table count, next free page, then per table — name, field count, fields
// (type tag + identifier), root Position, next_position, table kind,
// entry count, key_position.
func readSchema(file *os.File) (*schema.Schema, uint16, error) {
	buf := make([]byte, HeaderSize)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return nil, 0, status.New(status.InternalExceptionReadFailed, err.Error())
	}

	r := &byteReader{buf: buf}
	tableCount := int(r.uint16())
	nextFreePage := r.uint16()

	tables := make([]schema.TableSchema, 0, tableCount)
	for i := 0; i < tableCount; i++ {
		name := r.fixedString(TableNameSize)
		fieldCount := int(r.uint8())

		fields := make([]schema.Field, 0, fieldCount)
		for j := 0; j < fieldCount; j++ {
			typeTag := r.uint8()
			t, err := codec.TypeFromTag(typeTag)
			if err != nil {
				return nil, 0, status.New(status.InternalExceptionInvalidSchema, "unknown type tag in header")
			}
			identifier := r.fixedString(FieldNameSize)
			fields = append(fields, schema.Field{Identifier: identifier, Type: t, TableName: name})
		}

		root, err := schema.DecodePosition(r.bytes(schema.PositionSize))
		if err != nil {
			return nil, 0, status.New(status.InternalExceptionInvalidSchema, err.Error())
		}
		next, err := schema.DecodePosition(r.bytes(schema.PositionSize))
		if err != nil {
			return nil, 0, status.New(status.InternalExceptionInvalidSchema, err.Error())
		}
		kind := schema.TableKind(r.uint8())
		entryCount := int32(r.uint32())
		keyPosition := int(r.uint8())

		tables = append(tables, schema.TableSchema{
			Name:         name,
			Fields:       fields,
			KeyPosition:  keyPosition,
			Root:         root,
			NextPosition: next,
			Kind:         kind,
			EntryCount:   entryCount,
		})
	}
	if r.err != nil {
		return nil, 0, status.New(status.InternalExceptionInvalidSchema, r.err.Error())
	}

	return schema.FromTables(tables), nextFreePage, nil
}

// writeSchema serializes sch into the header region and writes it to
// offset 0. The header is capped at HeaderSize bytes; a schema that
// outgrows that budget is an internal error (the file must be created
// with a larger reserve up front — not supported by this implementation,
// matching spec.md's fixed illustrative widths rather than a resizable
// header).
func writeSchema(file *os.File, sch *schema.Schema, nextFreePage uint16) error {
	w := &byteWriter{}
	w.uint16(uint16(len(sch.Tables)))
	w.uint16(nextFreePage)
	for _, t := range sch.Tables {
		w.fixedString(t.Name, TableNameSize)
		w.uint8(uint8(len(t.Fields)))
		for _, f := range t.Fields {
			w.uint8(codec.TagFromType(f.Type))
			w.fixedString(f.Identifier, FieldNameSize)
		}
		w.bytes(t.Root.Encode())
		w.bytes(t.NextPosition.Encode())
		w.uint8(uint8(t.Kind))
		w.uint32(uint32(t.EntryCount))
		w.uint8(uint8(t.KeyPosition))
	}

	if w.buf.Len() > HeaderSize {
		return status.New(status.InternalExceptionInvalidSchema, "schema header exceeds reserved region")
	}
	out := make([]byte, HeaderSize)
	copy(out, w.buf.Bytes())

	if _, err := file.WriteAt(out, 0); err != nil {
		return status.New(status.InternalExceptionWriteFailed, err.Error())
	}
	return nil
}

// byteReader/byteWriter are tiny fixed-format cursors over the header
// buffer; encoding/binary covers the integers, the rest is manual
// because the format mixes fixed-width strings with integers at
// non-uniform boundaries.

type byteReader struct {
	buf []byte
	pos int
	err error
}

func (r *byteReader) bytes(n int) []byte {
	if r.err != nil || r.pos+n > len(r.buf) {
		r.err = status.New(status.InternalExceptionReadFailed, "header truncated")
		return make([]byte, n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) uint8() uint8   { b := r.bytes(1); return b[0] }
func (r *byteReader) uint16() uint16 { return binary.BigEndian.Uint16(r.bytes(2)) }
func (r *byteReader) uint32() uint32 { return binary.BigEndian.Uint32(r.bytes(4)) }

func (r *byteReader) fixedString(width int) string {
	b := r.bytes(width)
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	return string(b[:end])
}

type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) bytes(b []byte)  { w.buf.Write(b) }
func (w *byteWriter) uint8(v uint8)   { w.buf.WriteByte(v) }
func (w *byteWriter) uint16(v uint16) { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); w.buf.Write(b) }
func (w *byteWriter) uint32(v uint32) { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); w.buf.Write(b) }

func (w *byteWriter) fixedString(s string, width int) {
	b := make([]byte, width)
	copy(b, s)
	w.buf.Write(b)
}
