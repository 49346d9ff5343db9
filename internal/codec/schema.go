package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const vectorLenSize = 4

// Schema describes how one value is laid out in a byte buffer. Schemas are
// immutable once built and safe to share across goroutines.
type Schema interface {
	// FixedSize reports the encoded size when it does not depend on the value.
	FixedSize() (int, bool)
	String() string

	minSize() int
	encode(buf []byte, off int, v any) (int, error)
	decode(buf []byte, off int) (any, int, error)
	toJSON(v any) (any, error)
	fromJSON(raw []byte) (any, error)
}

// Encode writes v at buf[off:] and reports the exact number of bytes
// written. buf may be larger than needed; a short buf fails with
// *OverflowError and nothing past len(buf) is touched.
func Encode(s Schema, v any, buf []byte, off int) (int, error) {
	return s.encode(buf, off, v)
}

// Decode reads one value at buf[off:] and reports the bytes consumed.
// On error no value is returned.
func Decode(s Schema, buf []byte, off int) (any, int, error) {
	v, n, err := s.decode(buf, off)
	if err != nil {
		return nil, 0, err
	}
	return v, n, nil
}

// Marshal encodes v into a buffer of exactly the encoded size.
func Marshal(s Schema, v any) ([]byte, error) {
	size := 256
	if n, ok := s.FixedSize(); ok {
		size = n
	}
	for {
		buf := make([]byte, size)
		n, err := s.encode(buf, 0, v)
		if err == nil {
			return buf[:n], nil
		}
		var oe *OverflowError
		if !errors.As(err, &oe) {
			return nil, err
		}
		size = max(size*2, oe.Need)
	}
}

// Field is one named member of a Struct.
type Field struct {
	Name   string
	Schema Schema
}

// F declares a struct field.
func F(name string, s Schema) Field {
	return Field{Name: name, Schema: s}
}

// StructSchema encodes its fields in declaration order with no padding.
type StructSchema struct {
	fields []Field
	size   int
	fixed  bool
	min    int
}

// Struct builds an ordered-field schema. Values are Records keyed by field
// name.
func Struct(fields ...Field) *StructSchema {
	s := &StructSchema{fields: append([]Field(nil), fields...), fixed: true}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			panic(fmt.Sprintf("codec: duplicate struct field %q", f.Name))
		}
		seen[f.Name] = struct{}{}
		n, ok := f.Schema.FixedSize()
		if ok {
			s.size += n
		} else {
			s.fixed = false
		}
		s.min += f.Schema.minSize()
	}
	return s
}

// Fields returns the declared fields in order.
func (s *StructSchema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *StructSchema) FixedSize() (int, bool) {
	if !s.fixed {
		return 0, false
	}
	return s.size, true
}

func (s *StructSchema) String() string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name + ": " + f.Schema.String()
	}
	return "struct{" + strings.Join(names, ", ") + "}"
}

func (s *StructSchema) minSize() int { return s.min }

func (s *StructSchema) record(v any) (Record, error) {
	switch r := v.(type) {
	case Record:
		return r, nil
	case map[string]any:
		return Record(r), nil
	case nil:
		if len(s.fields) == 0 {
			return Record{}, nil
		}
	}
	return nil, &ValueError{Schema: "struct", Got: v}
}

func (s *StructSchema) encode(buf []byte, off int, v any) (int, error) {
	rec, err := s.record(v)
	if err != nil {
		return 0, err
	}
	pos := off
	for _, f := range s.fields {
		fv, ok := rec[f.Name]
		if !ok {
			return 0, &MissingFieldError{Field: f.Name}
		}
		n, err := f.Schema.encode(buf, pos, fv)
		if err != nil {
			return 0, fieldErr(f.Name, err)
		}
		pos += n
	}
	return pos - off, nil
}

func (s *StructSchema) decode(buf []byte, off int) (any, int, error) {
	rec := make(Record, len(s.fields))
	pos := off
	for _, f := range s.fields {
		v, n, err := f.Schema.decode(buf, pos)
		if err != nil {
			return nil, 0, fieldErr(f.Name, err)
		}
		rec[f.Name] = v
		pos += n
	}
	return rec, pos - off, nil
}

// VectorSchema is a u32 little-endian count followed by that many elements.
type VectorSchema struct {
	elem Schema
}

// Vector builds a length-prefixed sequence schema. Values are []any.
func Vector(elem Schema) *VectorSchema {
	return &VectorSchema{elem: elem}
}

// Elem returns the element schema.
func (v *VectorSchema) Elem() Schema { return v.elem }

func (v *VectorSchema) FixedSize() (int, bool) { return 0, false }
func (v *VectorSchema) String() string         { return "vec<" + v.elem.String() + ">" }
func (v *VectorSchema) minSize() int           { return vectorLenSize }

func (v *VectorSchema) encode(buf []byte, off int, val any) (int, error) {
	items, ok := val.([]any)
	if !ok {
		if val != nil {
			return 0, &ValueError{Schema: v.String(), Got: val}
		}
	}
	if uint64(len(items)) > uint64(^uint32(0)) {
		return 0, &RangeError{Schema: v.String(), Value: fmt.Sprint(len(items))}
	}
	if off < 0 || len(buf)-off < vectorLenSize {
		return 0, overflow(buf, off, vectorLenSize)
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(items)))
	pos := off + vectorLenSize
	for i, item := range items {
		n, err := v.elem.encode(buf, pos, item)
		if err != nil {
			return 0, fieldErr(fmt.Sprintf("[%d]", i), err)
		}
		pos += n
	}
	return pos - off, nil
}

func (v *VectorSchema) decode(buf []byte, off int) (any, int, error) {
	if off < 0 || len(buf)-off < vectorLenSize {
		return nil, 0, truncated(buf, off, vectorLenSize)
	}
	count := binary.LittleEndian.Uint32(buf[off:])
	pos := off + vectorLenSize
	remaining := len(buf) - pos
	// Every element is charged at least one byte so zero-width elements
	// cannot inflate the count past the input.
	if need := uint64(count) * uint64(max(v.elem.minSize(), 1)); need > uint64(remaining) {
		return nil, 0, &TruncatedError{Offset: pos, Need: int(min(need, uint64(^uint(0)>>1))), Have: remaining}
	}
	items := make([]any, 0, min(int(count), remaining+1))
	for i := 0; i < int(count); i++ {
		item, n, err := v.elem.decode(buf, pos)
		if err != nil {
			return nil, 0, fieldErr(fmt.Sprintf("[%d]", i), err)
		}
		items = append(items, item)
		pos += n
	}
	return items, pos - off, nil
}
