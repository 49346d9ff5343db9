package codec

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Record is a decoded struct value keyed by declared field name.
type Record map[string]any

// Variant is one case of a tagged union together with its fields.
type Variant struct {
	Name   string
	Fields Record
}

// TaggedObject is the one-key interchange form of a Variant:
// {"Active": {"periodId": 7}}. Field-less cases map to an empty Record.
type TaggedObject map[string]Record

// TaggedObject returns the one-key form of v.
func (v Variant) TaggedObject() TaggedObject {
	fields := v.Fields
	if fields == nil {
		fields = Record{}
	}
	return TaggedObject{v.Name: fields}
}

// Reader pulls typed fields out of a Record. The first failure sticks and
// later calls return zero values; check Err once at the end.
type Reader struct {
	rec Record
	err error
}

// Read starts reading rec.
func Read(rec Record) *Reader {
	return &Reader{rec: rec}
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

func readAs[T any](r *Reader, name string, schema string) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, ok := r.rec[name]
	if !ok {
		r.err = &MissingFieldError{Field: name}
		return zero
	}
	out, ok := v.(T)
	if !ok {
		r.err = fieldErr(name, &ValueError{Schema: schema, Got: v})
		return zero
	}
	return out
}

func (r *Reader) Uint8(name string) uint8   { return readAs[uint8](r, name, "u8") }
func (r *Reader) Uint16(name string) uint16 { return readAs[uint16](r, name, "u16") }
func (r *Reader) Uint32(name string) uint32 { return readAs[uint32](r, name, "u32") }
func (r *Reader) Uint64(name string) uint64 { return readAs[uint64](r, name, "u64") }
func (r *Reader) Int8(name string) int8     { return readAs[int8](r, name, "i8") }
func (r *Reader) Int16(name string) int16   { return readAs[int16](r, name, "i16") }
func (r *Reader) Int32(name string) int32   { return readAs[int32](r, name, "i32") }
func (r *Reader) Int64(name string) int64   { return readAs[int64](r, name, "i64") }

// BigInt returns a 128-bit field. The returned value is a copy.
func (r *Reader) BigInt(name string) *big.Int {
	b := readAs[*big.Int](r, name, "u128")
	if b == nil {
		return nil
	}
	return new(big.Int).Set(b)
}

func (r *Reader) Bytes(name string) []byte {
	return readAs[[]byte](r, name, "bytes")
}

func (r *Reader) PublicKey(name string) solana.PublicKey {
	return readAs[solana.PublicKey](r, name, "publicKey")
}

func (r *Reader) Record(name string) Record {
	return readAs[Record](r, name, "struct")
}

func (r *Reader) Variant(name string) Variant {
	return readAs[Variant](r, name, "enum")
}

func (r *Reader) List(name string) []any {
	return readAs[[]any](r, name, "vec")
}

// Fail records err against field name unless an earlier error is pending.
// Bindings use it to report nested conversion failures.
func (r *Reader) Fail(name string, err error) {
	if r.err == nil && err != nil {
		r.err = fieldErr(name, err)
	}
}

// Failf records a formatted error against field name.
func (r *Reader) Failf(name string, format string, args ...any) {
	r.Fail(name, fmt.Errorf(format, args...))
}
