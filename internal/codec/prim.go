package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// PublicKeyLen is the encoded size of an account reference.
const PublicKeyLen = 32

type primitive struct {
	name   string
	width  int
	signed bool
}

// Fixed-width little-endian integers. 128-bit widths carry *big.Int values;
// the rest carry the Go integer type of the same width and signedness.
var (
	U8   Schema = &primitive{name: "u8", width: 1}
	U16  Schema = &primitive{name: "u16", width: 2}
	U32  Schema = &primitive{name: "u32", width: 4}
	U64  Schema = &primitive{name: "u64", width: 8}
	U128 Schema = &primitive{name: "u128", width: 16}
	I8   Schema = &primitive{name: "i8", width: 1, signed: true}
	I16  Schema = &primitive{name: "i16", width: 2, signed: true}
	I32  Schema = &primitive{name: "i32", width: 4, signed: true}
	I64  Schema = &primitive{name: "i64", width: 8, signed: true}
	I128 Schema = &primitive{name: "i128", width: 16, signed: true}
)

var (
	two128     = new(big.Int).Lsh(big.NewInt(1), 128)
	maxUint128 = new(big.Int).Sub(two128, big.NewInt(1))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Primitive returns the integer schema for a bit width of 8, 16, 32, 64 or 128.
func Primitive(bits int, signed bool) Schema {
	table := map[int][2]Schema{
		8:   {U8, I8},
		16:  {U16, I16},
		32:  {U32, I32},
		64:  {U64, I64},
		128: {U128, I128},
	}
	pair, ok := table[bits]
	if !ok {
		panic(fmt.Sprintf("codec: unsupported integer width %d", bits))
	}
	if signed {
		return pair[1]
	}
	return pair[0]
}

// EncodePrimitive returns the little-endian bytes of v at the given width.
func EncodePrimitive(v any, bits int, signed bool) ([]byte, error) {
	s := Primitive(bits, signed)
	out := make([]byte, bits/8)
	if _, err := s.encode(out, 0, v); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodePrimitive reads one integer of the given width at off.
func DecodePrimitive(buf []byte, off int, bits int, signed bool) (any, error) {
	v, _, err := Primitive(bits, signed).decode(buf, off)
	return v, err
}

func (p *primitive) String() string         { return p.name }
func (p *primitive) FixedSize() (int, bool) { return p.width, true }
func (p *primitive) minSize() int           { return p.width }

func (p *primitive) encode(buf []byte, off int, v any) (int, error) {
	if off < 0 || len(buf)-off < p.width {
		return 0, overflow(buf, off, p.width)
	}
	if p.width == 16 {
		b, err := p.bigValue(v)
		if err != nil {
			return 0, err
		}
		putInt128(buf[off:off+16], b)
		return 16, nil
	}
	u, ok := p.bits(v)
	if !ok {
		return 0, &ValueError{Schema: p.name, Got: v}
	}
	putUint(buf[off:off+p.width], p.width, u)
	return p.width, nil
}

func (p *primitive) decode(buf []byte, off int) (any, int, error) {
	if off < 0 || len(buf)-off < p.width {
		return nil, 0, truncated(buf, off, p.width)
	}
	b := buf[off : off+p.width]
	switch p.width {
	case 1:
		if p.signed {
			return int8(b[0]), 1, nil
		}
		return b[0], 1, nil
	case 2:
		u := binary.LittleEndian.Uint16(b)
		if p.signed {
			return int16(u), 2, nil
		}
		return u, 2, nil
	case 4:
		u := binary.LittleEndian.Uint32(b)
		if p.signed {
			return int32(u), 4, nil
		}
		return u, 4, nil
	case 8:
		u := binary.LittleEndian.Uint64(b)
		if p.signed {
			return int64(u), 8, nil
		}
		return u, 8, nil
	default:
		return readInt128(b, p.signed), 16, nil
	}
}

// bits returns the two's complement bit pattern of v if its Go type matches.
func (p *primitive) bits(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), !p.signed && p.width == 1
	case uint16:
		return uint64(x), !p.signed && p.width == 2
	case uint32:
		return uint64(x), !p.signed && p.width == 4
	case uint64:
		return x, !p.signed && p.width == 8
	case int8:
		return uint64(x), p.signed && p.width == 1
	case int16:
		return uint64(x), p.signed && p.width == 2
	case int32:
		return uint64(x), p.signed && p.width == 4
	case int64:
		return uint64(x), p.signed && p.width == 8
	}
	return 0, false
}

func (p *primitive) bigValue(v any) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, &ValueError{Schema: p.name, Got: v}
	}
	if p.signed {
		if b.Cmp(minInt128) < 0 || b.Cmp(maxInt128) > 0 {
			return nil, &RangeError{Schema: p.name, Value: b.String()}
		}
		return b, nil
	}
	if b.Sign() < 0 || b.Cmp(maxUint128) > 0 {
		return nil, &RangeError{Schema: p.name, Value: b.String()}
	}
	return b, nil
}

func (p *primitive) toJSON(v any) (any, error) {
	if p.width == 16 {
		b, err := p.bigValue(v)
		if err != nil {
			return nil, err
		}
		return b.String(), nil
	}
	u, ok := p.bits(v)
	if !ok {
		return nil, &ValueError{Schema: p.name, Got: v}
	}
	if p.width < 8 {
		return v, nil
	}
	if p.signed {
		return strconv.FormatInt(int64(u), 10), nil
	}
	return strconv.FormatUint(u, 10), nil
}

func (p *primitive) fromJSON(raw []byte) (any, error) {
	s, err := jsonScalar(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	if p.width == 16 {
		b, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, &RangeError{Schema: p.name, Value: s}
		}
		return p.bigValue(b)
	}
	if p.signed {
		n, err := strconv.ParseInt(s, 10, p.width*8)
		if err != nil {
			return nil, &RangeError{Schema: p.name, Value: s}
		}
		switch p.width {
		case 1:
			return int8(n), nil
		case 2:
			return int16(n), nil
		case 4:
			return int32(n), nil
		}
		return n, nil
	}
	n, err := strconv.ParseUint(s, 10, p.width*8)
	if err != nil {
		return nil, &RangeError{Schema: p.name, Value: s}
	}
	switch p.width {
	case 1:
		return uint8(n), nil
	case 2:
		return uint16(n), nil
	case 4:
		return uint32(n), nil
	}
	return n, nil
}

// jsonScalar accepts a JSON number or a JSON string holding one.
func jsonScalar(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func putUint(b []byte, width int, u uint64) {
	switch width {
	case 1:
		b[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(b, u)
	}
}

func putInt128(b []byte, v *big.Int) {
	u := v
	if v.Sign() < 0 {
		u = new(big.Int).Add(v, two128)
	}
	var be [16]byte
	u.FillBytes(be[:])
	for i := 0; i < 16; i++ {
		b[i] = be[15-i]
	}
}

func readInt128(b []byte, signed bool) *big.Int {
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	v := new(big.Int).SetBytes(be[:])
	if signed && b[15]&0x80 != 0 {
		v.Sub(v, two128)
	}
	return v
}

type fixedBytes struct {
	n int
}

// FixedBytes is a raw byte array of exactly n bytes, carried as []byte.
func FixedBytes(n int) Schema {
	if n < 0 {
		panic("codec: negative fixed bytes length")
	}
	return &fixedBytes{n: n}
}

func (f *fixedBytes) String() string         { return fmt.Sprintf("[u8; %d]", f.n) }
func (f *fixedBytes) FixedSize() (int, bool) { return f.n, true }
func (f *fixedBytes) minSize() int           { return f.n }

func (f *fixedBytes) encode(buf []byte, off int, v any) (int, error) {
	b, ok := v.([]byte)
	if !ok || len(b) != f.n {
		return 0, &ValueError{Schema: f.String(), Got: v}
	}
	if off < 0 || len(buf)-off < f.n {
		return 0, overflow(buf, off, f.n)
	}
	copy(buf[off:], b)
	return f.n, nil
}

func (f *fixedBytes) decode(buf []byte, off int) (any, int, error) {
	if off < 0 || len(buf)-off < f.n {
		return nil, 0, truncated(buf, off, f.n)
	}
	out := make([]byte, f.n)
	copy(out, buf[off:off+f.n])
	return out, f.n, nil
}

func (f *fixedBytes) toJSON(v any) (any, error) {
	b, ok := v.([]byte)
	if !ok || len(b) != f.n {
		return nil, &ValueError{Schema: f.String(), Got: v}
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (f *fixedBytes) fromJSON(raw []byte) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", f, err)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f, err)
	}
	if len(b) != f.n {
		return nil, &ValueError{Schema: f.String(), Got: b}
	}
	return b, nil
}

type publicKey struct{}

// PublicKey is a 32-byte account reference carried as solana.PublicKey and
// projected to JSON in base58.
var PublicKey Schema = publicKey{}

func (publicKey) String() string         { return "publicKey" }
func (publicKey) FixedSize() (int, bool) { return PublicKeyLen, true }
func (publicKey) minSize() int           { return PublicKeyLen }

func (publicKey) encode(buf []byte, off int, v any) (int, error) {
	pk, ok := v.(solana.PublicKey)
	if !ok {
		return 0, &ValueError{Schema: "publicKey", Got: v}
	}
	if off < 0 || len(buf)-off < PublicKeyLen {
		return 0, overflow(buf, off, PublicKeyLen)
	}
	copy(buf[off:], pk[:])
	return PublicKeyLen, nil
}

func (publicKey) decode(buf []byte, off int) (any, int, error) {
	if off < 0 || len(buf)-off < PublicKeyLen {
		return nil, 0, truncated(buf, off, PublicKeyLen)
	}
	var pk solana.PublicKey
	copy(pk[:], buf[off:off+PublicKeyLen])
	return pk, PublicKeyLen, nil
}

func (publicKey) toJSON(v any) (any, error) {
	pk, ok := v.(solana.PublicKey)
	if !ok {
		return nil, &ValueError{Schema: "publicKey", Got: v}
	}
	return pk.String(), nil
}

func (publicKey) fromJSON(raw []byte) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("publicKey: %w", err)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return nil, fmt.Errorf("publicKey: %w", err)
	}
	return pk, nil
}
