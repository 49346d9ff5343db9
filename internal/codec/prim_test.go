package codec

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestPrimitiveLittleEndian(t *testing.T) {
	cases := []struct {
		name   string
		v      any
		bits   int
		signed bool
		want   []byte
	}{
		{"u8", uint8(0xab), 8, false, []byte{0xab}},
		{"u16", uint16(0x0102), 16, false, []byte{0x02, 0x01}},
		{"u32", uint32(7), 32, false, []byte{7, 0, 0, 0}},
		{"u64", uint64(0x0102030405060708), 64, false, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{"i8", int8(-1), 8, true, []byte{0xff}},
		{"i16", int16(-2), 16, true, []byte{0xfe, 0xff}},
		{"i32", int32(-5), 32, true, []byte{0xfb, 0xff, 0xff, 0xff}},
		{"i64", int64(1396), 64, true, []byte{0x74, 0x05, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodePrimitive(tc.v, tc.bits, tc.signed)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("encode = %x, want %x", got, tc.want)
			}
			back, err := DecodePrimitive(got, 0, tc.bits, tc.signed)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if back != tc.v {
				t.Fatalf("decode = %v (%T), want %v (%T)", back, back, tc.v, tc.v)
			}
		})
	}
}

func TestPrimitive128RoundTrip(t *testing.T) {
	values := []struct {
		s      string
		signed bool
	}{
		{"0", false},
		{"340282366920938463463374607431768211455", false},
		{"18446744073709551616", false},
		{"-1", true},
		{"-170141183460469231731687303715884105728", true},
		{"170141183460469231731687303715884105727", true},
	}
	for _, tc := range values {
		v, _ := new(big.Int).SetString(tc.s, 10)
		raw, err := EncodePrimitive(v, 128, tc.signed)
		if err != nil {
			t.Fatalf("encode %s: %v", tc.s, err)
		}
		if len(raw) != 16 {
			t.Fatalf("encode %s: len %d", tc.s, len(raw))
		}
		back, err := DecodePrimitive(raw, 0, 128, tc.signed)
		if err != nil {
			t.Fatalf("decode %s: %v", tc.s, err)
		}
		if back.(*big.Int).Cmp(v) != 0 {
			t.Fatalf("round trip %s -> %s", tc.s, back)
		}
	}

	raw, _ := EncodePrimitive(big.NewInt(-1), 128, true)
	if !bytes.Equal(raw, bytes.Repeat([]byte{0xff}, 16)) {
		t.Fatalf("i128 -1 = %x", raw)
	}
}

func TestPrimitive128RangeChecked(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	if _, err := EncodePrimitive(tooBig, 128, false); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for 2^128, got %v", err)
	}
	if _, err := EncodePrimitive(big.NewInt(-1), 128, false); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for negative u128, got %v", err)
	}
	if _, err := EncodePrimitive(new(big.Int).Lsh(big.NewInt(1), 127), 128, true); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for 2^127 as i128, got %v", err)
	}
	var re *RangeError
	_, err := EncodePrimitive(tooBig, 128, false)
	if !errors.As(err, &re) || re.Schema != "u128" {
		t.Fatalf("expected *RangeError for u128, got %#v", err)
	}
}

func TestPrimitiveRejectsWrongGoType(t *testing.T) {
	if _, err := EncodePrimitive(7, 32, false); !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ErrValueType for int into u32, got %v", err)
	}
	if _, err := EncodePrimitive(uint32(7), 32, true); !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ErrValueType for uint32 into i32, got %v", err)
	}
	if _, err := EncodePrimitive(uint64(7), 128, false); !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ErrValueType for uint64 into u128, got %v", err)
	}
}

func TestPrimitiveDecodeTruncated(t *testing.T) {
	_, err := DecodePrimitive([]byte{1, 2, 3}, 0, 32, false)
	if !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer, got %v", err)
	}
	var te *TruncatedError
	if !errors.As(err, &te) || te.Need != 4 || te.Have != 3 {
		t.Fatalf("unexpected truncation detail: %#v", err)
	}
	if _, err := DecodePrimitive([]byte{1, 2}, 3, 8, false); !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer past end, got %v", err)
	}
}

func TestPrimitiveEncodeOverflowDoesNotWrite(t *testing.T) {
	buf := []byte{0xee, 0xee, 0xee}
	_, err := Encode(U32, uint32(1), buf, 0)
	if !errors.Is(err, ErrBufferOverflow) {
		t.Fatalf("expected ErrBufferOverflow, got %v", err)
	}
	if !bytes.Equal(buf, []byte{0xee, 0xee, 0xee}) {
		t.Fatalf("buffer modified on overflow: %x", buf)
	}
}

func TestPublicKeyRawCopy(t *testing.T) {
	pk := solana.MustPublicKeyFromBase58("HaTDBm8Ps7P6xBWFq5YbRUAnSwvCZNTceTuMB2VC3azv")
	buf := make([]byte, 40)
	n, err := Encode(PublicKey, pk, buf, 4)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != PublicKeyLen || !bytes.Equal(buf[4:36], pk[:]) {
		t.Fatalf("expected raw 32-byte copy at offset 4")
	}
	v, n, err := Decode(PublicKey, buf, 4)
	if err != nil || n != PublicKeyLen {
		t.Fatalf("decode: n=%d err=%v", n, err)
	}
	if !v.(solana.PublicKey).Equals(pk) {
		t.Fatalf("decoded key %s", v)
	}
}

func TestFixedBytes(t *testing.T) {
	s := FixedBytes(3)
	raw, err := Marshal(s, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(raw, []byte{1, 2, 3}) {
		t.Fatalf("raw = %x", raw)
	}
	if _, err := Marshal(s, []byte{1, 2}); !errors.Is(err, ErrValueType) {
		t.Fatalf("expected ErrValueType for short array, got %v", err)
	}
}
