package codec

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestJSONProjection(t *testing.T) {
	s := Struct(
		F("owner", PublicKey),
		F("small", U32),
		F("wide", U64),
		F("signed", I64),
		F("huge", U128),
		F("seed", FixedBytes(2)),
		F("status", testStatus),
	)
	rec := Record{
		"owner":  solana.SystemProgramID,
		"small":  uint32(5),
		"wide":   uint64(18446744073709551615),
		"signed": int64(-9),
		"huge":   new(big.Int).Lsh(big.NewInt(1), 100),
		"seed":   []byte{0xde, 0xad},
		"status": Variant{Name: "Active", Fields: Record{"periodId": uint32(3)}},
	}
	out, err := MarshalJSON(s, rec)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	want := `{"owner":"11111111111111111111111111111111","small":5,"wide":"18446744073709551615",` +
		`"signed":"-9","huge":"1267650600228229401496703205376","seed":"3q0=",` +
		`"status":{"kind":"Active","value":{"periodId":3}}}`
	if string(out) != want {
		t.Fatalf("json = %s\nwant  %s", out, want)
	}

	back, err := UnmarshalJSON(s, out)
	if err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	if !reflect.DeepEqual(back, rec) {
		t.Fatalf("round trip = %#v", back)
	}
}

func TestJSONUnitVariantOmitsValue(t *testing.T) {
	out, err := MarshalJSON(testStatus, Variant{Name: "Ended"})
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	if string(out) != `{"kind":"Ended"}` {
		t.Fatalf("json = %s", out)
	}
	back, err := UnmarshalJSON(testStatus, out)
	if err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	if v := back.(Variant); v.Name != "Ended" || len(v.Fields) != 0 {
		t.Fatalf("round trip = %+v", v)
	}
}

func TestJSONAcceptsNumbersOrStrings(t *testing.T) {
	s := Struct(F("a", U64), F("b", U16))
	v, err := UnmarshalJSON(s, []byte(`{"a":42,"b":"7"}`))
	if err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	rec := v.(Record)
	if rec["a"] != uint64(42) || rec["b"] != uint16(7) {
		t.Fatalf("decoded %#v", rec)
	}
}

func TestJSONRejectsOutOfRange(t *testing.T) {
	s := Struct(F("b", U8))
	if _, err := UnmarshalJSON(s, []byte(`{"b":256}`)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := UnmarshalJSON(U128, []byte(`"340282366920938463463374607431768211456"`)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for 2^128, got %v", err)
	}
}

func TestJSONUnknownKind(t *testing.T) {
	_, err := UnmarshalJSON(testStatus, []byte(`{"kind":"Paused"}`))
	if !errors.Is(err, ErrUnrecognizedVariantTag) {
		t.Fatalf("expected ErrUnrecognizedVariantTag, got %v", err)
	}
}

func TestJSONMissingField(t *testing.T) {
	s := Struct(F("a", U8), F("b", U8))
	if _, err := UnmarshalJSON(s, []byte(`{"a":1}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestJSONVectorOfUnions(t *testing.T) {
	s := Vector(testStatus)
	list := []any{
		Variant{Name: "NotStarted", Fields: Record{}},
		Variant{Name: "Active", Fields: Record{"periodId": uint32(1)}},
	}
	out, err := MarshalJSON(s, list)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	if string(out) != `[{"kind":"NotStarted"},{"kind":"Active","value":{"periodId":1}}]` {
		t.Fatalf("json = %s", out)
	}
	back, err := UnmarshalJSON(s, out)
	if err != nil {
		t.Fatalf("unmarshal json: %v", err)
	}
	if !reflect.DeepEqual(back, list) {
		t.Fatalf("round trip = %#v", back)
	}
}
