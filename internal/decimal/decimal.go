// Package decimal carries the fixed-point value used by the program's
// thresholds and ratios: an i64 mantissa shifted right by a u32 scale.
package decimal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/dslactl/internal/codec"
)

// Size is the encoded length: 8-byte mantissa then 4-byte scale.
const Size = 12

var ErrMalformedDecimal = errors.New("decimal: malformed decimal string")

// MalformedError reports a mantissa string that is not a base-10 i64.
type MalformedError struct {
	Input  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("decimal: malformed mantissa %q: %s", e.Input, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedDecimal }

// Schema is the wire layout of a Decimal.
var Schema = codec.Struct(
	codec.F("mantissa", codec.I64),
	codec.F("scale", codec.U32),
)

// Decimal denotes Mantissa × 10^-Scale. Values are never normalized, so
// {10, 1} and {1, 0} compare unequal.
type Decimal struct {
	Mantissa int64
	Scale    uint32
}

func New(mantissa int64, scale uint32) Decimal {
	return Decimal{Mantissa: mantissa, Scale: scale}
}

// MaxPlainScale is the largest scale String renders positionally.
const MaxPlainScale = 64

// String shifts the decimal point Scale places left without rounding.
// Scales above MaxPlainScale render as mantissa "e-" scale.
func (d Decimal) String() string {
	if d.Scale > MaxPlainScale {
		return strconv.FormatInt(d.Mantissa, 10) + "e-" + strconv.FormatUint(uint64(d.Scale), 10)
	}
	neg := d.Mantissa < 0
	mag := uint64(d.Mantissa)
	if neg {
		mag = -mag
	}
	digits := strconv.FormatUint(mag, 10)
	scale := int(d.Scale)
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		cut := len(digits) - scale
		digits = digits[:cut] + "." + digits[cut:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// CanonicalPair returns the JSON-safe (mantissa string, scale) form.
func (d Decimal) CanonicalPair() (string, uint32) {
	return strconv.FormatInt(d.Mantissa, 10), d.Scale
}

// FromCanonicalPair parses the form produced by CanonicalPair.
func FromCanonicalPair(mantissa string, scale uint32) (Decimal, error) {
	if mantissa == "" {
		return Decimal{}, &MalformedError{Input: mantissa, Reason: "empty"}
	}
	m, err := strconv.ParseInt(mantissa, 10, 64)
	if err != nil {
		var ne *strconv.NumError
		reason := err.Error()
		if errors.As(err, &ne) {
			reason = ne.Err.Error()
		}
		return Decimal{}, &MalformedError{Input: mantissa, Reason: reason}
	}
	return Decimal{Mantissa: m, Scale: scale}, nil
}

type pairJSON struct {
	Mantissa string `json:"mantissa"`
	Scale    uint32 `json:"scale"`
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	m, s := d.CanonicalPair()
	return json.Marshal(pairJSON{Mantissa: m, Scale: s})
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	var p pairJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	v, err := FromCanonicalPair(p.Mantissa, p.Scale)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Record converts d to the codec's dynamic struct form.
func (d Decimal) Record() codec.Record {
	return codec.Record{"mantissa": d.Mantissa, "scale": d.Scale}
}

// FromRecord reads a Decimal from a Record decoded with Schema.
func FromRecord(rec codec.Record) (Decimal, error) {
	r := codec.Read(rec)
	d := Decimal{Mantissa: r.Int64("mantissa"), Scale: r.Uint32("scale")}
	if err := r.Err(); err != nil {
		return Decimal{}, fmt.Errorf("decimal: %w", err)
	}
	return d, nil
}

func (d Decimal) MarshalBinary() ([]byte, error) {
	return codec.Marshal(Schema, d.Record())
}

func (d *Decimal) UnmarshalBinary(data []byte) error {
	v, _, err := codec.Decode(Schema, data, 0)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	out, err := FromRecord(v.(codec.Record))
	if err != nil {
		return err
	}
	*d = out
	return nil
}
