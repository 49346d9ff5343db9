package codec

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedBuffer            = errors.New("codec: truncated buffer")
	ErrBufferOverflow             = errors.New("codec: buffer overflow")
	ErrUnknownVariantDiscriminant = errors.New("codec: unknown variant discriminant")
	ErrUnrecognizedVariantTag     = errors.New("codec: unrecognized variant tag")
	ErrValueType                  = errors.New("codec: value type mismatch")
	ErrOutOfRange                 = errors.New("codec: value out of range")
	ErrMissingField               = errors.New("codec: missing field")
)

// TruncatedError reports a decode that ran past the end of its buffer.
type TruncatedError struct {
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("codec: truncated buffer: need %d bytes at offset %d, have %d", e.Need, e.Offset, e.Have)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncatedBuffer }

// OverflowError reports an encode that would write past the end of its buffer.
type OverflowError struct {
	Need int
	Have int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("codec: buffer overflow: need %d bytes, have %d", e.Need, e.Have)
}

func (e *OverflowError) Unwrap() error { return ErrBufferOverflow }

// DiscriminantError reports a union discriminant byte with no declared case.
type DiscriminantError struct {
	Union string
	Got   uint8
	Cases int
}

func (e *DiscriminantError) Error() string {
	return fmt.Sprintf("codec: %s: unknown variant discriminant %d (declared 0..%d)", e.Union, e.Got, e.Cases-1)
}

func (e *DiscriminantError) Unwrap() error { return ErrUnknownVariantDiscriminant }

// VariantTagError reports a variant name, or tagged object, that matches no
// declared case.
type VariantTagError struct {
	Union  string
	Tag    string
	Reason string
}

func (e *VariantTagError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("codec: %s: %s", e.Union, e.Reason)
	}
	return fmt.Sprintf("codec: %s: unrecognized variant tag %q", e.Union, e.Tag)
}

func (e *VariantTagError) Unwrap() error { return ErrUnrecognizedVariantTag }

// ValueError reports a Go value whose type does not fit the schema.
type ValueError struct {
	Schema string
	Got    any
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("codec: %s cannot hold value of type %T", e.Schema, e.Got)
}

func (e *ValueError) Unwrap() error { return ErrValueType }

// RangeError reports an integer that does not fit its declared width.
type RangeError struct {
	Schema string
	Value  string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("codec: %s out of range: %s", e.Schema, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// MissingFieldError indicates a struct field absent from a Record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("codec: missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

func fieldErr(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}

func truncated(buf []byte, off, need int) error {
	return &TruncatedError{Offset: off, Need: need, Have: max(len(buf)-off, 0)}
}

func overflow(buf []byte, off, need int) error {
	return &OverflowError{Need: off + need, Have: len(buf)}
}
