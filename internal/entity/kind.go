// Package entity frames persisted account bodies with their 8-byte kind tag.
package entity

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/danmuck/dslactl/internal/codec"
)

// TagSize is the length of the kind tag preceding every body.
const TagSize = 8

var ErrTypeMismatch = errors.New("entity: kind tag mismatch")

// TypeMismatchError reports a blob whose leading tag is not the expected
// one. Kind is empty when no registered kind matched at all.
type TypeMismatchError struct {
	Kind     string
	Expected bin.TypeID
	Actual   bin.TypeID
}

func (e *TypeMismatchError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("entity: no registered kind has tag %x", e.Actual[:])
	}
	return fmt.Sprintf("entity: %s: tag mismatch: want %x, got %x", e.Kind, e.Expected[:], e.Actual[:])
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// Kind binds a static tag to the body schema of one persisted entity.
type Kind struct {
	Name string
	Tag  bin.TypeID
	Body *codec.StructSchema
}

// Define declares an entity kind. The tag is data, never derived here.
func Define(name string, tag bin.TypeID, body *codec.StructSchema) *Kind {
	return &Kind{Name: name, Tag: tag, Body: body}
}

// Matches reports whether raw starts with this kind's tag.
func (k *Kind) Matches(raw []byte) bool {
	return len(raw) >= TagSize && bytes.Equal(raw[:TagSize], k.Tag[:])
}

// Decode validates the tag and decodes the body from the rest of raw.
// Bytes after the body are reserved space and ignored.
func (k *Kind) Decode(raw []byte) (codec.Record, error) {
	if len(raw) < TagSize {
		return nil, fmt.Errorf("entity: %s: %w", k.Name, &codec.TruncatedError{Need: TagSize, Have: len(raw)})
	}
	if !k.Matches(raw) {
		return nil, &TypeMismatchError{Kind: k.Name, Expected: k.Tag, Actual: bin.TypeIDFromBytes(raw[:TagSize])}
	}
	v, _, err := codec.Decode(k.Body, raw[TagSize:], 0)
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", k.Name, err)
	}
	return v.(codec.Record), nil
}

// Encode renders tag || body.
func (k *Kind) Encode(rec codec.Record) ([]byte, error) {
	body, err := codec.Marshal(k.Body, rec)
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", k.Name, err)
	}
	out := make([]byte, 0, TagSize+len(body))
	out = append(out, k.Tag[:]...)
	return append(out, body...), nil
}

// ToJSON projects a body record. The tag is not part of the JSON form.
func (k *Kind) ToJSON(rec codec.Record) ([]byte, error) {
	out, err := codec.MarshalJSON(k.Body, rec)
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", k.Name, err)
	}
	return out, nil
}

// FromJSON parses the form produced by ToJSON.
func (k *Kind) FromJSON(data []byte) (codec.Record, error) {
	v, err := codec.UnmarshalJSON(k.Body, data)
	if err != nil {
		return nil, fmt.Errorf("entity: %s: %w", k.Name, err)
	}
	return v.(codec.Record), nil
}
