package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON renders v under schema s. Integers of 64 bits and wider become
// decimal strings, narrower ones stay numbers, public keys become base58,
// fixed byte arrays become base64 and unions become {"kind", "value"}.
// Struct keys keep their declared order.
func MarshalJSON(s Schema, v any) ([]byte, error) {
	tree, err := s.toJSON(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// UnmarshalJSON parses data produced by MarshalJSON back into a value of s.
func UnmarshalJSON(s Schema, data []byte) (any, error) {
	return s.fromJSON(data)
}

type member struct {
	key   string
	value any
}

// orderedObject marshals as a JSON object with keys in slice order.
type orderedObject []member

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *StructSchema) toJSON(v any) (any, error) {
	rec, err := s.record(v)
	if err != nil {
		return nil, err
	}
	out := make(orderedObject, 0, len(s.fields))
	for _, f := range s.fields {
		fv, ok := rec[f.Name]
		if !ok {
			return nil, &MissingFieldError{Field: f.Name}
		}
		jv, err := f.Schema.toJSON(fv)
		if err != nil {
			return nil, fieldErr(f.Name, err)
		}
		out = append(out, member{key: f.Name, value: jv})
	}
	return out, nil
}

func (s *StructSchema) fromJSON(raw []byte) (any, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("struct: %w", err)
	}
	rec := make(Record, len(s.fields))
	for _, f := range s.fields {
		fr, ok := obj[f.Name]
		if !ok {
			return nil, &MissingFieldError{Field: f.Name}
		}
		v, err := f.Schema.fromJSON(fr)
		if err != nil {
			return nil, fieldErr(f.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func (v *VectorSchema) toJSON(val any) (any, error) {
	items, ok := val.([]any)
	if !ok && val != nil {
		return nil, &ValueError{Schema: v.String(), Got: val}
	}
	out := make([]any, len(items))
	for i, item := range items {
		jv, err := v.elem.toJSON(item)
		if err != nil {
			return nil, fieldErr(fmt.Sprintf("[%d]", i), err)
		}
		out[i] = jv
	}
	return out, nil
}

func (v *VectorSchema) fromJSON(raw []byte) (any, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("%s: %w", v, err)
	}
	items := make([]any, len(arr))
	for i, r := range arr {
		item, err := v.elem.fromJSON(r)
		if err != nil {
			return nil, fieldErr(fmt.Sprintf("[%d]", i), err)
		}
		items[i] = item
	}
	return items, nil
}

// variantJSON is the {kind, value?} projection of a union value.
type variantJSON struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (u *UnionSchema) toJSON(v any) (any, error) {
	vr, err := u.variant(v)
	if err != nil {
		return nil, err
	}
	d, ok := u.byName[vr.Name]
	if !ok {
		return nil, &VariantTagError{Union: u.name, Tag: vr.Name}
	}
	c := u.cases[d]
	if len(c.Fields.fields) == 0 {
		return orderedObject{{key: "kind", value: c.Name}}, nil
	}
	fields, err := c.Fields.toJSON(vr.Fields)
	if err != nil {
		return nil, fieldErr(u.name+"::"+c.Name, err)
	}
	return orderedObject{{key: "kind", value: c.Name}, {key: "value", value: fields}}, nil
}

func (u *UnionSchema) fromJSON(raw []byte) (any, error) {
	var vj variantJSON
	if err := json.Unmarshal(raw, &vj); err != nil {
		return nil, fmt.Errorf("%s: %w", u.name, err)
	}
	d, ok := u.byName[vj.Kind]
	if !ok {
		return nil, &VariantTagError{Union: u.name, Tag: vj.Kind}
	}
	c := u.cases[d]
	if len(c.Fields.fields) == 0 {
		return Variant{Name: c.Name, Fields: Record{}}, nil
	}
	if len(vj.Value) == 0 {
		return nil, fieldErr(u.name+"::"+c.Name, &MissingFieldError{Field: "value"})
	}
	fields, err := c.Fields.fromJSON(vj.Value)
	if err != nil {
		return nil, fieldErr(u.name+"::"+c.Name, err)
	}
	return Variant{Name: c.Name, Fields: fields.(Record)}, nil
}
