package codec

import (
	"fmt"
	"strings"
)

// Case is one declared alternative of a tagged union.
type Case struct {
	Name   string
	Fields *StructSchema
}

// C declares a union case carrying zero or more fields.
func C(name string, fields ...Field) Case {
	return Case{Name: name, Fields: Struct(fields...)}
}

// UnionSchema encodes a one-byte discriminant followed by the fields of the
// selected case. Discriminants are the declaration positions 0..N-1.
type UnionSchema struct {
	name   string
	cases  []Case
	byName map[string]uint8
	size   int
	fixed  bool
	min    int
}

// TaggedUnion builds a union schema. name is used in errors only.
func TaggedUnion(name string, cases ...Case) *UnionSchema {
	if len(cases) == 0 || len(cases) > 256 {
		panic(fmt.Sprintf("codec: union %s must declare 1..256 cases, got %d", name, len(cases)))
	}
	u := &UnionSchema{
		name:   name,
		cases:  append([]Case(nil), cases...),
		byName: make(map[string]uint8, len(cases)),
		fixed:  true,
	}
	for i, c := range cases {
		if _, dup := u.byName[c.Name]; dup {
			panic(fmt.Sprintf("codec: union %s declares case %q twice", name, c.Name))
		}
		u.byName[c.Name] = uint8(i)
		n, ok := c.Fields.FixedSize()
		switch {
		case !ok:
			u.fixed = false
		case i == 0:
			u.size = n
		case n != u.size:
			u.fixed = false
		}
		if m := c.Fields.minSize(); i == 0 || m < u.min {
			u.min = m
		}
	}
	u.min++
	return u
}

// Name returns the union's name.
func (u *UnionSchema) Name() string { return u.name }

// Len returns the number of declared cases.
func (u *UnionSchema) Len() int { return len(u.cases) }

// Case returns the case declared at discriminant d.
func (u *UnionSchema) Case(d uint8) (Case, bool) {
	if int(d) >= len(u.cases) {
		return Case{}, false
	}
	return u.cases[d], true
}

// Discriminant returns the discriminant declared for a case name.
func (u *UnionSchema) Discriminant(name string) (uint8, bool) {
	d, ok := u.byName[name]
	return d, ok
}

// FromTaggedObject converts the one-key interchange form into a Variant.
func (u *UnionSchema) FromTaggedObject(obj TaggedObject) (Variant, error) {
	if len(obj) != 1 {
		return Variant{}, &VariantTagError{
			Union:  u.name,
			Reason: fmt.Sprintf("tagged object must have exactly one key, got %d", len(obj)),
		}
	}
	for tag, fields := range obj {
		if _, ok := u.byName[tag]; !ok {
			return Variant{}, &VariantTagError{Union: u.name, Tag: tag}
		}
		if fields == nil {
			fields = Record{}
		}
		return Variant{Name: tag, Fields: fields}, nil
	}
	panic("unreachable")
}

func (u *UnionSchema) FixedSize() (int, bool) {
	if !u.fixed {
		return 0, false
	}
	return 1 + u.size, true
}

func (u *UnionSchema) String() string {
	names := make([]string, len(u.cases))
	for i, c := range u.cases {
		names[i] = c.Name
	}
	return u.name + "{" + strings.Join(names, " | ") + "}"
}

func (u *UnionSchema) minSize() int { return u.min }

func (u *UnionSchema) variant(v any) (Variant, error) {
	switch x := v.(type) {
	case Variant:
		return x, nil
	case *Variant:
		if x != nil {
			return *x, nil
		}
	case TaggedObject:
		return u.FromTaggedObject(x)
	}
	return Variant{}, &ValueError{Schema: u.name, Got: v}
}

func (u *UnionSchema) encode(buf []byte, off int, v any) (int, error) {
	vr, err := u.variant(v)
	if err != nil {
		return 0, err
	}
	d, ok := u.byName[vr.Name]
	if !ok {
		return 0, &VariantTagError{Union: u.name, Tag: vr.Name}
	}
	if off < 0 || len(buf)-off < 1 {
		return 0, overflow(buf, off, 1)
	}
	buf[off] = d
	fields := vr.Fields
	if fields == nil {
		fields = Record{}
	}
	n, err := u.cases[d].Fields.encode(buf, off+1, fields)
	if err != nil {
		return 0, fieldErr(u.name+"::"+vr.Name, err)
	}
	return 1 + n, nil
}

func (u *UnionSchema) decode(buf []byte, off int) (any, int, error) {
	if off < 0 || len(buf)-off < 1 {
		return nil, 0, truncated(buf, off, 1)
	}
	d := buf[off]
	if int(d) >= len(u.cases) {
		return nil, 0, &DiscriminantError{Union: u.name, Got: d, Cases: len(u.cases)}
	}
	c := u.cases[d]
	fields, n, err := c.Fields.decode(buf, off+1)
	if err != nil {
		return nil, 0, fieldErr(u.name+"::"+c.Name, err)
	}
	return Variant{Name: c.Name, Fields: fields.(Record)}, 1 + n, nil
}
