package entity

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/codec"
)

// Registry is a fixed table of kinds, built once from static definitions.
type Registry struct {
	kinds  []*Kind
	byName map[string]*Kind
	byTag  map[bin.TypeID]*Kind
}

// NewRegistry indexes kinds by name and tag. Duplicate names or tags are a
// programming error and panic.
func NewRegistry(kinds ...*Kind) *Registry {
	r := &Registry{
		kinds:  append([]*Kind(nil), kinds...),
		byName: make(map[string]*Kind, len(kinds)),
		byTag:  make(map[bin.TypeID]*Kind, len(kinds)),
	}
	for _, k := range kinds {
		if _, dup := r.byName[k.Name]; dup {
			panic(fmt.Sprintf("entity: duplicate kind name %q", k.Name))
		}
		if prev, dup := r.byTag[k.Tag]; dup {
			panic(fmt.Sprintf("entity: kinds %q and %q share tag %x", prev.Name, k.Name, k.Tag[:]))
		}
		r.byName[k.Name] = k
		r.byTag[k.Tag] = k
	}
	return r
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.byName[name]
	return k, ok
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []*Kind {
	return append([]*Kind(nil), r.kinds...)
}

// Identify names the kind whose tag prefixes raw.
func (r *Registry) Identify(raw []byte) (*Kind, error) {
	if len(raw) < TagSize {
		log.Debug().Int("len", len(raw)).Msg("entity.Identify short blob")
		return nil, fmt.Errorf("entity: identify: %w", &codec.TruncatedError{Need: TagSize, Have: len(raw)})
	}
	tag := bin.TypeIDFromBytes(raw[:TagSize])
	k, ok := r.byTag[tag]
	if !ok {
		log.Debug().Hex("tag", tag[:]).Msg("entity.Identify unknown tag")
		return nil, &TypeMismatchError{Actual: tag}
	}
	log.Debug().Str("kind", k.Name).Int("len", len(raw)).Msg("entity.Identify ok")
	return k, nil
}

// Decode identifies raw and decodes its body with the matching kind.
func (r *Registry) Decode(raw []byte) (*Kind, codec.Record, error) {
	k, err := r.Identify(raw)
	if err != nil {
		return nil, nil, err
	}
	rec, err := k.Decode(raw)
	if err != nil {
		log.Debug().Err(err).Str("kind", k.Name).Msg("entity.Decode failed")
		return nil, nil, err
	}
	return k, rec, nil
}
