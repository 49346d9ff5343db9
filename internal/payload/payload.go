// Package payload assembles instruction data (operation tag || encoded
// arguments) together with the ordered account list the program expects.
package payload

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/observability"
)

// TagSize is the length of the operation tag that prefixes the data.
const TagSize = 8

const (
	DefaultScratchSize    = 1000
	DefaultMaxScratchSize = 64 * 1024
)

var ErrArgumentsTooLarge = errors.New("payload: encoded arguments exceed scratch limit")

// Operation is one remote call: a static tag and its argument layout.
type Operation struct {
	Name string
	Tag  bin.TypeID
	Args *codec.StructSchema
}

func Define(name string, tag bin.TypeID, args *codec.StructSchema) *Operation {
	return &Operation{Name: name, Tag: tag, Args: args}
}

// Payload is a ready-to-sign instruction. Metas keep caller order:
// position, not name, binds a key to its role.
type Payload struct {
	Operation string
	Program   solana.PublicKey
	Bytes     []byte
	Metas     []*solana.AccountMeta
}

var _ solana.Instruction = (*Payload)(nil)

func (p *Payload) ProgramID() solana.PublicKey     { return p.Program }
func (p *Payload) Accounts() []*solana.AccountMeta { return p.Metas }
func (p *Payload) Data() ([]byte, error)           { return p.Bytes, nil }

// Meta is shorthand for one account entry.
func Meta(key solana.PublicKey, signer, writable bool) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: key, IsSigner: signer, IsWritable: writable}
}

type Option func(*Builder)

// WithScratchSize sets the initial argument arena size.
func WithScratchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.scratch = n
		}
	}
}

// WithMaxScratchSize caps arena growth.
func WithMaxScratchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxScratch = n
		}
	}
}

// Builder encodes arguments for one program. It holds no per-call state
// and is safe for concurrent use.
type Builder struct {
	program    solana.PublicKey
	scratch    int
	maxScratch int
}

func NewBuilder(program solana.PublicKey, opts ...Option) *Builder {
	b := &Builder{
		program:    program,
		scratch:    DefaultScratchSize,
		maxScratch: DefaultMaxScratchSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxScratch < b.scratch {
		b.maxScratch = b.scratch
	}
	return b
}

func (b *Builder) Program() solana.PublicKey { return b.program }

// Build encodes args into a scratch arena and keeps only the bytes the
// encoder reported. The arena doubles on overflow up to the configured
// maximum. accounts is copied as given: no reordering, no dedup.
func (b *Builder) Build(op *Operation, args codec.Record, accounts []*solana.AccountMeta) (*Payload, error) {
	if args == nil {
		args = codec.Record{}
	}
	n, arena, err := b.encodeArgs(op, args)
	observability.RecordPayload(op.Name, TagSize+n, err)
	if err != nil {
		log.Debug().Err(err).Str("operation", op.Name).Msg("payload.Build failed")
		return nil, err
	}

	data := make([]byte, 0, TagSize+n)
	data = append(data, op.Tag[:]...)
	data = append(data, arena[:n]...)

	metas := make([]*solana.AccountMeta, len(accounts))
	copy(metas, accounts)

	log.Debug().
		Str("operation", op.Name).
		Int("data_bytes", len(data)).
		Int("accounts", len(metas)).
		Msg("payload.Build ok")
	return &Payload{Operation: op.Name, Program: b.program, Bytes: data, Metas: metas}, nil
}

func (b *Builder) encodeArgs(op *Operation, args codec.Record) (int, []byte, error) {
	size := b.scratch
	for {
		arena := make([]byte, size)
		n, err := codec.Encode(op.Args, args, arena, 0)
		if err == nil {
			return n, arena, nil
		}
		if !errors.Is(err, codec.ErrBufferOverflow) {
			return 0, nil, fmt.Errorf("payload: %s: %w", op.Name, err)
		}
		if size >= b.maxScratch {
			return 0, nil, fmt.Errorf("payload: %s: %w (limit %d bytes)", op.Name, ErrArgumentsTooLarge, b.maxScratch)
		}
		size = min(size*2, b.maxScratch)
	}
}
