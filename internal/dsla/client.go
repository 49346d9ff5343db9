package dsla

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/entity"
	"github.com/danmuck/dslactl/internal/retrieval"
)

var ErrUnknownKind = errors.New("dsla: unknown account kind")

// Client reads program accounts through an accessor. Every read checks
// that the account is owned by the configured program.
type Client struct {
	acc     retrieval.Accessor
	program solana.PublicKey
}

// NewClient binds acc to program. A zero program means ProgramID.
func NewClient(acc retrieval.Accessor, program solana.PublicKey) *Client {
	if program.IsZero() {
		program = ProgramID
	}
	return &Client{acc: acc, program: program}
}

func (c *Client) Program() solana.PublicKey { return c.program }

func target[T any](c *Client, k *entity.Kind, decode retrieval.Decoder[T]) retrieval.Target[T] {
	return retrieval.Target[T]{Kind: k.Name, Owner: c.program, Decode: decode}
}

func (c *Client) FetchGovernance(ctx context.Context, addr solana.PublicKey) (*Governance, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, GovernanceKind, DecodeGovernance), addr)
}

func (c *Client) FetchGovernanceMany(ctx context.Context, addrs []solana.PublicKey) ([]*Governance, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, GovernanceKind, DecodeGovernance), addrs)
}

func (c *Client) FetchSla(ctx context.Context, addr solana.PublicKey) (*Sla, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, SlaKind, DecodeSla), addr)
}

func (c *Client) FetchSlaMany(ctx context.Context, addrs []solana.PublicKey) ([]*Sla, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, SlaKind, DecodeSla), addrs)
}

func (c *Client) FetchSlaRegistry(ctx context.Context, addr solana.PublicKey) (*SlaRegistry, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, SlaRegistryKind, DecodeSlaRegistry), addr)
}

func (c *Client) FetchSlaRegistryMany(ctx context.Context, addrs []solana.PublicKey) ([]*SlaRegistry, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, SlaRegistryKind, DecodeSlaRegistry), addrs)
}

func (c *Client) FetchStatusRegistry(ctx context.Context, addr solana.PublicKey) (*StatusRegistry, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, StatusRegistryKind, DecodeStatusRegistry), addr)
}

func (c *Client) FetchStatusRegistryMany(ctx context.Context, addrs []solana.PublicKey) ([]*StatusRegistry, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, StatusRegistryKind, DecodeStatusRegistry), addrs)
}

func (c *Client) FetchSlaAuthority(ctx context.Context, addr solana.PublicKey) (*SlaAuthority, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, SlaAuthorityKind, DecodeSlaAuthority), addr)
}

func (c *Client) FetchSlaAuthorityMany(ctx context.Context, addrs []solana.PublicKey) ([]*SlaAuthority, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, SlaAuthorityKind, DecodeSlaAuthority), addrs)
}

func (c *Client) FetchLockup(ctx context.Context, addr solana.PublicKey) (*Lockup, error) {
	return retrieval.Fetch(ctx, c.acc, target(c, LockupKind, DecodeLockup), addr)
}

func (c *Client) FetchLockupMany(ctx context.Context, addrs []solana.PublicKey) ([]*Lockup, error) {
	return retrieval.FetchMany(ctx, c.acc, target(c, LockupKind, DecodeLockup), addrs)
}

// FetchRecord reads addr as the named kind and returns its dynamic body.
// A nil record with a nil error means the account is absent.
func (c *Client) FetchRecord(ctx context.Context, kindName string, addr solana.PublicKey) (*entity.Kind, codec.Record, error) {
	k, ok := Accounts.Lookup(kindName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}
	decode := func(raw []byte) (*codec.Record, error) {
		rec, err := k.Decode(raw)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	}
	rec, err := retrieval.Fetch(ctx, c.acc, target(c, k, decode), addr)
	if err != nil || rec == nil {
		return k, nil, err
	}
	return k, *rec, nil
}
