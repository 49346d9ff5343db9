// Package rpcaccess reads raw accounts over Solana JSON-RPC for the
// retrieval layer.
package rpcaccess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/observability"
	"github.com/danmuck/dslactl/internal/retrieval"
)

// MaxBatch is the node-side limit for getMultipleAccounts.
const MaxBatch = 100

const (
	methodGetAccountInfo      = "getAccountInfo"
	methodGetMultipleAccounts = "getMultipleAccounts"
)

var _ retrieval.BatchAccessor = (*Accessor)(nil)

type Option func(*Accessor)

func WithCommitment(c rpc.CommitmentType) Option {
	return func(a *Accessor) { a.commitment = c }
}

// WithTimeout bounds each RPC call. Zero leaves the caller's context alone.
func WithTimeout(d time.Duration) Option {
	return func(a *Accessor) { a.timeout = d }
}

type Accessor struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// New dials nothing; the client connects lazily on first call.
func New(endpoint string, opts ...Option) *Accessor {
	return NewWithClient(rpc.New(endpoint), opts...)
}

func NewWithClient(client *rpc.Client, opts ...Option) *Accessor {
	a := &Accessor{client: client, commitment: rpc.CommitmentConfirmed}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accessor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Accessor) GetRaw(ctx context.Context, addr solana.PublicKey) (*retrieval.RawAccount, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := a.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: a.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		observability.RecordRPC(methodGetAccountInfo, time.Since(start), true)
		return nil, nil
	}
	observability.RecordRPC(methodGetAccountInfo, time.Since(start), err == nil)
	if err != nil {
		log.Debug().Err(err).Stringer("address", addr).Msg("rpcaccess.GetRaw failed")
		return nil, fmt.Errorf("rpcaccess: %s %s: %w", methodGetAccountInfo, addr, err)
	}
	if out == nil || out.Value == nil {
		return nil, nil
	}
	return toRaw(out.Value), nil
}

// GetRawMany splits addrs into MaxBatch-sized requests and stitches the
// results back in input order.
func (a *Accessor) GetRawMany(ctx context.Context, addrs []solana.PublicKey) ([]*retrieval.RawAccount, error) {
	out := make([]*retrieval.RawAccount, 0, len(addrs))
	for lo := 0; lo < len(addrs); lo += MaxBatch {
		hi := min(lo+MaxBatch, len(addrs))
		chunk, err := a.getChunk(ctx, addrs[lo:hi])
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (a *Accessor) getChunk(ctx context.Context, addrs []solana.PublicKey) ([]*retrieval.RawAccount, error) {
	ctx, cancel := a.callContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := a.client.GetMultipleAccountsWithOpts(ctx, addrs, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: a.commitment,
	})
	observability.RecordRPC(methodGetMultipleAccounts, time.Since(start), err == nil)
	if err != nil {
		log.Debug().Err(err).Int("addresses", len(addrs)).Msg("rpcaccess.GetRawMany failed")
		return nil, fmt.Errorf("rpcaccess: %s (%d addresses): %w", methodGetMultipleAccounts, len(addrs), err)
	}
	if len(res.Value) != len(addrs) {
		return nil, fmt.Errorf("rpcaccess: %s returned %d accounts for %d addresses", methodGetMultipleAccounts, len(res.Value), len(addrs))
	}
	out := make([]*retrieval.RawAccount, len(addrs))
	for i, acct := range res.Value {
		if acct != nil {
			out[i] = toRaw(acct)
		}
	}
	return out, nil
}

func toRaw(acct *rpc.Account) *retrieval.RawAccount {
	var data []byte
	if acct.Data != nil {
		data = acct.Data.GetBinary()
	}
	return &retrieval.RawAccount{Owner: acct.Owner, Data: data}
}

// ParseCommitment maps the config spelling to an rpc commitment level.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch rpc.CommitmentType(s) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return rpc.CommitmentType(s), nil
	case "":
		return rpc.CommitmentConfirmed, nil
	}
	return "", fmt.Errorf("rpcaccess: unknown commitment %q", s)
}
