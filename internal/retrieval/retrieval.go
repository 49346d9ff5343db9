// Package retrieval fetches raw account blobs through an injected accessor,
// checks program ownership and hands the bytes to a typed decoder.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dslactl/internal/observability"
)

var ErrForeignOwnedData = errors.New("retrieval: account not owned by program")

// ForeignOwnedError reports an account owned by a different program. Its
// data is never decoded.
type ForeignOwnedError struct {
	Address  solana.PublicKey
	Expected solana.PublicKey
	Actual   solana.PublicKey
}

func (e *ForeignOwnedError) Error() string {
	return fmt.Sprintf("retrieval: account %s owned by %s, want %s", e.Address, e.Actual, e.Expected)
}

func (e *ForeignOwnedError) Unwrap() error { return ErrForeignOwnedData }

// RawAccount is what an accessor returns for a present account.
type RawAccount struct {
	Owner solana.PublicKey
	Data  []byte
}

// Accessor reads one account. A nil RawAccount with a nil error means the
// account does not exist.
type Accessor interface {
	GetRaw(ctx context.Context, addr solana.PublicKey) (*RawAccount, error)
}

// BatchAccessor reads many accounts in one round trip. The result has one
// slot per address, nil where absent.
type BatchAccessor interface {
	Accessor
	GetRawMany(ctx context.Context, addrs []solana.PublicKey) ([]*RawAccount, error)
}

// Decoder turns an owned account blob into T.
type Decoder[T any] func(raw []byte) (*T, error)

// Target names what is being fetched, for errors, logs and metrics.
type Target[T any] struct {
	Kind   string
	Owner  solana.PublicKey
	Decode Decoder[T]
}

// Fetch reads addr and decodes it. It returns (nil, nil) when the account
// is absent.
func Fetch[T any](ctx context.Context, acc Accessor, target Target[T], addr solana.PublicKey) (*T, error) {
	raw, err := acc.GetRaw(ctx, addr)
	if err != nil {
		observability.RecordFetch(target.Kind, observability.OutcomeError)
		return nil, fmt.Errorf("retrieval: %s %s: %w", target.Kind, addr, err)
	}
	return decodeOne(target, addr, raw)
}

// FetchMany reads addrs and returns results in input order, nil where an
// account is absent. The first ownership or decode failure, by input
// position, fails the whole call.
func FetchMany[T any](ctx context.Context, acc Accessor, target Target[T], addrs []solana.PublicKey) ([]*T, error) {
	if len(addrs) == 0 {
		return []*T{}, nil
	}
	raws, err := readMany(ctx, acc, addrs)
	if err != nil {
		observability.RecordFetch(target.Kind, observability.OutcomeError)
		return nil, fmt.Errorf("retrieval: %s batch of %d: %w", target.Kind, len(addrs), err)
	}
	out := make([]*T, len(addrs))
	for i, raw := range raws {
		v, err := decodeOne(target, addrs[i], raw)
		if err != nil {
			return nil, fmt.Errorf("retrieval: index %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func decodeOne[T any](target Target[T], addr solana.PublicKey, raw *RawAccount) (*T, error) {
	if raw == nil {
		observability.RecordFetch(target.Kind, observability.OutcomeAbsent)
		log.Debug().Str("kind", target.Kind).Stringer("address", addr).Msg("retrieval absent")
		return nil, nil
	}
	if !raw.Owner.Equals(target.Owner) {
		observability.RecordFetch(target.Kind, observability.OutcomeForeign)
		log.Debug().
			Str("kind", target.Kind).
			Stringer("address", addr).
			Stringer("owner", raw.Owner).
			Msg("retrieval foreign owner")
		return nil, &ForeignOwnedError{Address: addr, Expected: target.Owner, Actual: raw.Owner}
	}
	v, err := target.Decode(raw.Data)
	if err != nil {
		observability.RecordFetch(target.Kind, observability.OutcomeError)
		return nil, fmt.Errorf("retrieval: %s %s: %w", target.Kind, addr, err)
	}
	observability.RecordFetch(target.Kind, observability.OutcomeFound)
	log.Debug().Str("kind", target.Kind).Stringer("address", addr).Int("bytes", len(raw.Data)).Msg("retrieval found")
	return v, nil
}

func readMany(ctx context.Context, acc Accessor, addrs []solana.PublicKey) ([]*RawAccount, error) {
	if batch, ok := acc.(BatchAccessor); ok {
		raws, err := batch.GetRawMany(ctx, addrs)
		if err != nil {
			return nil, err
		}
		if len(raws) != len(addrs) {
			return nil, fmt.Errorf("accessor returned %d accounts for %d addresses", len(raws), len(addrs))
		}
		return raws, nil
	}
	return fanOut(ctx, acc, addrs)
}

// MaxConcurrentReads bounds the GetRaw calls fanOut keeps in flight.
const MaxConcurrentReads = 16

// fanOut issues one GetRaw per address, at most MaxConcurrentReads at a
// time. The first failure cancels the calls still in flight and the ones
// not yet started.
func fanOut(ctx context.Context, acc Accessor, addrs []solana.PublicKey) ([]*RawAccount, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	raws := make([]*RawAccount, len(addrs))
	errs := make([]error, len(addrs))
	sem := make(chan struct{}, MaxConcurrentReads)
	var wg sync.WaitGroup
	for i, addr := range addrs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, addr solana.PublicKey) {
			defer func() {
				<-sem
				wg.Done()
			}()
			raw, err := acc.GetRaw(ctx, addr)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			raws[i] = raw
		}(i, addr)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s: %w", addrs[i], err)
		}
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", addrs[i], err)
		}
	}
	return raws, nil
}
