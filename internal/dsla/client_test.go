package dsla

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/entity"
	"github.com/danmuck/dslactl/internal/retrieval"
	"github.com/danmuck/dslactl/internal/testutil/testlog"
)

type fakeAccessor struct {
	accounts map[solana.PublicKey]*retrieval.RawAccount
}

func (f *fakeAccessor) GetRaw(_ context.Context, addr solana.PublicKey) (*retrieval.RawAccount, error) {
	return f.accounts[addr], nil
}

func owned(t *testing.T, v interface{ Encode() ([]byte, error) }) *retrieval.RawAccount {
	t.Helper()
	raw, err := v.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &retrieval.RawAccount{Owner: ProgramID, Data: raw}
}

func TestClientFetch(t *testing.T) {
	testlog.Start(t)

	acc := &fakeAccessor{accounts: map[solana.PublicKey]*retrieval.RawAccount{
		key(1): owned(t, sampleSla()),
		key(2): owned(t, Lockup{AvailableTokens: 9}),
		key(3): {Owner: solana.SystemProgramID, Data: []byte{1, 2, 3}},
	}}
	c := NewClient(acc, solana.PublicKey{})
	if c.Program() != ProgramID {
		t.Fatalf("program = %s", c.Program())
	}
	ctx := context.Background()

	sla, err := c.FetchSla(ctx, key(1))
	if err != nil || sla == nil || sla.PeriodData.NPeriods != 12 {
		t.Fatalf("fetch sla = %+v, %v", sla, err)
	}

	missing, err := c.FetchSla(ctx, key(9))
	if err != nil || missing != nil {
		t.Fatalf("absent = %+v, %v", missing, err)
	}

	if _, err := c.FetchLockup(ctx, key(3)); !errors.Is(err, retrieval.ErrForeignOwnedData) {
		t.Fatalf("expected ErrForeignOwnedData, got %v", err)
	}
	if _, err := c.FetchSla(ctx, key(2)); !errors.Is(err, entity.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	locks, err := c.FetchLockupMany(ctx, []solana.PublicKey{key(2), key(9)})
	if err != nil {
		t.Fatalf("fetch many: %v", err)
	}
	if len(locks) != 2 || locks[0].AvailableTokens != 9 || locks[1] != nil {
		t.Fatalf("fetch many = %+v", locks)
	}
}

func TestClientFetchRecord(t *testing.T) {
	acc := &fakeAccessor{accounts: map[solana.PublicKey]*retrieval.RawAccount{
		key(2): owned(t, Lockup{LockedTokens: 4}),
	}}
	c := NewClient(acc, ProgramID)
	ctx := context.Background()

	k, rec, err := c.FetchRecord(ctx, "Lockup", key(2))
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}
	if k != LockupKind || rec["lockedTokens"] != uint64(4) {
		t.Fatalf("record = %s %v", k.Name, rec)
	}

	_, rec, err = c.FetchRecord(ctx, "Lockup", key(5))
	if err != nil || rec != nil {
		t.Fatalf("absent record = %v, %v", rec, err)
	}

	if _, _, err := c.FetchRecord(ctx, "Vault", key(2)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDerivedAddressesAreStable(t *testing.T) {
	sla := key(42)
	a, err := DeriveSlaAddresses(ProgramID, sla)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveSlaAddresses(ProgramID, sla)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if a != b {
		t.Fatalf("derivation not deterministic")
	}
	seen := map[solana.PublicKey]bool{}
	for _, k := range []solana.PublicKey{a.SlaAuthority, a.StatusRegistry, a.Pool, a.DslaPool, a.UtMint, a.PtMint} {
		if seen[k] {
			t.Fatalf("duplicate derived address %s", k)
		}
		seen[k] = true
	}

	provider, user, err := LockupAddresses(ProgramID, key(1), sla)
	if err != nil {
		t.Fatalf("lockups: %v", err)
	}
	if provider == user {
		t.Fatalf("provider and user lockups collide")
	}
	if _, err := GovernanceAddress(ProgramID); err != nil {
		t.Fatalf("governance: %v", err)
	}
	if _, err := ProgramDataAddress(ProgramID); err != nil {
		t.Fatalf("program data: %v", err)
	}
}
