package dsla

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"
	"unicode"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/decimal"
	"github.com/danmuck/dslactl/internal/payload"
)

func snake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func TestOperationTagsAreSighashes(t *testing.T) {
	seen := map[bin.TypeID]string{}
	for _, k := range Accounts.Kinds() {
		seen[k.Tag] = k.Name
	}
	for _, op := range Operations {
		if want := bin.SighashTypeID("global", snake(op.Name)); op.Tag != want {
			t.Fatalf("%s tag = %v, want %v", op.Name, op.Tag, want)
		}
		if prev, dup := seen[op.Tag]; dup {
			t.Fatalf("%s shares tag with %s", op.Name, prev)
		}
		seen[op.Tag] = op.Name
	}
}

type metaWant struct {
	key              solana.PublicKey
	signer, writable bool
}

func checkMetas(t *testing.T, p *payload.Payload, want []metaWant) {
	t.Helper()
	if len(p.Metas) != len(want) {
		t.Fatalf("%s: %d accounts, want %d", p.Operation, len(p.Metas), len(want))
	}
	for i, w := range want {
		m := p.Metas[i]
		if m.PublicKey != w.key || m.IsSigner != w.signer || m.IsWritable != w.writable {
			t.Fatalf("%s: account %d = {%s s=%v w=%v}, want {%s s=%v w=%v}",
				p.Operation, i, m.PublicKey, m.IsSigner, m.IsWritable, w.key, w.signer, w.writable)
		}
	}
}

func TestBuildStakeUser(t *testing.T) {
	b := payload.NewBuilder(ProgramID)
	p, err := BuildStakeUser(b, 1000, StakeUserAccounts{
		Staker:             key(1),
		Sla:                key(2),
		SlaAuthority:       key(3),
		Mint:               key(4),
		Pool:               key(5),
		UtMint:             key(6),
		UtLockup:           key(7),
		StakerTokenAccount: key(8),
		StakerUtAccount:    key(9),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wantData := append(append([]byte{}, StakeUser.Tag[:]...), 0xe8, 0x03, 0, 0, 0, 0, 0, 0)
	if !bytes.Equal(p.Bytes, wantData) {
		t.Fatalf("data = %x, want %x", p.Bytes, wantData)
	}
	if p.ProgramID() != ProgramID {
		t.Fatalf("program = %s", p.ProgramID())
	}
	checkMetas(t, p, []metaWant{
		{key(1), true, true},
		{key(2), false, true},
		{key(3), false, true},
		{key(4), false, false},
		{key(5), false, true},
		{key(6), false, true},
		{key(7), false, true},
		{key(8), false, true},
		{key(9), false, true},
		{solana.TokenProgramID, false, false},
		{solana.SysVarRentPubkey, false, false},
		{solana.SystemProgramID, false, false},
	})
}

func TestSysvarOverrides(t *testing.T) {
	b := payload.NewBuilder(ProgramID)
	p, err := BuildStakeProvider(b, 1, StakeProviderAccounts{
		Sysvars: Sysvars{TokenProgram: key(0xaa), SystemProgram: key(0xbb)},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	n := len(p.Metas)
	if p.Metas[n-3].PublicKey != key(0xaa) || p.Metas[n-2].PublicKey != solana.SysVarRentPubkey || p.Metas[n-1].PublicKey != key(0xbb) {
		t.Fatalf("sysvars = %s %s %s", p.Metas[n-3].PublicKey, p.Metas[n-2].PublicKey, p.Metas[n-1].PublicKey)
	}
}

func TestZeroArgInstructions(t *testing.T) {
	b := payload.NewBuilder(ProgramID)
	p, err := BuildInitSlaRegistry(b, InitSlaRegistryAccounts{Deployer: key(1), SlaRegistry: key(2)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.Equal(p.Bytes, InitSlaRegistry.Tag[:]) {
		t.Fatalf("data = %x", p.Bytes)
	}
	checkMetas(t, p, []metaWant{
		{key(1), true, true},
		{key(2), false, true},
		{solana.SystemProgramID, false, false},
	})

	p, err = BuildInitLockupAccounts(b, InitLockupAccountsAccounts{UserProvider: key(1), Sla: key(2), PtLockup: key(3), UtLockup: key(4)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(p.Bytes) != payload.TagSize {
		t.Fatalf("data length = %d", len(p.Bytes))
	}
	checkMetas(t, p, []metaWant{
		{key(1), true, true},
		{key(2), false, false},
		{key(3), false, true},
		{key(4), false, true},
		{solana.SystemProgramID, false, false},
	})
}

func TestGovernanceInstructionsShareLayout(t *testing.T) {
	params := Governance{
		DslaDepositByPeriod:      1,
		DslaProtocolReward:       2,
		DslaValidatorReward:      3,
		DslaBurnedByVerification: 4,
		SlaDeployerRewardsRate:   decimal.New(3, 3),
		ProtocolRewardsRate:      decimal.New(15, 4),
		MaxLeverage:              decimal.New(10, 0),
	}
	b := payload.NewBuilder(ProgramID)
	initP, err := BuildInitGovernance(b, params, InitGovernanceAccounts{ProgramUpgradeAuthority: key(1), Governance: key(2), Program: ProgramID, ProgramData: key(3)})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	modP, err := BuildModifyGovernance(b, params, ModifyGovernanceAccounts{ProgramUpgradeAuthority: key(1), Governance: key(2)})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(initP.Bytes) != 8+4*8+3*decimal.Size {
		t.Fatalf("init data length = %d", len(initP.Bytes))
	}
	if !bytes.Equal(initP.Bytes[8:], modP.Bytes[8:]) {
		t.Fatalf("argument bytes differ between init and modify")
	}
	body, err := GovernanceKind.Encode(params.record())
	if err != nil {
		t.Fatalf("encode account: %v", err)
	}
	if !bytes.Equal(body[8:], initP.Bytes[8:]) {
		t.Fatalf("instruction args differ from account body")
	}
	if len(initP.Metas) != 5 || len(modP.Metas) != 3 {
		t.Fatalf("metas = %d, %d", len(initP.Metas), len(modP.Metas))
	}
}

func TestBuildDeploySla(t *testing.T) {
	b := payload.NewBuilder(ProgramID)
	args := DeploySlaArgs{
		Slo:          Slo{SloValue: decimal.New(99, 0), SloType: SloGreaterThan},
		Leverage:     decimal.New(2, 0),
		Start:        big.NewInt(1000),
		NPeriods:     3,
		PeriodLength: PeriodMonthly{},
	}
	p, err := BuildDeploySla(b, args, DeploySlaAccounts{Deployer: key(1), Sla: key(3)})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// tag + slo(13) + leverage(12) + start(16) + nPeriods(4) + Monthly(1)
	if len(p.Bytes) != 8+13+12+16+4+1 {
		t.Fatalf("data length = %d", len(p.Bytes))
	}
	if p.Bytes[len(p.Bytes)-1] != 1 {
		t.Fatalf("period length discriminant = %d", p.Bytes[len(p.Bytes)-1])
	}
	if len(p.Metas) != 17 {
		t.Fatalf("metas = %d", len(p.Metas))
	}
	if !p.Metas[0].IsSigner || !p.Metas[2].IsSigner || p.Metas[1].IsSigner {
		t.Fatalf("signers = %v %v %v", p.Metas[0].IsSigner, p.Metas[1].IsSigner, p.Metas[2].IsSigner)
	}

	args.Start = nil
	if _, err := BuildDeploySla(b, args, DeploySlaAccounts{}); !errors.Is(err, codec.ErrValueType) {
		t.Fatalf("expected ErrValueType for nil start, got %v", err)
	}
}

func TestAccountListLengths(t *testing.T) {
	b := payload.NewBuilder(ProgramID)
	cases := []struct {
		name  string
		build func() (*payload.Payload, error)
		want  int
	}{
		{"validatePeriod", func() (*payload.Payload, error) {
			return BuildValidatePeriod(b, 2, ValidatePeriodAccounts{})
		}, 16},
		{"withdrawUser", func() (*payload.Payload, error) {
			return BuildWithdrawUser(b, 5, WithdrawUserAccounts{})
		}, 17},
		{"withdrawProvider", func() (*payload.Payload, error) {
			return BuildWithdrawProvider(b, 5, WithdrawProviderAccounts{})
		}, 17},
		{"stakeProvider", func() (*payload.Payload, error) {
			return BuildStakeProvider(b, 5, StakeProviderAccounts{})
		}, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := tc.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if p.Operation != tc.name {
				t.Fatalf("operation = %s", p.Operation)
			}
			if len(p.Metas) != tc.want {
				t.Fatalf("metas = %d, want %d", len(p.Metas), tc.want)
			}
			if len(p.Bytes) != 16 {
				t.Fatalf("data length = %d, want 16", len(p.Bytes))
			}
			if !p.Metas[0].IsSigner {
				t.Fatalf("first account must sign")
			}
		})
	}
}
