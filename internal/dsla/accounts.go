package dsla

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/decimal"
	"github.com/danmuck/dslactl/internal/entity"
	"github.com/danmuck/dslactl/internal/observability"
)

var (
	GovernanceTag     = bin.TypeID{18, 143, 88, 13, 73, 217, 47, 49}
	SlaTag            = bin.TypeID{93, 177, 43, 102, 221, 228, 221, 169}
	SlaRegistryTag    = bin.TypeID{95, 29, 91, 241, 143, 43, 156, 245}
	StatusRegistryTag = bin.TypeID{2, 194, 176, 5, 232, 56, 183, 193}
	SlaAuthorityTag   = bin.TypeID{188, 127, 254, 192, 35, 167, 17, 71}
	LockupTag         = bin.TypeID{1, 45, 32, 32, 57, 81, 88, 67}
)

var GovernanceSchema = codec.Struct(
	codec.F("dslaDepositByPeriod", codec.U64),
	codec.F("dslaProtocolReward", codec.U64),
	codec.F("dslaValidatorReward", codec.U64),
	codec.F("dslaBurnedByVerification", codec.U64),
	codec.F("slaDeployerRewardsRate", decimal.Schema),
	codec.F("protocolRewardsRate", decimal.Schema),
	codec.F("maxLeverage", decimal.Schema),
)

var (
	GovernanceKind = entity.Define("Governance", GovernanceTag, GovernanceSchema)
	SlaKind        = entity.Define("Sla", SlaTag, codec.Struct(
		codec.F("slaDeployerAddress", codec.PublicKey),
		codec.F("messengerAddress", codec.PublicKey),
		codec.F("aggregatorAddress", codec.PublicKey),
		codec.F("slo", SloSchema),
		codec.F("leverage", decimal.Schema),
		codec.F("mintAddress", codec.PublicKey),
		codec.F("periodData", PeriodGeneratorSchema),
		codec.F("providerPoolSize", codec.U128),
		codec.F("userPoolSize", codec.U128),
		codec.F("utSupply", codec.U128),
		codec.F("ptSupply", codec.U128),
	))
	SlaRegistryKind = entity.Define("SlaRegistry", SlaRegistryTag, codec.Struct(
		codec.F("slaAccountAddresses", codec.Vector(codec.PublicKey)),
	))
	StatusRegistryKind = entity.Define("StatusRegistry", StatusRegistryTag, codec.Struct(
		codec.F("statusRegistry", codec.Vector(StatusSchema)),
		codec.F("bump", codec.U8),
	))
	SlaAuthorityKind = entity.Define("SlaAuthority", SlaAuthorityTag, codec.Struct())
	LockupKind       = entity.Define("Lockup", LockupTag, codec.Struct(
		codec.F("availableTokens", codec.U64),
		codec.F("lockedTokensPrev", codec.U64),
		codec.F("lockedTokens", codec.U64),
		codec.F("lockedFromPeriodId", codec.U64),
	))
)

// Accounts identifies any blob the program persists.
var Accounts = entity.NewRegistry(
	GovernanceKind,
	SlaKind,
	SlaRegistryKind,
	StatusRegistryKind,
	SlaAuthorityKind,
	LockupKind,
)

// KindAuto asks DecodeAccount to identify the kind from the tag.
const KindAuto = "auto"

// DecodeAccount decodes raw as the named kind, or identifies it by tag
// when kindName is empty or KindAuto.
func DecodeAccount(kindName string, raw []byte) (*entity.Kind, codec.Record, error) {
	if kindName == "" || kindName == KindAuto {
		k, rec, err := Accounts.Decode(raw)
		label := KindAuto
		if k != nil {
			label = k.Name
		}
		observability.RecordDecode(label, err)
		return k, rec, err
	}
	k, ok := Accounts.Lookup(kindName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}
	rec, err := k.Decode(raw)
	observability.RecordDecode(k.Name, err)
	return k, rec, err
}

func decodeAccount[T any](k *entity.Kind, raw []byte, from func(codec.Record) (T, error)) (*T, error) {
	rec, err := k.Decode(raw)
	if err == nil {
		var v T
		if v, err = from(rec); err == nil {
			observability.RecordDecode(k.Name, nil)
			return &v, nil
		}
		err = fmt.Errorf("dsla: %s: %w", k.Name, err)
	}
	observability.RecordDecode(k.Name, err)
	return nil, err
}

func unmarshalAccount[T any](k *entity.Kind, data []byte, from func(codec.Record) (T, error), dst *T) error {
	rec, err := k.FromJSON(data)
	if err != nil {
		return err
	}
	v, err := from(rec)
	if err != nil {
		return fmt.Errorf("dsla: %s: %w", k.Name, err)
	}
	*dst = v
	return nil
}

// Governance holds the protocol-wide reward parameters.
type Governance struct {
	DslaDepositByPeriod      uint64
	DslaProtocolReward       uint64
	DslaValidatorReward      uint64
	DslaBurnedByVerification uint64
	SlaDeployerRewardsRate   decimal.Decimal
	ProtocolRewardsRate      decimal.Decimal
	MaxLeverage              decimal.Decimal
}

func (g Governance) record() codec.Record {
	return codec.Record{
		"dslaDepositByPeriod":      g.DslaDepositByPeriod,
		"dslaProtocolReward":       g.DslaProtocolReward,
		"dslaValidatorReward":      g.DslaValidatorReward,
		"dslaBurnedByVerification": g.DslaBurnedByVerification,
		"slaDeployerRewardsRate":   g.SlaDeployerRewardsRate.Record(),
		"protocolRewardsRate":      g.ProtocolRewardsRate.Record(),
		"maxLeverage":              g.MaxLeverage.Record(),
	}
}

func governanceFromRecord(rec codec.Record) (Governance, error) {
	r := codec.Read(rec)
	g := Governance{
		DslaDepositByPeriod:      r.Uint64("dslaDepositByPeriod"),
		DslaProtocolReward:       r.Uint64("dslaProtocolReward"),
		DslaValidatorReward:      r.Uint64("dslaValidatorReward"),
		DslaBurnedByVerification: r.Uint64("dslaBurnedByVerification"),
	}
	for _, f := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"slaDeployerRewardsRate", &g.SlaDeployerRewardsRate},
		{"protocolRewardsRate", &g.ProtocolRewardsRate},
		{"maxLeverage", &g.MaxLeverage},
	} {
		d, err := decimal.FromRecord(r.Record(f.name))
		r.Fail(f.name, err)
		*f.dst = d
	}
	return g, r.Err()
}

func DecodeGovernance(raw []byte) (*Governance, error) {
	return decodeAccount(GovernanceKind, raw, governanceFromRecord)
}

func (g Governance) Encode() ([]byte, error) { return GovernanceKind.Encode(g.record()) }

func (g Governance) MarshalJSON() ([]byte, error) { return GovernanceKind.ToJSON(g.record()) }

func (g *Governance) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(GovernanceKind, data, governanceFromRecord, g)
}

// Sla is one deployed service-level agreement.
type Sla struct {
	SlaDeployerAddress solana.PublicKey
	MessengerAddress   solana.PublicKey
	AggregatorAddress  solana.PublicKey
	Slo                Slo
	Leverage           decimal.Decimal
	MintAddress        solana.PublicKey
	PeriodData         PeriodGenerator
	ProviderPoolSize   *big.Int
	UserPoolSize       *big.Int
	UtSupply           *big.Int
	PtSupply           *big.Int
}

func (s Sla) record() codec.Record {
	return codec.Record{
		"slaDeployerAddress": s.SlaDeployerAddress,
		"messengerAddress":   s.MessengerAddress,
		"aggregatorAddress":  s.AggregatorAddress,
		"slo":                s.Slo.Record(),
		"leverage":           s.Leverage.Record(),
		"mintAddress":        s.MintAddress,
		"periodData":         s.PeriodData.Record(),
		"providerPoolSize":   s.ProviderPoolSize,
		"userPoolSize":       s.UserPoolSize,
		"utSupply":           s.UtSupply,
		"ptSupply":           s.PtSupply,
	}
}

func slaFromRecord(rec codec.Record) (Sla, error) {
	r := codec.Read(rec)
	s := Sla{
		SlaDeployerAddress: r.PublicKey("slaDeployerAddress"),
		MessengerAddress:   r.PublicKey("messengerAddress"),
		AggregatorAddress:  r.PublicKey("aggregatorAddress"),
		MintAddress:        r.PublicKey("mintAddress"),
		ProviderPoolSize:   r.BigInt("providerPoolSize"),
		UserPoolSize:       r.BigInt("userPoolSize"),
		UtSupply:           r.BigInt("utSupply"),
		PtSupply:           r.BigInt("ptSupply"),
	}
	var err error
	s.Slo, err = SloFromRecord(r.Record("slo"))
	r.Fail("slo", err)
	s.Leverage, err = decimal.FromRecord(r.Record("leverage"))
	r.Fail("leverage", err)
	s.PeriodData, err = PeriodGeneratorFromRecord(r.Record("periodData"))
	r.Fail("periodData", err)
	return s, r.Err()
}

func DecodeSla(raw []byte) (*Sla, error) { return decodeAccount(SlaKind, raw, slaFromRecord) }

func (s Sla) Encode() ([]byte, error) { return SlaKind.Encode(s.record()) }

func (s Sla) MarshalJSON() ([]byte, error) { return SlaKind.ToJSON(s.record()) }

func (s *Sla) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(SlaKind, data, slaFromRecord, s)
}

// SlaRegistry lists every SLA deployed through the program.
type SlaRegistry struct {
	SlaAccountAddresses []solana.PublicKey
}

func (s SlaRegistry) record() codec.Record {
	items := make([]any, len(s.SlaAccountAddresses))
	for i, k := range s.SlaAccountAddresses {
		items[i] = k
	}
	return codec.Record{"slaAccountAddresses": items}
}

func slaRegistryFromRecord(rec codec.Record) (SlaRegistry, error) {
	r := codec.Read(rec)
	items := r.List("slaAccountAddresses")
	if err := r.Err(); err != nil {
		return SlaRegistry{}, err
	}
	out := SlaRegistry{SlaAccountAddresses: make([]solana.PublicKey, len(items))}
	for i, item := range items {
		k, ok := item.(solana.PublicKey)
		if !ok {
			return SlaRegistry{}, fmt.Errorf("slaAccountAddresses[%d]: %w", i, &codec.ValueError{Schema: "publicKey", Got: item})
		}
		out.SlaAccountAddresses[i] = k
	}
	return out, nil
}

func DecodeSlaRegistry(raw []byte) (*SlaRegistry, error) {
	return decodeAccount(SlaRegistryKind, raw, slaRegistryFromRecord)
}

func (s SlaRegistry) Encode() ([]byte, error) { return SlaRegistryKind.Encode(s.record()) }

func (s SlaRegistry) MarshalJSON() ([]byte, error) { return SlaRegistryKind.ToJSON(s.record()) }

func (s *SlaRegistry) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(SlaRegistryKind, data, slaRegistryFromRecord, s)
}

// StatusRegistry records the verification outcome of every period of one
// SLA, indexed by period id.
type StatusRegistry struct {
	StatusRegistry []Status
	Bump           uint8
}

func (s StatusRegistry) record() codec.Record {
	items := make([]any, len(s.StatusRegistry))
	for i, st := range s.StatusRegistry {
		items[i] = variantOf(st)
	}
	return codec.Record{"statusRegistry": items, "bump": s.Bump}
}

func statusRegistryFromRecord(rec codec.Record) (StatusRegistry, error) {
	r := codec.Read(rec)
	items := r.List("statusRegistry")
	out := StatusRegistry{Bump: r.Uint8("bump")}
	if err := r.Err(); err != nil {
		return StatusRegistry{}, err
	}
	out.StatusRegistry = make([]Status, len(items))
	for i, item := range items {
		v, ok := item.(codec.Variant)
		if !ok {
			return StatusRegistry{}, fmt.Errorf("statusRegistry[%d]: %w", i, &codec.ValueError{Schema: "Status", Got: item})
		}
		st, err := StatusFromVariant(v)
		if err != nil {
			return StatusRegistry{}, fmt.Errorf("statusRegistry[%d]: %w", i, err)
		}
		out.StatusRegistry[i] = st
	}
	return out, nil
}

func DecodeStatusRegistry(raw []byte) (*StatusRegistry, error) {
	return decodeAccount(StatusRegistryKind, raw, statusRegistryFromRecord)
}

func (s StatusRegistry) Encode() ([]byte, error) { return StatusRegistryKind.Encode(s.record()) }

func (s StatusRegistry) MarshalJSON() ([]byte, error) {
	return StatusRegistryKind.ToJSON(s.record())
}

func (s *StatusRegistry) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(StatusRegistryKind, data, statusRegistryFromRecord, s)
}

// SlaAuthority carries no data; only its tag and address matter.
type SlaAuthority struct{}

func slaAuthorityFromRecord(codec.Record) (SlaAuthority, error) { return SlaAuthority{}, nil }

func DecodeSlaAuthority(raw []byte) (*SlaAuthority, error) {
	return decodeAccount(SlaAuthorityKind, raw, slaAuthorityFromRecord)
}

func (SlaAuthority) Encode() ([]byte, error) { return SlaAuthorityKind.Encode(codec.Record{}) }

func (SlaAuthority) MarshalJSON() ([]byte, error) { return SlaAuthorityKind.ToJSON(codec.Record{}) }

func (s *SlaAuthority) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(SlaAuthorityKind, data, slaAuthorityFromRecord, s)
}

// Lockup tracks a staker's position tokens for one SLA.
type Lockup struct {
	AvailableTokens    uint64
	LockedTokensPrev   uint64
	LockedTokens       uint64
	LockedFromPeriodID uint64
}

func (l Lockup) record() codec.Record {
	return codec.Record{
		"availableTokens":    l.AvailableTokens,
		"lockedTokensPrev":   l.LockedTokensPrev,
		"lockedTokens":       l.LockedTokens,
		"lockedFromPeriodId": l.LockedFromPeriodID,
	}
}

func lockupFromRecord(rec codec.Record) (Lockup, error) {
	r := codec.Read(rec)
	l := Lockup{
		AvailableTokens:    r.Uint64("availableTokens"),
		LockedTokensPrev:   r.Uint64("lockedTokensPrev"),
		LockedTokens:       r.Uint64("lockedTokens"),
		LockedFromPeriodID: r.Uint64("lockedFromPeriodId"),
	}
	return l, r.Err()
}

func DecodeLockup(raw []byte) (*Lockup, error) {
	return decodeAccount(LockupKind, raw, lockupFromRecord)
}

func (l Lockup) Encode() ([]byte, error) { return LockupKind.Encode(l.record()) }

func (l Lockup) MarshalJSON() ([]byte, error) { return LockupKind.ToJSON(l.record()) }

func (l *Lockup) UnmarshalJSON(data []byte) error {
	return unmarshalAccount(LockupKind, data, lockupFromRecord, l)
}
