package dsla

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/decimal"
	"github.com/danmuck/dslactl/internal/payload"
)

var amountArgs = codec.Struct(codec.F("tokenAmount", codec.U64))

var (
	InitGovernance = payload.Define("initGovernance",
		bin.TypeID{23, 241, 166, 67, 20, 30, 182, 32},
		codec.Struct(GovernanceSchema.Fields()...))
	ModifyGovernance = payload.Define("modifyGovernance",
		bin.TypeID{230, 161, 114, 89, 48, 47, 170, 48},
		codec.Struct(codec.F("governanceParameters", GovernanceSchema)))
	InitSlaRegistry = payload.Define("initSlaRegistry",
		bin.TypeID{20, 58, 193, 30, 243, 195, 230, 15},
		codec.Struct())
	StakeUser = payload.Define("stakeUser",
		bin.TypeID{145, 223, 129, 230, 185, 115, 48, 18},
		amountArgs)
	StakeProvider = payload.Define("stakeProvider",
		bin.TypeID{18, 199, 109, 78, 14, 224, 5, 119},
		amountArgs)
	ValidatePeriod = payload.Define("validatePeriod",
		bin.TypeID{204, 243, 114, 76, 3, 131, 47, 171},
		codec.Struct(codec.F("period", codec.U64)))
	WithdrawUser = payload.Define("withdrawUser",
		bin.TypeID{86, 169, 152, 107, 33, 180, 134, 115},
		amountArgs)
	WithdrawProvider = payload.Define("withdrawProvider",
		bin.TypeID{122, 6, 188, 45, 22, 219, 125, 99},
		amountArgs)
	InitLockupAccounts = payload.Define("initLockupAccounts",
		bin.TypeID{241, 139, 234, 6, 16, 68, 244, 86},
		codec.Struct())
	DeploySla = payload.Define("deploySla",
		bin.TypeID{147, 228, 145, 146, 170, 51, 48, 158},
		codec.Struct(
			codec.F("slo", SloSchema),
			codec.F("leverage", decimal.Schema),
			codec.F("start", codec.U128),
			codec.F("nPeriods", codec.U32),
			codec.F("periodLength", PeriodLengthSchema),
		))
)

// Operations lists every instruction in declaration order.
var Operations = []*payload.Operation{
	InitGovernance,
	ModifyGovernance,
	InitSlaRegistry,
	StakeUser,
	StakeProvider,
	ValidatePeriod,
	WithdrawUser,
	WithdrawProvider,
	InitLockupAccounts,
	DeploySla,
}

// Sysvars are the well-known accounts most instructions end with. Zero
// fields take the cluster defaults.
type Sysvars struct {
	TokenProgram  solana.PublicKey
	Rent          solana.PublicKey
	SystemProgram solana.PublicKey
}

func orDefault(k, def solana.PublicKey) solana.PublicKey {
	if k.IsZero() {
		return def
	}
	return k
}

func (s Sysvars) token() solana.PublicKey  { return orDefault(s.TokenProgram, solana.TokenProgramID) }
func (s Sysvars) rent() solana.PublicKey   { return orDefault(s.Rent, solana.SysVarRentPubkey) }
func (s Sysvars) system() solana.PublicKey { return orDefault(s.SystemProgram, solana.SystemProgramID) }

var (
	signerW = func(k solana.PublicKey) *solana.AccountMeta { return payload.Meta(k, true, true) }
	w       = func(k solana.PublicKey) *solana.AccountMeta { return payload.Meta(k, false, true) }
	ro      = func(k solana.PublicKey) *solana.AccountMeta { return payload.Meta(k, false, false) }
)

type InitGovernanceAccounts struct {
	ProgramUpgradeAuthority solana.PublicKey
	Governance              solana.PublicKey
	Program                 solana.PublicKey
	ProgramData             solana.PublicKey
	SystemProgram           solana.PublicKey
}

func (a InitGovernanceAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.ProgramUpgradeAuthority),
		w(a.Governance),
		ro(a.Program),
		ro(a.ProgramData),
		ro(orDefault(a.SystemProgram, solana.SystemProgramID)),
	}
}

func BuildInitGovernance(b *payload.Builder, params Governance, a InitGovernanceAccounts) (*payload.Payload, error) {
	return b.Build(InitGovernance, params.record(), a.metas())
}

type ModifyGovernanceAccounts struct {
	ProgramUpgradeAuthority solana.PublicKey
	Governance              solana.PublicKey
	SystemProgram           solana.PublicKey
}

func (a ModifyGovernanceAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.ProgramUpgradeAuthority),
		w(a.Governance),
		ro(orDefault(a.SystemProgram, solana.SystemProgramID)),
	}
}

func BuildModifyGovernance(b *payload.Builder, params Governance, a ModifyGovernanceAccounts) (*payload.Payload, error) {
	return b.Build(ModifyGovernance, codec.Record{"governanceParameters": params.record()}, a.metas())
}

type InitSlaRegistryAccounts struct {
	Deployer      solana.PublicKey
	SlaRegistry   solana.PublicKey
	SystemProgram solana.PublicKey
}

func (a InitSlaRegistryAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Deployer),
		w(a.SlaRegistry),
		ro(orDefault(a.SystemProgram, solana.SystemProgramID)),
	}
}

func BuildInitSlaRegistry(b *payload.Builder, a InitSlaRegistryAccounts) (*payload.Payload, error) {
	return b.Build(InitSlaRegistry, nil, a.metas())
}

type StakeUserAccounts struct {
	Staker             solana.PublicKey
	Sla                solana.PublicKey
	SlaAuthority       solana.PublicKey
	Mint               solana.PublicKey
	Pool               solana.PublicKey
	UtMint             solana.PublicKey
	UtLockup           solana.PublicKey
	StakerTokenAccount solana.PublicKey
	StakerUtAccount    solana.PublicKey
	Sysvars
}

func (a StakeUserAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Staker),
		w(a.Sla),
		w(a.SlaAuthority),
		ro(a.Mint),
		w(a.Pool),
		w(a.UtMint),
		w(a.UtLockup),
		w(a.StakerTokenAccount),
		w(a.StakerUtAccount),
		ro(a.token()),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildStakeUser(b *payload.Builder, tokenAmount uint64, a StakeUserAccounts) (*payload.Payload, error) {
	return b.Build(StakeUser, codec.Record{"tokenAmount": tokenAmount}, a.metas())
}

type StakeProviderAccounts struct {
	Staker             solana.PublicKey
	Sla                solana.PublicKey
	SlaAuthority       solana.PublicKey
	Mint               solana.PublicKey
	Pool               solana.PublicKey
	PtMint             solana.PublicKey
	StakerTokenAccount solana.PublicKey
	StakerPtAccount    solana.PublicKey
	PtLockup           solana.PublicKey
	Sysvars
}

func (a StakeProviderAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Staker),
		w(a.Sla),
		w(a.SlaAuthority),
		ro(a.Mint),
		w(a.Pool),
		w(a.PtMint),
		w(a.StakerTokenAccount),
		w(a.StakerPtAccount),
		w(a.PtLockup),
		ro(a.token()),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildStakeProvider(b *payload.Builder, tokenAmount uint64, a StakeProviderAccounts) (*payload.Payload, error) {
	return b.Build(StakeProvider, codec.Record{"tokenAmount": tokenAmount}, a.metas())
}

type ValidatePeriodAccounts struct {
	Validator                 solana.PublicKey
	SlaAuthority              solana.PublicKey
	StatusRegistry            solana.PublicKey
	Sla                       solana.PublicKey
	Aggregator                solana.PublicKey
	Governance                solana.PublicKey
	DslaMint                  solana.PublicKey
	DslaPool                  solana.PublicKey
	ValidatorDslaTokenAccount solana.PublicKey
	Program                   solana.PublicKey
	ProgramData               solana.PublicKey
	Protocol                  solana.PublicKey
	ProtocolTokenAccount      solana.PublicKey
	Sysvars
}

func (a ValidatePeriodAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Validator),
		w(a.SlaAuthority),
		w(a.StatusRegistry),
		w(a.Sla),
		ro(a.Aggregator),
		ro(a.Governance),
		ro(a.DslaMint),
		ro(a.DslaPool),
		w(a.ValidatorDslaTokenAccount),
		ro(a.Program),
		ro(a.ProgramData),
		ro(a.Protocol),
		ro(a.ProtocolTokenAccount),
		ro(a.token()),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildValidatePeriod(b *payload.Builder, period uint64, a ValidatePeriodAccounts) (*payload.Payload, error) {
	return b.Build(ValidatePeriod, codec.Record{"period": period}, a.metas())
}

type WithdrawUserAccounts struct {
	Withdrawer             solana.PublicKey
	Sla                    solana.PublicKey
	SlaAuthority           solana.PublicKey
	WithdrawerTokenAccount solana.PublicKey
	WithdrawerUtAccount    solana.PublicKey
	Mint                   solana.PublicKey
	Pool                   solana.PublicKey
	UtMint                 solana.PublicKey
	UtLockup               solana.PublicKey
	DeployerTokenAccount   solana.PublicKey
	ProtocolTokenAccount   solana.PublicKey
	Governance             solana.PublicKey
	Program                solana.PublicKey
	ProgramData            solana.PublicKey
	Sysvars
}

func (a WithdrawUserAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Withdrawer),
		w(a.Sla),
		w(a.SlaAuthority),
		w(a.WithdrawerTokenAccount),
		w(a.WithdrawerUtAccount),
		ro(a.Mint),
		w(a.Pool),
		ro(a.UtMint),
		ro(a.UtLockup),
		ro(a.DeployerTokenAccount),
		ro(a.ProtocolTokenAccount),
		ro(a.Governance),
		ro(a.token()),
		ro(a.Program),
		ro(a.ProgramData),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildWithdrawUser(b *payload.Builder, tokenAmount uint64, a WithdrawUserAccounts) (*payload.Payload, error) {
	return b.Build(WithdrawUser, codec.Record{"tokenAmount": tokenAmount}, a.metas())
}

type WithdrawProviderAccounts struct {
	Withdrawer             solana.PublicKey
	Sla                    solana.PublicKey
	SlaAuthority           solana.PublicKey
	WithdrawerTokenAccount solana.PublicKey
	WithdrawerPtAccount    solana.PublicKey
	PtLockup               solana.PublicKey
	Mint                   solana.PublicKey
	Pool                   solana.PublicKey
	PtMint                 solana.PublicKey
	Governance             solana.PublicKey
	Program                solana.PublicKey
	ProgramData            solana.PublicKey
	ProtocolTokenAccount   solana.PublicKey
	DeployerTokenAccount   solana.PublicKey
	Sysvars
}

func (a WithdrawProviderAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Withdrawer),
		w(a.Sla),
		w(a.SlaAuthority),
		w(a.WithdrawerTokenAccount),
		w(a.WithdrawerPtAccount),
		w(a.PtLockup),
		w(a.Mint),
		w(a.Pool),
		w(a.PtMint),
		ro(a.Governance),
		ro(a.token()),
		ro(a.Program),
		ro(a.ProgramData),
		w(a.ProtocolTokenAccount),
		w(a.DeployerTokenAccount),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildWithdrawProvider(b *payload.Builder, tokenAmount uint64, a WithdrawProviderAccounts) (*payload.Payload, error) {
	return b.Build(WithdrawProvider, codec.Record{"tokenAmount": tokenAmount}, a.metas())
}

type InitLockupAccountsAccounts struct {
	UserProvider  solana.PublicKey
	Sla           solana.PublicKey
	PtLockup      solana.PublicKey
	UtLockup      solana.PublicKey
	SystemProgram solana.PublicKey
}

func (a InitLockupAccountsAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.UserProvider),
		ro(a.Sla),
		w(a.PtLockup),
		w(a.UtLockup),
		ro(orDefault(a.SystemProgram, solana.SystemProgramID)),
	}
}

func BuildInitLockupAccounts(b *payload.Builder, a InitLockupAccountsAccounts) (*payload.Payload, error) {
	return b.Build(InitLockupAccounts, nil, a.metas())
}

type DeploySlaArgs struct {
	Slo          Slo
	Leverage     decimal.Decimal
	Start        *big.Int
	NPeriods     uint32
	PeriodLength PeriodLength
}

func (d DeploySlaArgs) record() codec.Record {
	return codec.Record{
		"slo":          d.Slo.Record(),
		"leverage":     d.Leverage.Record(),
		"start":        d.Start,
		"nPeriods":     d.NPeriods,
		"periodLength": variantOf(d.PeriodLength),
	}
}

type DeploySlaAccounts struct {
	Deployer                 solana.PublicKey
	SlaRegistry              solana.PublicKey
	Sla                      solana.PublicKey
	SlaAuthority             solana.PublicKey
	StatusRegistry           solana.PublicKey
	Mint                     solana.PublicKey
	Pool                     solana.PublicKey
	DslaMint                 solana.PublicKey
	DslaPool                 solana.PublicKey
	DeployerDslaTokenAccount solana.PublicKey
	Governance               solana.PublicKey
	UtMint                   solana.PublicKey
	PtMint                   solana.PublicKey
	Aggregator               solana.PublicKey
	Sysvars
}

// The new Sla account signs alongside the deployer.
func (a DeploySlaAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		signerW(a.Deployer),
		w(a.SlaRegistry),
		signerW(a.Sla),
		w(a.SlaAuthority),
		w(a.StatusRegistry),
		ro(a.Mint),
		w(a.Pool),
		ro(a.DslaMint),
		w(a.DslaPool),
		w(a.DeployerDslaTokenAccount),
		ro(a.Governance),
		w(a.UtMint),
		w(a.PtMint),
		ro(a.Aggregator),
		ro(a.token()),
		ro(a.rent()),
		ro(a.system()),
	}
}

func BuildDeploySla(b *payload.Builder, args DeploySlaArgs, a DeploySlaAccounts) (*payload.Payload, error) {
	return b.Build(DeploySla, args.record(), a.metas())
}
