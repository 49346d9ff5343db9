// Package dsla binds the DSLA service-level agreement program: its account
// layouts, enum types, instruction builders and custom error codes.
package dsla

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the deployed program address.
var ProgramID = solana.MustPublicKeyFromBase58("HaTDBm8Ps7P6xBWFq5YbRUAnSwvCZNTceTuMB2VC3azv")

// PDA seeds used by the program.
const (
	SeedSlaAuthority   = "sla-authority"
	SeedStatusRegistry = "status-registry"
	SeedDslaPool       = "dsla-vault"
	SeedPool           = "vault"
	SeedUtMint         = "ut-mint"
	SeedPtMint         = "pt-mint"
	SeedGovernance     = "governance"
	SeedLockupProvider = "provider-lockup"
	SeedLockupUser     = "user-lockup"
)

// SlaAddresses are the program-derived accounts tied to one SLA.
type SlaAddresses struct {
	SlaAuthority   solana.PublicKey
	StatusRegistry solana.PublicKey
	Pool           solana.PublicKey
	DslaPool       solana.PublicKey
	UtMint         solana.PublicKey
	PtMint         solana.PublicKey
}

func derive(program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("dsla: derive address: %w", err)
	}
	return addr, nil
}

// DeriveSlaAddresses computes every PDA seeded by sla.
func DeriveSlaAddresses(program, sla solana.PublicKey) (SlaAddresses, error) {
	var out SlaAddresses
	targets := []struct {
		seed string
		dst  *solana.PublicKey
	}{
		{SeedSlaAuthority, &out.SlaAuthority},
		{SeedStatusRegistry, &out.StatusRegistry},
		{SeedPool, &out.Pool},
		{SeedDslaPool, &out.DslaPool},
		{SeedUtMint, &out.UtMint},
		{SeedPtMint, &out.PtMint},
	}
	for _, t := range targets {
		addr, err := derive(program, []byte(t.seed), sla[:])
		if err != nil {
			return SlaAddresses{}, err
		}
		*t.dst = addr
	}
	return out, nil
}

// GovernanceAddress is the singleton governance PDA.
func GovernanceAddress(program solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(SeedGovernance))
}

// LockupAddresses returns the provider-side and user-side lockup PDAs of
// owner for one SLA.
func LockupAddresses(program, owner, sla solana.PublicKey) (provider, user solana.PublicKey, err error) {
	provider, err = derive(program, owner[:], []byte(SeedLockupProvider), sla[:])
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	user, err = derive(program, owner[:], []byte(SeedLockupUser), sla[:])
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return provider, user, nil
}

// ProgramDataAddress is the upgradeable-loader data account of program.
func ProgramDataAddress(program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{program[:]}, solana.BPFLoaderUpgradeableProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("dsla: derive program data: %w", err)
	}
	return addr, nil
}
