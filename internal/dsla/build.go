package dsla

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/danmuck/dslactl/internal/codec"
	"github.com/danmuck/dslactl/internal/payload"
)

var ErrUnknownOperation = errors.New("dsla: unknown operation")

type accountList interface {
	metas() []*solana.AccountMeta
}

// metasFromJSON fills an accounts struct from an object of base58
// addresses keyed by role. Unknown roles are rejected; absent ones stay
// zero and sysvars take their defaults.
func metasFromJSON[T accountList](raw []byte) ([]*solana.AccountMeta, error) {
	var a T
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("accounts: %w", err)
		}
	}
	return a.metas(), nil
}

var accountLists = map[string]func([]byte) ([]*solana.AccountMeta, error){
	InitGovernance.Name:     metasFromJSON[InitGovernanceAccounts],
	ModifyGovernance.Name:   metasFromJSON[ModifyGovernanceAccounts],
	InitSlaRegistry.Name:    metasFromJSON[InitSlaRegistryAccounts],
	StakeUser.Name:          metasFromJSON[StakeUserAccounts],
	StakeProvider.Name:      metasFromJSON[StakeProviderAccounts],
	ValidatePeriod.Name:     metasFromJSON[ValidatePeriodAccounts],
	WithdrawUser.Name:       metasFromJSON[WithdrawUserAccounts],
	WithdrawProvider.Name:   metasFromJSON[WithdrawProviderAccounts],
	InitLockupAccounts.Name: metasFromJSON[InitLockupAccountsAccounts],
	DeploySla.Name:          metasFromJSON[DeploySlaAccounts],
}

// OperationByName looks up an instruction by its declared name.
func OperationByName(name string) (*payload.Operation, bool) {
	for _, op := range Operations {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// BuildFromJSON builds the named instruction from its arguments in JSON
// projection form and its accounts as an object keyed by role. The account
// order is the one the typed builders use.
func BuildFromJSON(b *payload.Builder, opName string, args, accounts []byte) (*payload.Payload, error) {
	op, ok := OperationByName(opName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, opName)
	}
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	v, err := codec.UnmarshalJSON(op.Args, args)
	if err != nil {
		return nil, fmt.Errorf("%s args: %w", op.Name, err)
	}
	rec, ok := v.(codec.Record)
	if !ok {
		return nil, &codec.ValueError{Schema: op.Args.String(), Got: v}
	}
	metas, err := accountLists[op.Name](accounts)
	if err != nil {
		return nil, fmt.Errorf("%s %w", op.Name, err)
	}
	return b.Build(op, rec, metas)
}
