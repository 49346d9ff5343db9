package dsla

import (
	"fmt"
	"regexp"
	"strconv"
)

// ProgramError is a custom error the program returns in a failed
// transaction.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("dsla: %d %s: %s", e.Code, e.Name, e.Msg)
}

// Is matches any ProgramError with the same code.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidPrecision               = &ProgramError{6000, "InvalidPrecision", "precision is not divisible by 100"}
	ErrInvalidPeriodID                = &ProgramError{6001, "InvalidPeriodId", "period ID entered is not valid"}
	ErrAlreadyVerifiedPeriod          = &ProgramError{6002, "AlreadyVerifiedPeriod", "trying to verify an already verified period"}
	ErrDecimalConversion              = &ProgramError{6003, "DecimalConversionError", "Failed to convert to a decimal"}
	ErrCheckedOperationOverflow       = &ProgramError{6004, "CheckedOperationOverflow", "operation failed with an overflow"}
	ErrNoAvailableTokensForWithdrawal = &ProgramError{6005, "NoAvailableTokensForWithdrawal", "Not enough available tokens for withdrawal"}
	ErrCannotStakeAfterSlaEnded       = &ProgramError{6006, "CannotStakeAfterSlaEnded", "Cannot Stake After SLA has ended"}
	ErrWithdrawalIsZero               = &ProgramError{6007, "WithdrawalIsZero", "Withdrawal should be at least 1"}
	ErrSlaAlreadyInitialized          = &ProgramError{6008, "SLaAlreadyInitialized", "SLA with the same address can only be initialized once"}
	ErrNonValidGovernanceParameters   = &ProgramError{6009, "NonValidGovernanceParameters", "1 or more non Valid governance Parameters"}
	ErrSlaNotStarted                  = &ProgramError{6010, "SlaNotStarted", "Sla not started yet"}
)

var programErrors = map[uint32]*ProgramError{}

func init() {
	for _, e := range []*ProgramError{
		ErrInvalidPrecision,
		ErrInvalidPeriodID,
		ErrAlreadyVerifiedPeriod,
		ErrDecimalConversion,
		ErrCheckedOperationOverflow,
		ErrNoAvailableTokensForWithdrawal,
		ErrCannotStakeAfterSlaEnded,
		ErrWithdrawalIsZero,
		ErrSlaAlreadyInitialized,
		ErrNonValidGovernanceParameters,
		ErrSlaNotStarted,
	} {
		programErrors[e.Code] = e
	}
}

// ErrorFromCode returns the program error for code, or nil when code is
// not one of ours.
func ErrorFromCode(code uint32) *ProgramError {
	return programErrors[code]
}

var customErrRe = regexp.MustCompile(`custom program error: (0x[0-9a-fA-F]+)`)

// ErrorFromLogs scans transaction log lines for the first custom program
// error this program defines.
func ErrorFromLogs(logs []string) *ProgramError {
	for _, line := range logs {
		m := customErrRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code, err := strconv.ParseUint(m[1], 0, 32)
		if err != nil {
			continue
		}
		if e := ErrorFromCode(uint32(code)); e != nil {
			return e
		}
	}
	return nil
}
