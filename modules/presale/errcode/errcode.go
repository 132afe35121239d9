// Package errcode defines the rejection codes of the presale ledger. The
// numeric values are the contract's on-chain exit codes and are part of the
// public surface: integrators match on them when a message bounces.
package errcode

import "fmt"

// ExitError is a message-level rejection. The message's effects are rolled
// back and the attached value is bounced to the sender.
type ExitError struct {
	Code uint16
	Name string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s (exit code %d)", e.Name, e.Code)
}

func newExitError(code uint16, name string) *ExitError {
	e := &ExitError{Code: code, Name: name}
	byCode[code] = e
	return e
}

var byCode = make(map[uint16]*ExitError)

var (
	ErrBadWallet              = newExitError(4796, "BAD_WALLET")
	ErrLowBalance             = newExitError(5025, "LOW_BALANCE")
	ErrAttachMoreTon          = newExitError(8654, "ATTACH_MORE_TON")
	ErrJettonWalletNotSet     = newExitError(10762, "JETTON_WALLET_NOT_SET")
	ErrNothingToClaim         = newExitError(21744, "NOTHING_TO_CLAIM")
	ErrJettonWalletAlreadySet = newExitError(21886, "JETTON_WALLET_ALREADY_SET")
	ErrOnlyRestoreAllowed     = newExitError(26941, "ONLY_RESTORE_ALLOWED")
	ErrPendingNotExpired      = newExitError(27218, "PENDING_NOT_EXPIRED")
	ErrBadAmount              = newExitError(29392, "BAD_AMOUNT")
	ErrKeepMinBalance         = newExitError(32846, "KEEP_MIN_BALANCE")
	ErrClaimPendingTryLater   = newExitError(35582, "CLAIM_PENDING_TRY_LATER")
	ErrNoPending              = newExitError(36337, "NO_PENDING")
	ErrNotOwnerOrUser         = newExitError(39897, "NOT_OWNER_OR_USER")
	ErrClaimableUnderflow     = newExitError(41005, "INTERNAL_CLAIMABLE_UNDERFLOW")
	ErrNotOwner               = newExitError(47989, "NOT_OWNER")
	ErrClaimableExists        = newExitError(48656, "CLAIMABLE_EXISTS")
	ErrBadQid                 = newExitError(52835, "BAD_QID")
	ErrPendingExists          = newExitError(59380, "PENDING_EXISTS")
)

// FromCode resolves a rejection by its numeric code.
func FromCode(code uint16) (*ExitError, bool) {
	e, ok := byCode[code]
	return e, ok
}
