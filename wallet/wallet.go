// Package wallet provides the signing capability used by the screens: a
// wallet signs and submits a prepared call and reports either a transaction
// digest or the failure message verbatim.
package wallet

import (
	"context"
	"errors"

	"onecoupon/coupon"
	"onecoupon/ptb"
)

// ErrNoWallet is returned when an action needs a connected wallet.
var ErrNoWallet = errors.New("wallet: not connected")

// Receipt is the outcome of a successful submission.
type Receipt struct {
	Digest string
}

// SubmitError carries a wallet rejection or contract failure. Message is
// shown to the user unchanged.
type SubmitError struct {
	Digest  string
	Message string
}

func (e *SubmitError) Error() string {
	return e.Message
}

// Wallet captures what the client requires from a signer.
type Wallet interface {
	Account() coupon.Account
	SignAndExecute(ctx context.Context, desc *ptb.CallDescriptor) (Receipt, error)
}

// FuncWallet adapts callback functions to the Wallet interface.
type FuncWallet struct {
	Address    string
	SubmitFunc func(ctx context.Context, desc *ptb.CallDescriptor) (Receipt, error)
}

// Account reports the configured address as connected.
func (w FuncWallet) Account() coupon.Account {
	if w.Address == "" {
		return coupon.Account{Status: coupon.Disconnected}
	}
	return coupon.Account{Address: w.Address, Status: coupon.Connected}
}

// SignAndExecute delegates to the configured callback.
func (w FuncWallet) SignAndExecute(ctx context.Context, desc *ptb.CallDescriptor) (Receipt, error) {
	if w.SubmitFunc == nil {
		return Receipt{}, &SubmitError{Message: "wallet does not support signing"}
	}
	return w.SubmitFunc(ctx, desc)
}

// FailureMessage extracts the user-facing message of a submission error.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var submitErr *SubmitError
	if errors.As(err, &submitErr) {
		return submitErr.Message
	}
	return err.Error()
}
