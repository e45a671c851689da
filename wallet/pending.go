package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"onecoupon/ptb"
)

// CallState is the lifecycle of a PendingCall.
type CallState string

const (
	CallBuilt     CallState = "built"
	CallSubmitted CallState = "submitted"
	CallConfirmed CallState = "confirmed"
	CallFailed    CallState = "failed"
)

// ErrAlreadySubmitted is returned when Submit is called twice.
var ErrAlreadySubmitted = errors.New("wallet: call already submitted")

// PendingCall tracks one user action from descriptor to outcome. It is
// discarded once the outcome has been shown.
type PendingCall struct {
	ID         uuid.UUID
	Descriptor *ptb.CallDescriptor
	State      CallState
	Digest     string
	Err        error
}

// NewPendingCall wraps desc in the built state.
func NewPendingCall(desc *ptb.CallDescriptor) *PendingCall {
	return &PendingCall{ID: uuid.New(), Descriptor: desc, State: CallBuilt}
}

// Submit hands the call to w and records the outcome.
func (p *PendingCall) Submit(ctx context.Context, w Wallet) (Receipt, error) {
	if p.State != CallBuilt {
		return Receipt{}, ErrAlreadySubmitted
	}
	if w == nil {
		p.State = CallFailed
		p.Err = ErrNoWallet
		return Receipt{}, ErrNoWallet
	}
	p.State = CallSubmitted
	receipt, err := w.SignAndExecute(ctx, p.Descriptor)
	if err != nil {
		p.State = CallFailed
		p.Err = err
		return Receipt{}, err
	}
	p.State = CallConfirmed
	p.Digest = receipt.Digest
	return receipt, nil
}

// Done reports whether the call reached a terminal state.
func (p *PendingCall) Done() bool {
	return p.State == CallConfirmed || p.State == CallFailed
}
