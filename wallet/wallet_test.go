package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"onecoupon/crypto"
	"onecoupon/ledger"
	"onecoupon/ptb"
)

type stubNode struct {
	moveErr  error
	execErr  error
	result   ledger.ExecuteResult
	txBytes  ledger.TxBytes
	signer   string
	budget   uint64
	executed [][]byte
}

func (n *stubNode) MoveCall(_ context.Context, signer string, _ *ptb.CallDescriptor, gasBudget uint64) (ledger.TxBytes, error) {
	n.signer = signer
	n.budget = gasBudget
	if n.moveErr != nil {
		return nil, n.moveErr
	}
	return n.txBytes, nil
}

func (n *stubNode) Execute(_ context.Context, _ ledger.TxBytes, sigs [][]byte) (ledger.ExecuteResult, error) {
	n.executed = sigs
	if n.execErr != nil {
		return ledger.ExecuteResult{}, n.execErr
	}
	return n.result, nil
}

func redeemDescriptor(t *testing.T) *ptb.CallDescriptor {
	t.Helper()
	desc, err := ptb.Build(ptb.Config{PackageID: "0xpkg", Module: "coupon"}, ptb.RedeemFields{CouponID: "0xc1", OrderTotal: 1})
	require.NoError(t, err)
	return desc
}

func TestKeyWalletSignsAndExecutes(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	node := &stubNode{
		txBytes: ledger.TxBytes{0x00, 0x01, 0x02},
		result:  ledger.ExecuteResult{Digest: "D1", Status: ledger.StatusSuccess},
	}
	w, err := NewKeyWallet(key, node, WithGasBudget(7_000_000))
	require.NoError(t, err)

	receipt, err := w.SignAndExecute(context.Background(), redeemDescriptor(t))
	require.NoError(t, err)
	require.Equal(t, "D1", receipt.Digest)
	require.Equal(t, key.PubKey().Address().String(), node.signer)
	require.Equal(t, uint64(7_000_000), node.budget)
	require.Len(t, node.executed, 1)
	require.True(t, crypto.VerifyTransaction(node.txBytes, node.executed[0]))
	require.True(t, w.Account().Connected())
}

func TestKeyWalletSurfacesFailuresVerbatim(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	node := &stubNode{
		txBytes: ledger.TxBytes{0x01},
		result:  ledger.ExecuteResult{Digest: "D2", Status: ledger.StatusFailure, Error: "MoveAbort(coupon, 3)"},
	}
	w, err := NewKeyWallet(key, node)
	require.NoError(t, err)
	_, err = w.SignAndExecute(context.Background(), redeemDescriptor(t))
	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	require.Equal(t, "MoveAbort(coupon, 3)", submitErr.Message)
	require.Equal(t, "D2", submitErr.Digest)

	node = &stubNode{moveErr: &ledger.RPCError{Code: -32002, Message: "Merchant not found"}}
	w, err = NewKeyWallet(key, node)
	require.NoError(t, err)
	_, err = w.SignAndExecute(context.Background(), redeemDescriptor(t))
	require.Equal(t, "Merchant not found", FailureMessage(err))
	require.Nil(t, node.executed)
}

func TestSession(t *testing.T) {
	s := NewSession("testnet", "testnet", "mainnet")
	require.False(t, s.Connected())
	_, err := s.Wallet()
	require.ErrorIs(t, err, ErrNoWallet)

	s.Connect(FuncWallet{Address: "0xabc"})
	require.True(t, s.Connected())
	require.Equal(t, "0xabc", s.Account().Address)

	require.NoError(t, s.SwitchNetwork("mainnet"))
	require.Equal(t, "mainnet", s.Network())
	require.True(t, s.Connected(), "switching network keeps the wallet")
	require.Error(t, s.SwitchNetwork("devnet"))
	require.Equal(t, "mainnet", s.Network())

	s.Disconnect()
	require.False(t, s.Connected())
}

func TestPendingCallLifecycle(t *testing.T) {
	desc := redeemDescriptor(t)
	call := NewPendingCall(desc)
	require.Equal(t, CallBuilt, call.State)

	var seen CallState
	w := FuncWallet{Address: "0xabc", SubmitFunc: func(context.Context, *ptb.CallDescriptor) (Receipt, error) {
		seen = call.State
		return Receipt{Digest: "D3"}, nil
	}}
	receipt, err := call.Submit(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, CallSubmitted, seen)
	require.Equal(t, CallConfirmed, call.State)
	require.Equal(t, "D3", receipt.Digest)
	require.True(t, call.Done())

	_, err = call.Submit(context.Background(), w)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	failed := NewPendingCall(desc)
	rejected := errors.New("user rejected")
	_, err = failed.Submit(context.Background(), FuncWallet{SubmitFunc: func(context.Context, *ptb.CallDescriptor) (Receipt, error) {
		return Receipt{}, rejected
	}})
	require.ErrorIs(t, err, rejected)
	require.Equal(t, CallFailed, failed.State)
	require.Equal(t, "user rejected", FailureMessage(failed.Err))
}
