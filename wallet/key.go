package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"onecoupon/coupon"
	"onecoupon/crypto"
	"onecoupon/ledger"
	"onecoupon/observability"
	"onecoupon/observability/logging"
	"onecoupon/ptb"
)

// Node is the subset of the ledger client a KeyWallet drives.
type Node interface {
	MoveCall(ctx context.Context, signer string, desc *ptb.CallDescriptor, gasBudget uint64) (ledger.TxBytes, error)
	Execute(ctx context.Context, txBytes ledger.TxBytes, signatures [][]byte) (ledger.ExecuteResult, error)
}

// KeyWallet signs locally with a secp256k1 key and submits through a node.
type KeyWallet struct {
	key       *crypto.PrivateKey
	address   string
	node      Node
	gasBudget uint64
	logger    *slog.Logger
	metrics   *observability.ClientMetrics
}

// KeyOption configures a KeyWallet.
type KeyOption func(*KeyWallet)

// WithGasBudget overrides the gas budget attached to every call.
func WithGasBudget(budget uint64) KeyOption {
	return func(w *KeyWallet) {
		if budget > 0 {
			w.gasBudget = budget
		}
	}
}

// WithLogger sets the wallet logger.
func WithLogger(logger *slog.Logger) KeyOption {
	return func(w *KeyWallet) {
		w.logger = logger
	}
}

// WithMetrics records submissions on m.
func WithMetrics(m *observability.ClientMetrics) KeyOption {
	return func(w *KeyWallet) {
		w.metrics = m
	}
}

// NewKeyWallet binds key to node.
func NewKeyWallet(key *crypto.PrivateKey, node Node, opts ...KeyOption) (*KeyWallet, error) {
	if key == nil {
		return nil, fmt.Errorf("wallet: signing key required")
	}
	if node == nil {
		return nil, fmt.Errorf("wallet: ledger node required")
	}
	w := &KeyWallet{
		key:       key,
		address:   key.PubKey().Address().String(),
		node:      node,
		gasBudget: ptb.DefaultGasBudget,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.logger == nil {
		w.logger = logging.Discard()
	}
	return w, nil
}

// Account returns the key's address as a connected account.
func (w *KeyWallet) Account() coupon.Account {
	return coupon.Account{Address: w.address, Status: coupon.Connected}
}

// SignAndExecute builds desc on the node, signs the intent digest and
// executes it. Node and contract failures come back as *SubmitError.
func (w *KeyWallet) SignAndExecute(ctx context.Context, desc *ptb.CallDescriptor) (receipt Receipt, err error) {
	if desc == nil {
		return Receipt{}, fmt.Errorf("wallet: call descriptor required")
	}
	defer func() {
		w.metrics.RecordSubmission(desc.Function, err)
	}()

	txBytes, err := w.node.MoveCall(ctx, w.address, desc, w.gasBudget)
	if err != nil {
		return Receipt{}, submitFailure(err)
	}
	sig, err := w.key.SignTransaction(txBytes)
	if err != nil {
		return Receipt{}, fmt.Errorf("wallet: sign: %w", err)
	}
	res, err := w.node.Execute(ctx, txBytes, [][]byte{sig})
	if err != nil {
		return Receipt{}, submitFailure(err)
	}
	if !res.Succeeded() {
		msg := res.Error
		if msg == "" {
			msg = "transaction failed"
		}
		w.logger.Warn("transaction failed", "digest", res.Digest, "method", desc.Function, "error", msg)
		return Receipt{}, &SubmitError{Digest: res.Digest, Message: msg}
	}
	w.logger.Info("transaction executed", "digest", res.Digest, "method", desc.Function)
	return Receipt{Digest: res.Digest}, nil
}

func submitFailure(err error) error {
	var rpcErr *ledger.RPCError
	if errors.As(err, &rpcErr) {
		return &SubmitError{Message: rpcErr.Message}
	}
	return &SubmitError{Message: err.Error()}
}
