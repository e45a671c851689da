package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"onecoupon/ptb"
)

// RequestType controls how long the node waits before answering an execute.
const RequestType = "WaitForLocalExecution"

// TxBytes is an unsigned transaction built by the node.
type TxBytes []byte

// Base64 renders the bytes the way the node expects them.
func (t TxBytes) Base64() string {
	return base64.StdEncoding.EncodeToString(t)
}

// MoveCall asks the node to build the transaction for desc with signer as
// sender and gas owner.
func (c *Client) MoveCall(ctx context.Context, signer string, desc *ptb.CallDescriptor, gasBudget uint64) (TxBytes, error) {
	if desc == nil {
		return nil, fmt.Errorf("ledger: call descriptor required")
	}
	if !Enabled(signer, desc.Package) {
		return nil, ErrDisabled
	}
	if gasBudget == 0 {
		gasBudget = ptb.DefaultGasBudget
	}
	params := []interface{}{
		signer,
		desc.Package,
		desc.Module,
		desc.Function,
		[]string{},
		desc.JSONArguments(),
		nil,
		strconv.FormatUint(gasBudget, 10),
	}
	var raw struct {
		TxBytes string `json:"txBytes"`
	}
	if err := c.call(ctx, "unsafe_moveCall", params, &raw); err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw.TxBytes))
	if err != nil {
		return nil, fmt.Errorf("ledger: decode tx bytes: %w", err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("ledger: node returned empty tx bytes")
	}
	return TxBytes(decoded), nil
}

// ExecuteResult is the outcome of an executed transaction.
type ExecuteResult struct {
	Digest string
	Status string
	Error  string
}

// Succeeded reports whether effects recorded success.
func (r ExecuteResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Execute submits signed transaction bytes and waits for local execution.
func (c *Client) Execute(ctx context.Context, txBytes TxBytes, signatures [][]byte) (ExecuteResult, error) {
	if len(txBytes) == 0 {
		return ExecuteResult{}, fmt.Errorf("ledger: tx bytes required")
	}
	if len(signatures) == 0 {
		return ExecuteResult{}, fmt.Errorf("ledger: at least one signature required")
	}
	sigs := make([]string, len(signatures))
	for i, sig := range signatures {
		sigs[i] = base64.StdEncoding.EncodeToString(sig)
	}
	params := []interface{}{
		txBytes.Base64(),
		sigs,
		map[string]bool{"showEffects": true},
		RequestType,
	}
	var raw struct {
		Digest  string           `json:"digest"`
		Effects *effectsResponse `json:"effects"`
	}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &raw); err != nil {
		return ExecuteResult{}, err
	}
	result := ExecuteResult{Digest: raw.Digest}
	if raw.Effects != nil {
		result.Status = raw.Effects.Status.Status
		result.Error = raw.Effects.Status.Error
	}
	return result, nil
}
