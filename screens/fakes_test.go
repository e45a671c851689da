package screens

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"onecoupon/coupon"
	"onecoupon/ledger"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/wallet"
)

const (
	testAddress = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testPackage = "0x000000000000000000000000000000000000000000000000000000000000c0de"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeLedger struct {
	mu         sync.Mutex
	merchants  func(call int) []string
	coupons    []coupon.Coupon
	history    []ledger.Transaction
	balance    string
	chainID    string
	err        error
	ownedCalls int
	// block holds OwnedObjects call numbers that wait until their channel
	// is closed.
	block map[int]chan struct{}
}

func couponObject(c coupon.Coupon) ledger.Object {
	code := make([]int, len(c.Code))
	for i, b := range c.Code {
		code[i] = int(b)
	}
	content, _ := json.Marshal(map[string]interface{}{
		"id":            map[string]string{"id": c.ID},
		"code":          code,
		"value_bps":     c.ValueBps,
		"max_uses":      c.MaxUses,
		"used":          c.Used,
		"expires_at_ms": fmt.Sprint(c.ExpiresAt.UnixMilli()),
		"merchant":      c.Merchant,
	})
	return ledger.Object{
		ID:      c.ID,
		Type:    testPackage + "::coupon::Coupon",
		Owner:   ledger.Owner{Kind: ledger.OwnerAddress, Address: testAddress},
		Content: content,
	}
}

func (f *fakeLedger) Balance(context.Context, string, string) (ledger.BalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.BalanceResult{}, f.err
	}
	return ledger.BalanceResult{TotalBalance: f.balance}, nil
}

func (f *fakeLedger) OwnedObjects(_ context.Context, owner, structType, _ string, _ int) (ledger.OwnedObjectsResult, error) {
	f.mu.Lock()
	f.ownedCalls++
	call := f.ownedCalls
	gate := f.block[call]
	coupons := f.coupons
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.OwnedObjectsResult{}, f.err
	}
	var res ledger.OwnedObjectsResult
	switch {
	case strings.HasSuffix(structType, "::Merchant"):
		if f.merchants == nil {
			return res, nil
		}
		for _, id := range f.merchants(call) {
			res.Objects = append(res.Objects, ledger.Object{
				ID:    id,
				Type:  structType,
				Owner: ledger.Owner{Kind: ledger.OwnerAddress, Address: owner},
			})
		}
	case strings.HasSuffix(structType, "::Coupon"):
		for _, c := range coupons {
			res.Objects = append(res.Objects, couponObject(c))
		}
	}
	return res, nil
}

func (f *fakeLedger) TransactionHistory(context.Context, ledger.HistoryQuery) (ledger.HistoryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.HistoryResult{}, f.err
	}
	return ledger.HistoryResult{Transactions: f.history}, nil
}

func (f *fakeLedger) ChainIdentifier(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, f.err
}

type recordingWallet struct {
	mu      sync.Mutex
	calls   []*ptb.CallDescriptor
	digest  string
	failure error
	// hold, when set, parks every submission until it is closed.
	hold chan struct{}
}

func (w *recordingWallet) wallet() wallet.FuncWallet {
	return wallet.FuncWallet{Address: testAddress, SubmitFunc: func(_ context.Context, desc *ptb.CallDescriptor) (wallet.Receipt, error) {
		w.mu.Lock()
		w.calls = append(w.calls, desc)
		hold := w.hold
		w.mu.Unlock()
		if hold != nil {
			<-hold
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.failure != nil {
			return wallet.Receipt{}, w.failure
		}
		return wallet.Receipt{Digest: w.digest}, nil
	}}
}

func (w *recordingWallet) submitted() []*ptb.CallDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*ptb.CallDescriptor(nil), w.calls...)
}

func newDeps(t *testing.T, node *fakeLedger, w *recordingWallet) Deps {
	t.Helper()
	session := wallet.NewSession("testnet", "testnet", "mainnet")
	if w != nil {
		session.Connect(w.wallet())
	}
	return Deps{
		Session:  session,
		Networks: StaticNetworks(map[string]Network{"testnet": {Ledger: node, ExplorerURL: "https://onescan.cc"}}),
		Contract: ptb.Config{PackageID: testPackage, Module: "coupon"},
		CoinType: "0x2::oct::OCT",
		Reconcile: []reconcile.Option{
			reconcile.WithInterval(5 * time.Millisecond),
			reconcile.WithTimeout(60 * time.Millisecond),
		},
		Now: func() time.Time { return testNow },
	}
}
