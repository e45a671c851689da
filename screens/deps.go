// Package screens is the view layer. Each screen is a pure projection of
// {connection, query results, form state} into a view struct plus intent
// methods. Screens never share state: cross-screen effects happen because
// every screen re-queries the ledger.
package screens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"onecoupon/faucet"
	"onecoupon/ledger"
	"onecoupon/observability/logging"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/wallet"
)

// Blocking messages rendered in place of an action whose prerequisites are
// missing.
const (
	MsgConnectIssue    = "Please connect your wallet to issue coupons."
	MsgConnectCoupons  = "Please connect your wallet to view your coupons."
	MsgConnectFaucet   = "Please connect your wallet to request test tokens."
	MsgConnectActivity = "Please connect your wallet to view transaction history."
	MsgConnectFirst    = "Please connect your wallet first"
	MsgNoPackage       = "Contract package is not configured"
	MsgNoMerchant      = "Register as a merchant to issue coupons"
	MsgNoFaucet        = "No faucet is configured for this network"
)

var (
	ErrNotConnected   = errors.New("screens: wallet not connected")
	ErrNoPackage      = errors.New("screens: contract package not configured")
	ErrNoMerchant     = errors.New("screens: no merchant object owned")
	ErrMerchantExists = errors.New("screens: merchant already registered")
	ErrNoFaucet       = errors.New("screens: faucet not configured")
	ErrBusy           = errors.New("screens: action already in progress")
	ErrNoDialog       = errors.New("screens: no redeem dialog open")
	ErrNotRedeemable  = errors.New("screens: coupon is not redeemable")
	ErrUnknownCoupon  = errors.New("screens: coupon not found")
	ErrInvalidTotal   = errors.New("screens: order total must be a positive OCT amount")
	ErrNotTimedOut    = errors.New("screens: registration is not waiting for a decision")
	// ErrRegistrationUnsettled refuses a second registration while an
	// earlier one timed out without a decision.
	ErrRegistrationUnsettled = errors.New("screens: earlier registration timed out; check again or continue")
	ErrUnknownNetwork = errors.New("screens: network not configured")
)

// Ledger is the read surface the screens query.
type Ledger interface {
	Balance(ctx context.Context, owner, coinType string) (ledger.BalanceResult, error)
	OwnedObjects(ctx context.Context, owner, structType, cursor string, limit int) (ledger.OwnedObjectsResult, error)
	TransactionHistory(ctx context.Context, q ledger.HistoryQuery) (ledger.HistoryResult, error)
	ChainIdentifier(ctx context.Context) (string, error)
}

// Network bundles the collaborators bound to one network.
type Network struct {
	Ledger      Ledger
	Faucet      *faucet.Gate
	ExplorerURL string
}

// Networks resolves collaborators by network name.
type Networks func(name string) (Network, error)

// StaticNetworks serves a fixed set of networks.
func StaticNetworks(nets map[string]Network) Networks {
	return func(name string) (Network, error) {
		n, ok := nets[name]
		if !ok {
			return Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
		}
		return n, nil
	}
}

// Deps are the explicit dependencies shared by every screen. They are built
// once at the application root.
type Deps struct {
	Session  *wallet.Session
	Networks Networks
	Contract ptb.Config
	CoinType string

	// Reconcile configures the merchant registration loop.
	Reconcile []reconcile.Option

	// SettleDelay is the wait before the balance is refetched after a
	// faucet transfer.
	SettleDelay time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Session == nil {
		d.Session = wallet.NewSession("")
	}
	return d
}

func (d Deps) network() (string, Network, error) {
	name := d.Session.Network()
	if d.Networks == nil {
		return name, Network{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	n, err := d.Networks(name)
	return name, n, err
}

// generation hands out request tokens. Only the result of the latest
// request may be applied; older in-flight results are dropped.
type generation struct {
	mu      sync.Mutex
	current uint64
}

func (g *generation) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

func (g *generation) latest(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current == token
}

// Outcome is the inline result of the last action on a screen.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func validationMessage(err error) string {
	var ve *ptb.ValidationError
	if errors.As(err, &ve) {
		return fmt.Sprintf("Invalid %s: %s", ve.Field, ve.Reason)
	}
	return err.Error()
}
