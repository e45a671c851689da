package screens

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"onecoupon/coupon"
	"onecoupon/explorer"
	"onecoupon/faucet"
)

// Faucet button labels.
const (
	LabelRequestTokens = "Request Test Tokens"
	LabelRequesting    = "Requesting..."
)

// FaucetView is the rendered faucet screen.
type FaucetView struct {
	Network         string   `json:"network"`
	Blocked         string   `json:"blocked,omitempty"`
	Balance         string   `json:"balance"`
	Address         string   `json:"address,omitempty"`
	ButtonLabel     string   `json:"button_label"`
	ButtonDisabled  bool     `json:"button_disabled"`
	CooldownSeconds int      `json:"cooldown_seconds"`
	Outcome         *Outcome `json:"outcome,omitempty"`
}

// FaucetScreen shows the balance and requests test tokens.
type FaucetScreen struct {
	deps Deps
	gen  generation

	mu      sync.Mutex
	owner   string
	network string
	balance string
	outcome *Outcome
	settle  *time.Timer
	closed  bool
}

// NewFaucetScreen builds the faucet screen.
func NewFaucetScreen(deps Deps) *FaucetScreen {
	return &FaucetScreen{deps: deps.withDefaults()}
}

// Refresh reloads the account balance.
func (s *FaucetScreen) Refresh(ctx context.Context) error {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		return ErrNotConnected
	}
	name, net, err := s.deps.network()
	if err != nil {
		return err
	}
	token := s.gen.next()
	res, err := net.Ledger.Balance(ctx, acct.Address, s.deps.CoinType)
	if err != nil {
		s.deps.Logger.Warn("balance query failed", "address", acct.Address, "network", name, "error", err)
		return err
	}
	if !s.gen.latest(token) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = acct.Address
	s.network = name
	s.balance = res.TotalBalance
	return nil
}

// Request asks the faucet for tokens. While the cooldown runs the request
// is refused without any network call. A success schedules a balance
// refresh after the settle delay.
func (s *FaucetScreen) Request(ctx context.Context) (faucet.Result, error) {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		s.setOutcome(&Outcome{Message: MsgConnectFirst})
		return faucet.Result{}, ErrNotConnected
	}
	_, net, err := s.deps.network()
	if err != nil {
		return faucet.Result{}, err
	}
	if net.Faucet == nil {
		return faucet.Result{}, ErrNoFaucet
	}

	res, err := net.Faucet.Request(ctx, acct.Address)
	switch {
	case errors.Is(err, faucet.ErrCoolingDown), errors.Is(err, faucet.ErrInFlight):
		return faucet.Result{}, err
	case err != nil:
		msg := err.Error()
		var faucetErr *faucet.Error
		if errors.As(err, &faucetErr) {
			msg = faucetErr.Message
		}
		s.setOutcome(&Outcome{Message: "Error: " + msg})
		return faucet.Result{}, err
	}

	s.mu.Lock()
	s.outcome = &Outcome{Success: true, Message: "Success! Received test tokens. Transaction: " + res.Digest}
	if !s.closed {
		if s.settle != nil {
			s.settle.Stop()
		}
		s.settle = time.AfterFunc(s.deps.SettleDelay, func() {
			if err := s.Refresh(context.Background()); err != nil {
				s.deps.Logger.Debug("post-faucet balance refresh failed", "error", err)
			}
		})
	}
	s.mu.Unlock()
	return res, nil
}

func (s *FaucetScreen) setOutcome(o *Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = o
}

// Close cancels a pending balance refresh.
func (s *FaucetScreen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
}

// ButtonLabel returns the faucet button label for the given gate state.
func ButtonLabel(inFlight bool, remaining time.Duration) string {
	switch {
	case inFlight:
		return LabelRequesting
	case remaining > 0:
		return "Wait " + strconv.Itoa(int(remaining/time.Second)) + "s"
	default:
		return LabelRequestTokens
	}
}

// Render projects the screen state.
func (s *FaucetScreen) Render() FaucetView {
	acct := s.deps.Session.Account()
	network := s.deps.Session.Network()
	view := FaucetView{Network: network, Balance: "0.000000", ButtonLabel: LabelRequestTokens}
	if !acct.Connected() {
		view.Blocked = MsgConnectFaucet
		view.ButtonDisabled = true
		return view
	}
	view.Address = explorer.ShortAddress(acct.Address)

	if _, net, err := s.deps.network(); err != nil || net.Faucet == nil {
		view.Blocked = MsgNoFaucet
		view.ButtonDisabled = true
	} else {
		inFlight := net.Faucet.InFlight()
		remaining := net.Faucet.Remaining()
		view.ButtonLabel = ButtonLabel(inFlight, remaining)
		view.ButtonDisabled = inFlight || remaining > 0
		view.CooldownSeconds = int(remaining / time.Second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view.Outcome = s.outcome
	if s.owner == acct.Address && s.network == network && s.balance != "" {
		view.Balance = coupon.FormatMISTString(s.balance, 6, false)
	}
	return view
}
