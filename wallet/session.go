package wallet

import (
	"fmt"
	"strings"
	"sync"

	"onecoupon/coupon"
)

// Session is the connection context shared by every screen: the connected
// wallet, if any, and the selected network. It is created once at the
// application root and passed down explicitly.
type Session struct {
	mu       sync.RWMutex
	wallet   Wallet
	network  string
	networks map[string]struct{}
}

// NewSession starts disconnected on network. known lists the networks
// SwitchNetwork accepts; an empty list accepts any non-empty name.
func NewSession(network string, known ...string) *Session {
	s := &Session{network: strings.TrimSpace(network)}
	if len(known) > 0 {
		s.networks = make(map[string]struct{}, len(known))
		for _, name := range known {
			s.networks[strings.TrimSpace(name)] = struct{}{}
		}
	}
	return s
}

// Connect attaches w to the session, replacing any previous wallet.
func (s *Session) Connect(w Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = w
}

// Disconnect forgets the wallet.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = nil
}

// Wallet returns the connected wallet or ErrNoWallet.
func (s *Session) Wallet() (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wallet == nil {
		return nil, ErrNoWallet
	}
	return s.wallet, nil
}

// Account returns the connected account, or a disconnected zero account.
func (s *Session) Account() coupon.Account {
	s.mu.RLock()
	w := s.wallet
	s.mu.RUnlock()
	if w == nil {
		return coupon.Account{Status: coupon.Disconnected}
	}
	return w.Account()
}

// Connected reports whether a wallet with an address is attached.
func (s *Session) Connected() bool {
	return s.Account().Connected()
}

// Network returns the selected network name.
func (s *Session) Network() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// SwitchNetwork selects name. The wallet stays connected; screens pick up
// the change on their next refresh.
func (s *Session) SwitchNetwork(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("wallet: network name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.networks != nil {
		if _, ok := s.networks[name]; !ok {
			return fmt.Errorf("wallet: unknown network %q", name)
		}
	}
	s.network = name
	return nil
}
