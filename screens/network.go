package screens

import (
	"context"
	"sync"
)

// NetworkView is the connection debug panel.
type NetworkView struct {
	Network string `json:"network"`
	ChainID string `json:"chain_id"`
	Wallet  string `json:"wallet"`
	Address string `json:"address,omitempty"`
}

// NetworkScreen shows the chain identifier and wallet status.
type NetworkScreen struct {
	deps Deps
	gen  generation

	mu      sync.Mutex
	network string
	chainID string
}

// NewNetworkScreen builds the debug panel.
func NewNetworkScreen(deps Deps) *NetworkScreen {
	return &NetworkScreen{deps: deps.withDefaults()}
}

// Refresh queries the chain identifier of the selected network.
func (s *NetworkScreen) Refresh(ctx context.Context) error {
	name, net, err := s.deps.network()
	if err != nil {
		return err
	}
	token := s.gen.next()
	id, err := net.Ledger.ChainIdentifier(ctx)
	if err != nil {
		s.deps.Logger.Warn("chain identifier query failed", "network", name, "error", err)
		return err
	}
	if !s.gen.latest(token) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = name
	s.chainID = id
	return nil
}

// Render projects the screen state.
func (s *NetworkScreen) Render() NetworkView {
	acct := s.deps.Session.Account()
	network := s.deps.Session.Network()
	view := NetworkView{Network: network, ChainID: "Loading...", Wallet: "Not connected"}
	s.mu.Lock()
	if s.network == network && s.chainID != "" {
		view.ChainID = s.chainID
	}
	s.mu.Unlock()
	if acct.Connected() {
		view.Wallet = "Connected"
		addr := acct.Address
		if len(addr) > 10 {
			addr = addr[:10]
		}
		view.Address = addr + "..."
	}
	return view
}
