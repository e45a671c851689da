package screens

import (
	"context"
	"sync"

	"onecoupon/explorer"
	"onecoupon/ledger"
)

// MsgNoTransactions is shown when the account has no history.
const MsgNoTransactions = "No transactions found"

// ActivityEntry is one rendered transaction.
type ActivityEntry struct {
	Digest         string   `json:"digest"`
	ShortDigest    string   `json:"short_digest"`
	Label          string   `json:"label"`
	Status         string   `json:"status"`
	StatusLabel    string   `json:"status_label"`
	Timestamp      string   `json:"timestamp"`
	GasUsed        string   `json:"gas_used,omitempty"`
	BalanceChanges []string `json:"balance_changes,omitempty"`
	ExplorerURL    string   `json:"explorer_url"`
}

// ActivityView is the rendered activity log.
type ActivityView struct {
	Network    string          `json:"network"`
	Blocked    string          `json:"blocked,omitempty"`
	Loading    bool            `json:"loading"`
	Empty      string          `json:"empty,omitempty"`
	Entries    []ActivityEntry `json:"entries"`
	ViewAllURL string          `json:"view_all_url,omitempty"`
}

// ActivityScreen lists the latest transactions sent by the account.
type ActivityScreen struct {
	deps Deps
	gen  generation

	mu       sync.Mutex
	owner    string
	network  string
	loaded   bool
	txs      []ledger.Transaction
	explorer string
}

// NewActivityScreen builds the activity screen.
func NewActivityScreen(deps Deps) *ActivityScreen {
	return &ActivityScreen{deps: deps.withDefaults()}
}

// Refresh reloads the newest transactions, newest first.
func (s *ActivityScreen) Refresh(ctx context.Context) error {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		return ErrNotConnected
	}
	name, net, err := s.deps.network()
	if err != nil {
		return err
	}
	token := s.gen.next()
	res, err := net.Ledger.TransactionHistory(ctx, ledger.HistoryQuery{
		FromAddress: acct.Address,
		Limit:       ledger.DefaultHistoryLimit,
	})
	if err != nil {
		s.deps.Logger.Warn("history query failed", "address", acct.Address, "network", name, "error", err)
		return err
	}
	if !s.gen.latest(token) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = acct.Address
	s.network = name
	s.loaded = true
	s.txs = res.Transactions
	s.explorer = net.ExplorerURL
	return nil
}

// Transactions returns the last loaded transactions and the explorer base
// they link to.
func (s *ActivityScreen) Transactions() ([]ledger.Transaction, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.txs...), s.explorer
}

// Render projects the screen state.
func (s *ActivityScreen) Render() ActivityView {
	acct := s.deps.Session.Account()
	network := s.deps.Session.Network()
	view := ActivityView{Network: network, Entries: []ActivityEntry{}}
	if !acct.Connected() {
		view.Blocked = MsgConnectActivity
		return view
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.owner != acct.Address || s.network != network {
		view.Loading = true
		return view
	}
	view.ViewAllURL = explorer.AddressURL(s.explorer, acct.Address)
	for _, tx := range s.txs {
		entry := ActivityEntry{
			Digest:      tx.Digest,
			ShortDigest: explorer.ShortAddress(tx.Digest),
			Label:       explorer.TransactionLabel(tx),
			Status:      tx.Status,
			StatusLabel: explorer.StatusLabel(tx.Status),
			Timestamp:   explorer.TimestampLabel(tx.Timestamp),
			ExplorerURL: explorer.TxURL(s.explorer, tx.Digest),
		}
		if tx.Gas != (ledger.GasSummary{}) {
			entry.GasUsed = explorer.GasLabel(tx.Gas)
		}
		for _, change := range tx.BalanceChanges {
			entry.BalanceChanges = append(entry.BalanceChanges, explorer.BalanceChangeLabel(int64(change.Amount)))
		}
		view.Entries = append(view.Entries, entry)
	}
	if len(view.Entries) == 0 {
		view.Empty = MsgNoTransactions
	}
	return view
}
