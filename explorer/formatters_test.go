package explorer

import (
	"testing"
	"time"

	"onecoupon/ledger"
)

func TestLinks(t *testing.T) {
	if got := TxURL("https://onescan.cc/", "9xYz"); got != "https://onescan.cc/txblock/9xYz" {
		t.Fatalf("unexpected tx url %q", got)
	}
	if got := AddressURL("", "0xabc"); got != "https://onescan.cc/address/0xabc" {
		t.Fatalf("unexpected address url %q", got)
	}
}

func TestShortAddress(t *testing.T) {
	addr := "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcd"
	if got := ShortAddress(addr); got != "0x1234...abcd" {
		t.Fatalf("unexpected short address %q", got)
	}
	if got := ShortAddress("0x6"); got != "0x6" {
		t.Fatalf("short inputs pass through, got %q", got)
	}
}

func TestTransactionLabel(t *testing.T) {
	moveCall := func(fn string) ledger.Command {
		return ledger.Command{Kind: ledger.CommandMoveCall, MoveCall: &ledger.MoveCallCommand{Function: fn}}
	}
	cases := []struct {
		name string
		cmds []ledger.Command
		want string
	}{
		{"issue", []ledger.Command{{Kind: ledger.CommandSplitCoins}, moveCall("issue")}, LabelIssued},
		{"redeem", []ledger.Command{moveCall("redeem")}, LabelRedeemed},
		{"issue wins", []ledger.Command{moveCall("redeem"), moveCall("issue")}, LabelIssued},
		{"transfer", []ledger.Command{{Kind: ledger.CommandTransferObjects}}, LabelTransfer},
		{"other", []ledger.Command{moveCall("register_merchant")}, LabelTransaction},
		{"empty", nil, LabelTransaction},
	}
	for _, tc := range cases {
		if got := TransactionLabel(ledger.Transaction{Commands: tc.cmds}); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestLabels(t *testing.T) {
	if StatusLabel("success") != "Success" || StatusLabel("failure") != "Failed" || StatusLabel("") != "Unknown" {
		t.Fatalf("unexpected status labels")
	}
	if got := GasLabel(ledger.GasSummary{ComputationCost: 1_500_000}); got != "2 MIST" {
		t.Fatalf("unexpected gas label %q", got)
	}
	if got := BalanceChangeLabel(-2_500_000); got != "-0.002500 OCT" {
		t.Fatalf("unexpected negative change %q", got)
	}
	if got := BalanceChangeLabel(1_000_000_000); got != "+1.000000 OCT" {
		t.Fatalf("unexpected positive change %q", got)
	}
	if got := TimestampLabel(time.Time{}); got != "Unknown time" {
		t.Fatalf("unexpected zero timestamp %q", got)
	}
}
