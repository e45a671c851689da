// Package explorer builds block explorer links and the display strings used
// by the activity and wallet views.
package explorer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"onecoupon/coupon"
	"onecoupon/ledger"
)

// DefaultBaseURL is the public OneChain explorer.
const DefaultBaseURL = "https://onescan.cc"

func base(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return DefaultBaseURL
	}
	return trimmed
}

// TxURL links to a transaction block.
func TxURL(baseURL, digest string) string {
	return base(baseURL) + "/txblock/" + digest
}

// AddressURL links to an account page.
func AddressURL(baseURL, address string) string {
	return base(baseURL) + "/address/" + address
}

// ObjectURL links to an object page.
func ObjectURL(baseURL, objectID string) string {
	return base(baseURL) + "/object/" + objectID
}

// ShortAddress renders the first six and last four characters.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// Transaction labels.
const (
	LabelIssued      = "Coupon Issued"
	LabelRedeemed    = "Coupon Redeemed"
	LabelTransfer    = "Transfer"
	LabelTransaction = "Transaction"
)

// TransactionLabel classifies a transaction by the commands it ran. Issue
// takes precedence over redeem, which takes precedence over transfers.
func TransactionLabel(tx ledger.Transaction) string {
	var issued, redeemed, transferred bool
	for _, cmd := range tx.Commands {
		switch {
		case cmd.MoveCall != nil && cmd.MoveCall.Function == "issue":
			issued = true
		case cmd.MoveCall != nil && cmd.MoveCall.Function == "redeem":
			redeemed = true
		case cmd.Kind == ledger.CommandTransferObjects:
			transferred = true
		}
	}
	switch {
	case issued:
		return LabelIssued
	case redeemed:
		return LabelRedeemed
	case transferred:
		return LabelTransfer
	default:
		return LabelTransaction
	}
}

// StatusLabel renders an effects status.
func StatusLabel(status string) string {
	switch status {
	case ledger.StatusSuccess:
		return "Success"
	case ledger.StatusFailure:
		return "Failed"
	default:
		return "Unknown"
	}
}

// GasLabel renders the computation cost scaled down by 10^6, as the wallet
// views have always shown it.
func GasLabel(gas ledger.GasSummary) string {
	return strconv.FormatFloat(math.Round(float64(gas.ComputationCost)/1_000_000), 'f', 0, 64) + " MIST"
}

// BalanceChangeLabel renders a signed MIST delta as OCT with six decimals.
func BalanceChangeLabel(amount int64) string {
	return coupon.FormatMISTString(strconv.FormatInt(amount, 10), 6, true) + " OCT"
}

// TimestampLabel renders t in UTC, or "Unknown time" when unset.
func TimestampLabel(t time.Time) string {
	if t.IsZero() {
		return "Unknown time"
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

// DateLabel renders the date part of t.
func DateLabel(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
