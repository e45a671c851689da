// Package exports renders the activity log as CSV, JSON Lines or Parquet for
// bookkeeping outside the client.
package exports

import (
	"strconv"
	"strings"
	"time"

	"onecoupon/explorer"
	"onecoupon/ledger"
)

// ActivityRow is the flattened export record of one transaction.
type ActivityRow struct {
	Digest        string `parquet:"name=digest, type=BYTE_ARRAY, convertedtype=UTF8" json:"digest"`
	Label         string `parquet:"name=label, type=BYTE_ARRAY, convertedtype=UTF8" json:"label"`
	Status        string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8" json:"status"`
	Timestamp     string `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8" json:"timestamp"`
	Functions     string `parquet:"name=functions, type=BYTE_ARRAY, convertedtype=UTF8" json:"functions"`
	GasMIST       int64  `parquet:"name=gas_mist, type=INT64" json:"gas_mist"`
	BalanceChange string `parquet:"name=balance_change_mist, type=BYTE_ARRAY, convertedtype=UTF8" json:"balance_change_mist"`
	ExplorerURL   string `parquet:"name=explorer_url, type=BYTE_ARRAY, convertedtype=UTF8" json:"explorer_url"`
}

var csvHeader = []string{"digest", "label", "status", "timestamp", "functions", "gas_mist", "balance_change_mist", "explorer_url"}

func (r ActivityRow) record() []string {
	return []string{
		r.Digest,
		r.Label,
		r.Status,
		r.Timestamp,
		r.Functions,
		strconv.FormatInt(r.GasMIST, 10),
		r.BalanceChange,
		r.ExplorerURL,
	}
}

// NewActivityRows flattens transactions in the order given. BalanceChange is
// the net MIST delta across every balance change of the transaction.
func NewActivityRows(txs []ledger.Transaction, explorerURL string) []ActivityRow {
	rows := make([]ActivityRow, 0, len(txs))
	for _, tx := range txs {
		var net int64
		for _, change := range tx.BalanceChanges {
			net += int64(change.Amount)
		}
		row := ActivityRow{
			Digest:        tx.Digest,
			Label:         explorer.TransactionLabel(tx),
			Status:        tx.Status,
			Functions:     strings.Join(tx.Functions(), ";"),
			GasMIST:       int64(tx.Gas.Total()),
			BalanceChange: strconv.FormatInt(net, 10),
			ExplorerURL:   explorer.TxURL(explorerURL, tx.Digest),
		}
		if !tx.Timestamp.IsZero() {
			row.Timestamp = tx.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		rows = append(rows, row)
	}
	return rows
}
