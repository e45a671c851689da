package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"onecoupon/coupon"
	"onecoupon/integrations/exports"
	"onecoupon/screens"
)

func printJSON(stdout io.Writer, v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 1
	}
	return 0
}

func runBalance(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	address := fs.String("address", "", "account to query (defaults to the keystore address)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	node, err := dialNode(e)
	if err != nil {
		return fail(stderr, err)
	}
	owner := strings.TrimSpace(*address)
	if owner == "" {
		key, err := loadSigningKey(e)
		if err != nil {
			return fail(stderr, err)
		}
		owner = key.PubKey().Address().String()
	}
	res, err := node.Balance(context.Background(), owner, e.cfg.CoinType)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "%s OCT (%s MIST)\n", coupon.FormatMISTString(res.TotalBalance, 6, false), res.TotalBalance)
	return 0
}

func runChainID(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chain-id", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	node, err := dialNode(e)
	if err != nil {
		return fail(stderr, err)
	}
	id, err := node.ChainIdentifier(context.Background())
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, id)
	return 0
}

func runCoupons(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("coupons", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the rendered view as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	_, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewCouponsScreen(deps)
	if err := screen.Refresh(context.Background()); err != nil {
		return fail(stderr, err)
	}
	view := screen.Render()
	if *asJSON {
		return printJSON(stdout, view)
	}
	if view.Blocked != "" {
		fmt.Fprintln(stderr, view.Blocked)
		return 1
	}
	if view.Empty != "" {
		fmt.Fprintln(stdout, view.Empty)
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tDISCOUNT\tUSES\tEXPIRES\tSTATUS")
	for _, c := range view.Coupons {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Code, c.Discount, c.Uses, c.Expires, c.StatusLabel)
	}
	_ = tw.Flush()
	return 0
}

func runActivity(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the rendered view as JSON")
	format := fs.String("export", "", "export format: csv, jsonl or parquet")
	out := fs.String("out", "", "export destination file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "" && strings.TrimSpace(*out) == "" {
		fmt.Fprintln(stderr, "Error: --out is required with --export")
		return 2
	}
	_, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewActivityScreen(deps)
	if err := screen.Refresh(context.Background()); err != nil {
		return fail(stderr, err)
	}
	if *format != "" {
		txs, explorerURL := screen.Transactions()
		sum, err := writeExport(*format, *out, exports.NewActivityRows(txs, explorerURL))
		if err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintf(stdout, "Wrote %d transactions to %s\n", len(txs), *out)
		if sum != "" {
			fmt.Fprintf(stdout, "SHA-256: %s\n", sum)
		}
		return 0
	}
	view := screen.Render()
	if *asJSON {
		return printJSON(stdout, view)
	}
	if view.Empty != "" {
		fmt.Fprintln(stdout, view.Empty)
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIGEST\tTYPE\tSTATUS\tTIME\tGAS")
	for _, entry := range view.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", entry.ShortDigest, entry.Label, entry.StatusLabel, entry.Timestamp, entry.GasUsed)
	}
	_ = tw.Flush()
	fmt.Fprintf(stdout, "View all: %s\n", view.ViewAllURL)
	return 0
}
