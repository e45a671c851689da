package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"onecoupon/coupon"
	"onecoupon/ptb"
)

// runPTB prints the one client ptb invocation equivalent to a call. Nothing
// is signed or submitted.
func runPTB(g globals, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: onecoupon ptb <issue|redeem|transfer|register> [flags]")
		return 2
	}
	action, rest := args[0], args[1:]
	fs := flag.NewFlagSet("ptb "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	gasBudget := fs.Uint64("gas-budget", 0, "gas budget (defaults to the configured budget)")

	var build func() (ptb.Fields, error)
	switch action {
	case "issue":
		merchant := fs.String("merchant", "", "merchant object id")
		recipient := fs.String("recipient", "", "address receiving the coupon")
		code := fs.String("code", "", "coupon code")
		valueBps := fs.Int("value-bps", 0, "discount in basis points")
		maxUses := fs.Int("max-uses", 1, "number of redemptions")
		expiresIn := fs.Duration("expires-in", defaultExpiry, "validity measured from now")
		expiresAt := fs.String("expires-at", "", "absolute expiry (RFC3339)")
		build = func() (ptb.Fields, error) {
			expiry, err := resolveExpiry(*expiresAt, *expiresIn)
			if err != nil {
				return nil, err
			}
			return ptb.IssueFields{
				MerchantID: *merchant,
				Recipient:  *recipient,
				Code:       *code,
				ValueBps:   *valueBps,
				MaxUses:    *maxUses,
				ExpiresAt:  expiry,
			}, nil
		}
	case "redeem":
		couponID := fs.String("coupon", "", "coupon object id")
		total := fs.String("total", "", "order total in OCT")
		build = func() (ptb.Fields, error) {
			mist, err := coupon.ParseOCT(*total)
			if err != nil {
				return nil, err
			}
			return ptb.RedeemFields{CouponID: *couponID, OrderTotal: mist}, nil
		}
	case "transfer":
		couponID := fs.String("coupon", "", "coupon object id")
		to := fs.String("to", "", "new owner address")
		build = func() (ptb.Fields, error) {
			return ptb.TransferFields{CouponID: *couponID, NewOwner: *to}, nil
		}
	case "register":
		owner := fs.String("owner", "", "merchant owner address")
		build = func() (ptb.Fields, error) {
			return ptb.MerchantFields{Owner: *owner}, nil
		}
	default:
		fmt.Fprintf(stderr, "Unknown ptb action: %s\n", action)
		return 2
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	fields, err := build()
	if err != nil {
		return fail(stderr, err)
	}
	desc, err := ptb.Build(e.contract(), fields)
	if err != nil {
		return fail(stderr, err)
	}
	budget := *gasBudget
	if budget == 0 {
		budget = e.cfg.GasBudget
	}
	fmt.Fprintln(stdout, ptb.CLICommand(desc, budget))
	return 0
}
