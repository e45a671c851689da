package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"onecoupon/explorer"
	"onecoupon/faucet"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/screens"
	"onecoupon/wallet"
)

const defaultExpiry = 30 * 24 * time.Hour

func printReceipt(stdout io.Writer, message, explorerURL, digest string) {
	fmt.Fprintln(stdout, message)
	fmt.Fprintf(stdout, "Explorer: %s\n", explorer.TxURL(explorerURL, digest))
}

func runRegisterMerchant(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("register-merchant", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noWait := fs.Bool("no-wait", false, "return after submission without waiting for the merchant object")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewIssueScreen(deps)
	defer screen.Close()
	ctx := context.Background()
	if err := screen.Refresh(ctx); err != nil {
		return fail(stderr, err)
	}
	receipt, err := screen.RegisterMerchant(ctx)
	if errors.Is(err, screens.ErrMerchantExists) {
		fmt.Fprintf(stdout, "Already registered as merchant %s\n", screen.Render().MerchantID)
		return 0
	}
	if err != nil {
		return fail(stderr, err)
	}
	printReceipt(stdout, screen.Render().Outcome.Message, e.endpoints.ExplorerURL, receipt.Digest)
	if *noWait {
		return 0
	}

	state, err := screen.WaitRegistration(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	view := screen.Render()
	switch state {
	case reconcile.Confirmed:
		fmt.Fprintf(stdout, "Merchant confirmed: %s\n", view.MerchantID)
		return 0
	default:
		if view.Registration != nil {
			fmt.Fprintln(stdout, view.Registration.Message)
		}
		return 3
	}
}

func runIssue(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var form screens.IssueForm
	fs.StringVar(&form.Recipient, "recipient", "", "address receiving the coupon")
	fs.StringVar(&form.Code, "code", "", "coupon code (generated when empty)")
	fs.IntVar(&form.ValueBps, "value-bps", 0, "discount in basis points, 1-10000")
	fs.IntVar(&form.MaxUses, "max-uses", 1, "number of redemptions, 1-255")
	expiresIn := fs.Duration("expires-in", defaultExpiry, "validity measured from now")
	expiresAt := fs.String("expires-at", "", "absolute expiry (RFC3339), overrides --expires-in")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	expiry, err := resolveExpiry(*expiresAt, *expiresIn)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	form.ExpiresAt = expiry

	e, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewIssueScreen(deps)
	defer screen.Close()
	if strings.TrimSpace(form.Code) == "" {
		form.Code = screen.GenerateCode()
	}
	screen.SetForm(form)
	receipt, err := screen.Submit(context.Background())
	if err != nil {
		if view := screen.Render(); view.Outcome != nil {
			fmt.Fprintln(stderr, view.Outcome.Message)
			return 1
		}
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Code: %s\n", form.Code)
	printReceipt(stdout, "Coupon issued successfully! Transaction: "+receipt.Digest, e.endpoints.ExplorerURL, receipt.Digest)
	return 0
}

func resolveExpiry(at string, in time.Duration) (time.Time, error) {
	if strings.TrimSpace(at) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(at))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --expires-at: %w", err)
		}
		return parsed, nil
	}
	if in <= 0 {
		return time.Time{}, fmt.Errorf("--expires-in must be positive")
	}
	return time.Now().Add(in), nil
}

func runRedeem(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("redeem", flag.ContinueOnError)
	fs.SetOutput(stderr)
	couponID := fs.String("coupon", "", "coupon object id")
	total := fs.String("total", "", "order total in OCT")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*couponID) == "" || strings.TrimSpace(*total) == "" {
		fmt.Fprintln(stderr, "Error: --coupon and --total are required")
		return 2
	}
	e, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewCouponsScreen(deps)
	ctx := context.Background()
	if err := screen.Refresh(ctx); err != nil {
		return fail(stderr, err)
	}
	if err := screen.OpenRedeem(strings.TrimSpace(*couponID)); err != nil {
		return fail(stderr, err)
	}
	if err := screen.SetOrderTotal(*total); err != nil {
		return fail(stderr, err)
	}
	if dialog := screen.Render().Dialog; dialog != nil && dialog.Preview != nil {
		fmt.Fprintf(stdout, "Order total: %s OCT, discount: %s OCT, final: %s OCT\n",
			dialog.Preview.OrderTotal, dialog.Preview.Discount, dialog.Preview.FinalTotal)
	}
	receipt, err := screen.ConfirmRedeem(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	printReceipt(stdout, "Coupon redeemed successfully! Transaction: "+receipt.Digest, e.endpoints.ExplorerURL, receipt.Digest)
	return 0
}

func runTransfer(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	couponID := fs.String("coupon", "", "coupon object id")
	to := fs.String("to", "", "new owner address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, _, deps, err := connected(g, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	desc, err := ptb.Build(e.contract(), ptb.TransferFields{CouponID: *couponID, NewOwner: *to})
	if err != nil {
		return fail(stderr, err)
	}
	w, err := deps.Session.Wallet()
	if err != nil {
		return fail(stderr, err)
	}
	receipt, err := wallet.NewPendingCall(desc).Submit(context.Background(), w)
	if err != nil {
		fmt.Fprintf(stderr, "Transaction failed: %s\n", wallet.FailureMessage(err))
		return 1
	}
	printReceipt(stdout, "Coupon transferred! Transaction: "+receipt.Digest, e.endpoints.ExplorerURL, receipt.Digest)
	return 0
}

func runFaucet(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("faucet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	gate, err := e.gate()
	if err != nil {
		return fail(stderr, err)
	}
	if gate == nil {
		return fail(stderr, errNoFaucetURL)
	}
	node, err := dialNode(e)
	if err != nil {
		return fail(stderr, err)
	}
	session, err := e.session(node, true)
	if err != nil {
		return fail(stderr, err)
	}
	screen := screens.NewFaucetScreen(e.deps(session, node, gate))
	defer screen.Close()

	_, err = screen.Request(context.Background())
	view := screen.Render()
	switch {
	case errors.Is(err, faucet.ErrCoolingDown):
		fmt.Fprintln(stderr, view.ButtonLabel)
		return 1
	case err != nil:
		if view.Outcome != nil {
			fmt.Fprintln(stderr, view.Outcome.Message)
			return 1
		}
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, view.Outcome.Message)
	return 0
}
