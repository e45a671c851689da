package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type globals struct {
	configPath string
	network    string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rest, g, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage())
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "generate-key":
		return runGenerateKey(g, cmdArgs, stdout, stderr)
	case "import-key":
		return runImportKey(g, cmdArgs, stdout, stderr)
	case "address":
		return runAddress(g, cmdArgs, stdout, stderr)
	case "balance":
		return runBalance(g, cmdArgs, stdout, stderr)
	case "chain-id":
		return runChainID(g, cmdArgs, stdout, stderr)
	case "register-merchant":
		return runRegisterMerchant(g, cmdArgs, stdout, stderr)
	case "issue":
		return runIssue(g, cmdArgs, stdout, stderr)
	case "coupons":
		return runCoupons(g, cmdArgs, stdout, stderr)
	case "redeem":
		return runRedeem(g, cmdArgs, stdout, stderr)
	case "transfer":
		return runTransfer(g, cmdArgs, stdout, stderr)
	case "activity":
		return runActivity(g, cmdArgs, stdout, stderr)
	case "faucet":
		return runFaucet(g, cmdArgs, stdout, stderr)
	case "ptb":
		return runPTB(g, cmdArgs, stdout, stderr)
	case "serve":
		return runServe(g, cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage())
		return 2
	}
}

// applyGlobalFlags strips --config and --network from anywhere in args.
func applyGlobalFlags(args []string) ([]string, globals, error) {
	g := globals{configPath: strings.TrimSpace(os.Getenv("ONECOUPON_CONFIG"))}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var target *string
		name := ""
		switch {
		case arg == "--config" || arg == "--network":
			name = strings.TrimPrefix(arg, "--")
		case strings.HasPrefix(arg, "--config="):
			g.configPath = strings.TrimPrefix(arg, "--config=")
			continue
		case strings.HasPrefix(arg, "--network="):
			g.network = strings.TrimPrefix(arg, "--network=")
			continue
		default:
			out = append(out, arg)
			continue
		}
		if name == "config" {
			target = &g.configPath
		} else {
			target = &g.network
		}
		if i+1 >= len(args) {
			return nil, g, fmt.Errorf("missing value for --%s", name)
		}
		*target = args[i+1]
		i++
	}
	return out, g, nil
}

func usage() string {
	return `Usage: onecoupon [--config path] [--network testnet|mainnet] <command> [flags]

Keys:
  generate-key [--keystore path]            create a signing key and store it encrypted
  import-key --key suiprivkey1...           import a bech32 private key (or ONECOUPON_PRIVATE_KEY)
  address                                   print the keystore address

Queries:
  balance [--address addr]                  OCT balance
  chain-id                                  chain identifier of the selected network
  coupons [--json]                          coupons owned by the keystore address
  activity [--json] [--export csv|jsonl|parquet --out path]

Transactions:
  register-merchant [--no-wait]             register the keystore address as a merchant
  issue --recipient addr --value-bps n --max-uses n [--code c] [--expires-in 720h | --expires-at RFC3339]
  redeem --coupon id --total OCT
  transfer --coupon id --to addr
  faucet                                    request test tokens

Tools:
  ptb <issue|redeem|transfer|register> ...  print the equivalent one client ptb command
  serve [--listen addr]                     start the HTTP API for a browser front end

The keystore passphrase is read from ONECOUPON_KEYSTORE_PASSPHRASE or prompted.
`
}
