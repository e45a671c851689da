package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"onecoupon/crypto"
)

func runGenerateKey(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystorePath := fs.String("keystore", "", "keystore file (defaults to the configured path)")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fail(stderr, err)
	}
	return storeKey(g, key, *keystorePath, *force, stdout, stderr)
}

func runImportKey(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	encoded := fs.String("key", "", "bech32 private key (suiprivkey1...)")
	keystorePath := fs.String("keystore", "", "keystore file (defaults to the configured path)")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw := strings.TrimSpace(*encoded)
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("ONECOUPON_PRIVATE_KEY"))
	}
	if raw == "" {
		fmt.Fprintln(stderr, "Error: --key or ONECOUPON_PRIVATE_KEY is required")
		return 2
	}
	key, err := crypto.DecodePrivateKey(raw)
	if err != nil {
		return fail(stderr, err)
	}
	return storeKey(g, key, *keystorePath, *force, stdout, stderr)
}

func storeKey(g globals, key *crypto.PrivateKey, path string, force bool, stdout, stderr io.Writer) int {
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	if strings.TrimSpace(path) == "" {
		path = e.cfg.KeystorePath
	}
	if crypto.KeystoreExists(path) && !force {
		fmt.Fprintf(stderr, "Error: keystore %s already exists; pass --force to replace it\n", path)
		return 1
	}
	pass, err := newPassphrase().Get()
	if err != nil {
		return fail(stderr, err)
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address())
	fmt.Fprintf(stdout, "Keystore: %s\n", path)
	return 0
}

func runAddress(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return fail(stderr, err)
	}
	key, err := loadSigningKey(e)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, key.PubKey().Address())
	return 0
}
