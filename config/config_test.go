package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ONECOUPON_PACKAGE_ID", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultNetwork != NetworkTestnet {
		t.Fatalf("unexpected default network %q", cfg.DefaultNetwork)
	}
	if cfg.HasPackage() {
		t.Fatalf("package id must not be defaulted")
	}
	if cfg.Reconcile.Interval.Duration != 2*time.Second || cfg.Reconcile.Timeout.Duration != 30*time.Second {
		t.Fatalf("unexpected reconcile defaults %+v", cfg.Reconcile)
	}
	if cfg.Faucet.Cooldown.Duration != time.Minute {
		t.Fatalf("unexpected cooldown %s", cfg.Faucet.Cooldown.Duration)
	}
	n, name, err := cfg.Network("")
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	if name != NetworkTestnet || n.FaucetURL != "https://faucet-testnet.onelabs.cc/v1/gas" {
		t.Fatalf("unexpected testnet %+v", n)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onecoupon.toml")
	contents := `DefaultNetwork = "mainnet"
PackageID = "0xc0ffee"
GasBudget = 7000000

[networks.mainnet]
RPCURL = "http://localhost:9000"
ExplorerURL = "https://explorer.example/"

[networks.testnet]
RPCURL = "http://localhost:9001"

[reconcile]
Interval = "500ms"
Timeout = "10s"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PackageID != "0xc0ffee" || cfg.GasBudget != 7_000_000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	n, name, err := cfg.Network("")
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	if name != NetworkMainnet || n.RPCURL != "http://localhost:9000" {
		t.Fatalf("unexpected network %s %+v", name, n)
	}
	if n.ExplorerURL != "https://explorer.example" {
		t.Fatalf("explorer url should be trimmed, got %q", n.ExplorerURL)
	}
	if cfg.Reconcile.Interval.Duration != 500*time.Millisecond {
		t.Fatalf("unexpected interval %s", cfg.Reconcile.Interval.Duration)
	}
}

func TestLoadTOMLRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onecoupon.toml")
	if err := os.WriteFile(path, []byte("ValidatorKey = \"abc\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onecoupon.yaml")
	contents := `package_id: "0xbeef"
faucet:
  cooldown: 90s
serve:
  listen: ":9999"
  auth:
    enabled: true
    hmac_secret: s3cret
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PackageID != "0xbeef" {
		t.Fatalf("unexpected package %q", cfg.PackageID)
	}
	if cfg.Faucet.Cooldown.Duration != 90*time.Second {
		t.Fatalf("unexpected cooldown %s", cfg.Faucet.Cooldown.Duration)
	}
	if cfg.Serve.ListenAddress != ":9999" || !cfg.Serve.Auth.Enabled {
		t.Fatalf("unexpected serve config %+v", cfg.Serve)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ONECOUPON_PACKAGE_ID":      "0x42",
		"ONECOUPON_DEFAULT_NETWORK": "mainnet",
		"ONECOUPON_MAINNET_RPC_URL": "http://node:9000",
		"ONECOUPON_FAUCET_URL":      "http://faucet/v1/gas",
		"ONECOUPON_EXPLORER_URL":    "http://scan",
	}
	cfg := Default()
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if cfg.PackageID != "0x42" || cfg.DefaultNetwork != "mainnet" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Networks[NetworkMainnet].RPCURL != "http://node:9000" {
		t.Fatalf("mainnet rpc not overridden")
	}
	if cfg.Networks[NetworkTestnet].FaucetURL != "http://faucet/v1/gas" {
		t.Fatalf("faucet url not overridden")
	}
	for name, n := range cfg.Networks {
		if n.ExplorerURL != "http://scan" {
			t.Fatalf("%s explorer not overridden", name)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown_default": func(c *Config) { c.DefaultNetwork = "devnet" },
		"empty_rpc": func(c *Config) {
			n := c.Networks[NetworkMainnet]
			n.RPCURL = ""
			c.Networks[NetworkMainnet] = n
		},
		"tiny_interval":   func(c *Config) { c.Reconcile.Interval.Duration = time.Millisecond },
		"timeout_too_low": func(c *Config) { c.Reconcile.Timeout = c.Reconcile.Interval },
		"zero_cooldown":   func(c *Config) { c.Faucet.Cooldown.Duration = 0 },
		"auth_no_secret":  func(c *Config) { c.Serve.Auth.Enabled = true },
		"zero_gas_budget": func(c *Config) { c.GasBudget = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
