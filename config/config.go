package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	NetworkTestnet = "testnet"
	NetworkMainnet = "mainnet"

	DefaultModule   = "coupon"
	DefaultCoinType = "0x2::oct::OCT"
)

// Config is the client configuration shared by the CLI and serve mode.
type Config struct {
	DefaultNetwork string             `toml:"DefaultNetwork" yaml:"default_network"`
	PackageID      string             `toml:"PackageID" yaml:"package_id"`
	Module         string             `toml:"Module" yaml:"module"`
	CoinType       string             `toml:"CoinType" yaml:"coin_type"`
	GasBudget      uint64             `toml:"GasBudget" yaml:"gas_budget"`
	KeystorePath   string             `toml:"KeystorePath" yaml:"keystore_path"`
	Networks       map[string]Network `toml:"networks" yaml:"networks"`
	Reconcile      Reconcile          `toml:"reconcile" yaml:"reconcile"`
	Faucet         Faucet             `toml:"faucet" yaml:"faucet"`
	Serve          Serve              `toml:"serve" yaml:"serve"`
	Logging        Logging            `toml:"logging" yaml:"logging"`
	Telemetry      Telemetry          `toml:"telemetry" yaml:"telemetry"`
}

// Network holds the per-network endpoints.
type Network struct {
	RPCURL      string `toml:"RPCURL" yaml:"rpc_url"`
	FaucetURL   string `toml:"FaucetURL" yaml:"faucet_url"`
	ExplorerURL string `toml:"ExplorerURL" yaml:"explorer_url"`
}

// Reconcile tunes the post-mutation polling loop.
type Reconcile struct {
	Interval Duration `toml:"Interval" yaml:"interval"`
	Timeout  Duration `toml:"Timeout" yaml:"timeout"`
}

// Faucet tunes the client-side faucet behaviour.
type Faucet struct {
	Cooldown    Duration `toml:"Cooldown" yaml:"cooldown"`
	SettleDelay Duration `toml:"SettleDelay" yaml:"settle_delay"`
	Timeout     Duration `toml:"Timeout" yaml:"timeout"`
}

// Serve configures the HTTP surface started by `onecoupon serve`.
type Serve struct {
	ListenAddress  string    `toml:"ListenAddress" yaml:"listen"`
	AllowedOrigins []string  `toml:"AllowedOrigins" yaml:"allowed_origins"`
	LogRequests    bool      `toml:"LogRequests" yaml:"log_requests"`
	Auth           Auth      `toml:"auth" yaml:"auth"`
	RateLimit      RateLimit `toml:"rate_limit" yaml:"rate_limit"`
}

// Auth enables HMAC bearer tokens on mutating routes.
type Auth struct {
	Enabled    bool   `toml:"Enabled" yaml:"enabled"`
	HMACSecret string `toml:"HMACSecret" yaml:"hmac_secret"`
	Issuer     string `toml:"Issuer" yaml:"issuer"`
	Audience   string `toml:"Audience" yaml:"audience"`
}

type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute" yaml:"requests_per_minute"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// Logging configures log output. An empty File logs to stdout only.
type Logging struct {
	Env        string `toml:"Env" yaml:"env"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
}

// Telemetry configures OTLP export. Export is disabled when Endpoint is empty.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	Headers  string `toml:"Headers" yaml:"headers"`
}

// Default returns the built-in configuration. PackageID is deliberately
// empty: the contract address must always be supplied.
func Default() *Config {
	return &Config{
		DefaultNetwork: NetworkTestnet,
		Module:         DefaultModule,
		CoinType:       DefaultCoinType,
		GasBudget:      5_000_000,
		KeystorePath:   defaultKeystorePath(),
		Networks: map[string]Network{
			NetworkTestnet: {
				RPCURL:      "https://rpc-testnet.onelabs.cc",
				FaucetURL:   "https://faucet-testnet.onelabs.cc/v1/gas",
				ExplorerURL: "https://onescan.cc",
			},
			NetworkMainnet: {
				RPCURL:      "https://rpc-mainnet.onelabs.cc",
				ExplorerURL: "https://onescan.cc",
			},
		},
		Reconcile: Reconcile{
			Interval: Seconds(2),
			Timeout:  Seconds(30),
		},
		Faucet: Faucet{
			Cooldown:    Seconds(60),
			SettleDelay: Seconds(2),
			Timeout:     Seconds(15),
		},
		Serve: Serve{
			ListenAddress: "127.0.0.1:8089",
			RateLimit:     RateLimit{RequestsPerMinute: 120, Burst: 20},
		},
		Logging: Logging{MaxSizeMB: 50, MaxBackups: 3},
	}
}

// Load reads the configuration at path. TOML is assumed unless the file has
// a .yaml or .yml extension. A missing file yields the defaults. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config: %s has unknown key %s", path, undecoded[0].String())
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("ONECOUPON_PACKAGE_ID"); ok {
		c.PackageID = v
	}
	if v, ok := get("ONECOUPON_DEFAULT_NETWORK"); ok {
		c.DefaultNetwork = v
	}
	if c.Networks == nil {
		c.Networks = map[string]Network{}
	}
	if v, ok := get("ONECOUPON_TESTNET_RPC_URL"); ok {
		n := c.Networks[NetworkTestnet]
		n.RPCURL = v
		c.Networks[NetworkTestnet] = n
	}
	if v, ok := get("ONECOUPON_MAINNET_RPC_URL"); ok {
		n := c.Networks[NetworkMainnet]
		n.RPCURL = v
		c.Networks[NetworkMainnet] = n
	}
	if v, ok := get("ONECOUPON_FAUCET_URL"); ok {
		n := c.Networks[NetworkTestnet]
		n.FaucetURL = v
		c.Networks[NetworkTestnet] = n
	}
	if v, ok := get("ONECOUPON_EXPLORER_URL"); ok {
		for name, n := range c.Networks {
			n.ExplorerURL = v
			c.Networks[name] = n
		}
	}
	if v, ok := get("ONECOUPON_KEYSTORE"); ok {
		c.KeystorePath = v
	}
	if v, ok := get("ONECOUPON_ENV"); ok {
		c.Logging.Env = v
	}
	if v, ok := get("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.Telemetry.Endpoint = v
	}
	if v, ok := get("OTEL_EXPORTER_OTLP_HEADERS"); ok {
		c.Telemetry.Headers = v
	}
}

func (c *Config) normalise() {
	c.DefaultNetwork = strings.ToLower(strings.TrimSpace(c.DefaultNetwork))
	c.PackageID = strings.TrimSpace(c.PackageID)
	if strings.TrimSpace(c.Module) == "" {
		c.Module = DefaultModule
	}
	if strings.TrimSpace(c.CoinType) == "" {
		c.CoinType = DefaultCoinType
	}
	for name, n := range c.Networks {
		n.RPCURL = strings.TrimSpace(n.RPCURL)
		n.FaucetURL = strings.TrimSpace(n.FaucetURL)
		n.ExplorerURL = strings.TrimRight(strings.TrimSpace(n.ExplorerURL), "/")
		c.Networks[name] = n
	}
}

// Network returns the named network, or the default network when name is
// empty.
func (c *Config) Network(name string) (Network, string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = c.DefaultNetwork
	}
	n, ok := c.Networks[name]
	if !ok {
		return Network{}, "", fmt.Errorf("config: unknown network %q", name)
	}
	return n, name, nil
}

// HasPackage reports whether the contract package id is configured.
func (c *Config) HasPackage() bool {
	return strings.TrimSpace(c.PackageID) != ""
}

func defaultKeystorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "onecoupon.keystore"
	}
	return filepath.Join(home, ".onecoupon", "wallet.keystore")
}
