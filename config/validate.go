package config

import (
	"fmt"
	"strings"
	"time"
)

// MinReconcileInterval bounds how aggressively the ledger may be polled.
var MinReconcileInterval = 100 * time.Millisecond

// Validate checks the configuration for values the client cannot run with.
// A missing PackageID is not an error here; screens surface it as a blocking
// prerequisite instead.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("config: no networks configured")
	}
	if _, ok := c.Networks[c.DefaultNetwork]; !ok {
		return fmt.Errorf("config: default network %q is not configured", c.DefaultNetwork)
	}
	for name, n := range c.Networks {
		if strings.TrimSpace(n.RPCURL) == "" {
			return fmt.Errorf("config: network %s: rpc url required", name)
		}
	}
	if c.Reconcile.Interval.Duration < MinReconcileInterval {
		return fmt.Errorf("config: reconcile.interval must be at least %s", MinReconcileInterval)
	}
	if c.Reconcile.Timeout.Duration <= c.Reconcile.Interval.Duration {
		return fmt.Errorf("config: reconcile.timeout must exceed reconcile.interval")
	}
	if c.Faucet.Cooldown.Duration <= 0 {
		return fmt.Errorf("config: faucet.cooldown must be positive")
	}
	if c.Faucet.SettleDelay.Duration < 0 {
		return fmt.Errorf("config: faucet.settle_delay must not be negative")
	}
	if c.GasBudget == 0 {
		return fmt.Errorf("config: gas budget must be positive")
	}
	if c.Serve.Auth.Enabled && strings.TrimSpace(c.Serve.Auth.HMACSecret) == "" {
		return fmt.Errorf("config: serve.auth enabled without hmac_secret")
	}
	return nil
}
