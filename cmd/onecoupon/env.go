package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"onecoupon/cmd/internal/passphrase"
	"onecoupon/config"
	"onecoupon/crypto"
	"onecoupon/faucet"
	"onecoupon/ledger"
	"onecoupon/observability"
	"onecoupon/observability/logging"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/screens"
	"onecoupon/wallet"
)

// ledgerNode is the full ledger surface the CLI drives.
type ledgerNode interface {
	screens.Ledger
	wallet.Node
}

// Swappable in tests.
var (
	loadConfig    = config.Load
	newPassphrase = func() *passphrase.Source { return passphrase.NewSource(passphrase.EnvVar) }
	dialNode      = func(e *cliEnv) (ledgerNode, error) {
		return ledger.New(e.endpoints.RPCURL, ledger.WithLogger(e.logger), ledger.WithMetrics(e.metrics))
	}
	dialFaucet = func(e *cliEnv) (faucet.Requester, error) {
		return faucet.New(e.endpoints.FaucetURL,
			faucet.WithLogger(e.logger),
			faucet.WithMetrics(e.metrics))
	}
	loadSigningKey = func(e *cliEnv) (*crypto.PrivateKey, error) {
		path := e.cfg.KeystorePath
		if !crypto.KeystoreExists(path) {
			return nil, fmt.Errorf("no keystore at %s; run generate-key or import-key first", path)
		}
		source := newPassphrase()
		pass, err := source.Get()
		if err != nil {
			return nil, err
		}
		e.logger.Debug("unlocking keystore", "path", path, "passphrase_source", source)
		return crypto.LoadFromKeystore(path, pass)
	}
)

var errNoFaucetURL = errors.New("no faucet is configured for this network")

type cliEnv struct {
	cfg       *config.Config
	network   string
	endpoints config.Network
	logger    *slog.Logger
	metrics   *observability.ClientMetrics
}

func newEnv(g globals, logOutput io.Writer, level slog.Level) (*cliEnv, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	endpoints, name, err := cfg.Network(g.network)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup("onecoupon", cfg.Logging.Env, logging.Options{
		Output:     logOutput,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Level:      level,
	}).With("network", name)
	return &cliEnv{
		cfg:       cfg,
		network:   name,
		endpoints: endpoints,
		logger:    logger,
		metrics:   observability.Client(),
	}, nil
}

func (e *cliEnv) contract() ptb.Config {
	return ptb.Config{PackageID: e.cfg.PackageID, Module: e.cfg.Module}
}

// gate wraps the faucet client in the client-side cooldown. It is nil when
// the network has no faucet.
func (e *cliEnv) gate() (*faucet.Gate, error) {
	if e.endpoints.FaucetURL == "" {
		return nil, nil
	}
	requester, err := dialFaucet(e)
	if err != nil {
		return nil, err
	}
	return faucet.NewGate(requester, faucet.NewCooldown(e.cfg.Faucet.Cooldown.Duration), faucet.WithGateMetrics(e.metrics)), nil
}

// session connects a key wallet for the keystore when withKey is set.
func (e *cliEnv) session(node ledgerNode, withKey bool) (*wallet.Session, error) {
	session := wallet.NewSession(e.network, e.network)
	if !withKey {
		return session, nil
	}
	key, err := loadSigningKey(e)
	if err != nil {
		return nil, err
	}
	w, err := wallet.NewKeyWallet(key, node,
		wallet.WithGasBudget(e.cfg.GasBudget),
		wallet.WithLogger(e.logger),
		wallet.WithMetrics(e.metrics))
	if err != nil {
		return nil, err
	}
	session.Connect(w)
	return session, nil
}

func (e *cliEnv) deps(session *wallet.Session, node ledgerNode, gate *faucet.Gate) screens.Deps {
	return screens.Deps{
		Session: session,
		Networks: screens.StaticNetworks(map[string]screens.Network{e.network: {
			Ledger:      node,
			Faucet:      gate,
			ExplorerURL: e.endpoints.ExplorerURL,
		}}),
		Contract: e.contract(),
		CoinType: e.cfg.CoinType,
		Reconcile: []reconcile.Option{
			reconcile.WithInterval(e.cfg.Reconcile.Interval.Duration),
			reconcile.WithTimeout(e.cfg.Reconcile.Timeout.Duration),
			reconcile.WithMetrics(e.metrics),
		},
		SettleDelay: e.cfg.Faucet.SettleDelay.Duration,
		Now:         time.Now,
		Logger:      e.logger,
	}
}

// connected loads config, dials the ledger and connects the keystore wallet.
func connected(g globals, stderr io.Writer) (*cliEnv, ledgerNode, screens.Deps, error) {
	e, err := newEnv(g, stderr, slog.LevelWarn)
	if err != nil {
		return nil, nil, screens.Deps{}, err
	}
	node, err := dialNode(e)
	if err != nil {
		return nil, nil, screens.Deps{}, err
	}
	session, err := e.session(node, true)
	if err != nil {
		return nil, nil, screens.Deps{}, err
	}
	return e, node, e.deps(session, node, nil), nil
}

func fail(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, screens.ErrNoPackage), errors.Is(err, ptb.ErrMissingPackage):
		fmt.Fprintf(stderr, "Error: %s\n", screens.MsgNoPackage)
	case errors.Is(err, screens.ErrNoMerchant):
		fmt.Fprintf(stderr, "Error: %s\n", screens.MsgNoMerchant)
	default:
		fmt.Fprintf(stderr, "Error: %s\n", wallet.FailureMessage(err))
	}
	return 1
}
