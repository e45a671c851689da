package screens

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"onecoupon/faucet"
)

type stubFaucet struct {
	calls  atomic.Int32
	digest string
	err    error
}

func (s *stubFaucet) Request(context.Context, string) (faucet.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return faucet.Result{}, s.err
	}
	return faucet.Result{Digest: s.digest}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func faucetDeps(t *testing.T, node *fakeLedger, stub *stubFaucet, clock *testClock) Deps {
	t.Helper()
	deps := newDeps(t, node, &recordingWallet{})
	gate := faucet.NewGate(stub, faucet.NewCooldown(faucet.DefaultCooldown), faucet.WithClock(clock.Now))
	deps.Networks = StaticNetworks(map[string]Network{"testnet": {Ledger: node, Faucet: gate, ExplorerURL: "https://onescan.cc"}})
	deps.SettleDelay = time.Millisecond
	return deps
}

func TestFaucetCooldownDisablesButton(t *testing.T) {
	node := &fakeLedger{balance: "1500000000"}
	stub := &stubFaucet{digest: "FaucetDigest"}
	clock := &testClock{now: testNow}
	screen := NewFaucetScreen(faucetDeps(t, node, stub, clock))
	t.Cleanup(screen.Close)
	ctx := context.Background()

	view := screen.Render()
	require.Equal(t, LabelRequestTokens, view.ButtonLabel)
	require.False(t, view.ButtonDisabled)
	require.Equal(t, "0.000000", view.Balance)

	res, err := screen.Request(ctx)
	require.NoError(t, err)
	require.Equal(t, "FaucetDigest", res.Digest)

	view = screen.Render()
	require.Equal(t, "Wait 60s", view.ButtonLabel)
	require.True(t, view.ButtonDisabled)
	require.Equal(t, 60, view.CooldownSeconds)
	require.True(t, view.Outcome.Success)
	require.Equal(t, "Success! Received test tokens. Transaction: FaucetDigest", view.Outcome.Message)

	clock.Advance(15 * time.Second)
	_, err = screen.Request(ctx)
	require.ErrorIs(t, err, faucet.ErrCoolingDown)
	require.Equal(t, int32(1), stub.calls.Load())
	require.Equal(t, "Wait 45s", screen.Render().ButtonLabel)

	require.Eventually(t, func() bool {
		return screen.Render().Balance == "1.500000"
	}, time.Second, time.Millisecond)

	clock.Advance(45 * time.Second)
	require.Equal(t, LabelRequestTokens, screen.Render().ButtonLabel)
}

func TestFaucetErrorLeavesButtonEnabled(t *testing.T) {
	node := &fakeLedger{}
	stub := &stubFaucet{err: &faucet.Error{Status: 429, Message: "Too many requests"}}
	clock := &testClock{now: testNow}
	screen := NewFaucetScreen(faucetDeps(t, node, stub, clock))
	t.Cleanup(screen.Close)

	_, err := screen.Request(context.Background())
	require.Error(t, err)

	view := screen.Render()
	require.False(t, view.Outcome.Success)
	require.Equal(t, "Error: Too many requests", view.Outcome.Message)
	require.Equal(t, LabelRequestTokens, view.ButtonLabel)
	require.False(t, view.ButtonDisabled)
}

func TestFaucetRequiresConnectionAndFaucet(t *testing.T) {
	screen := NewFaucetScreen(newDeps(t, &fakeLedger{}, nil))
	_, err := screen.Request(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
	view := screen.Render()
	require.Equal(t, MsgConnectFaucet, view.Blocked)
	require.True(t, view.ButtonDisabled)

	screen = NewFaucetScreen(newDeps(t, &fakeLedger{}, &recordingWallet{}))
	_, err = screen.Request(context.Background())
	require.ErrorIs(t, err, ErrNoFaucet)
	require.Equal(t, MsgNoFaucet, screen.Render().Blocked)
}

func TestButtonLabel(t *testing.T) {
	require.Equal(t, LabelRequesting, ButtonLabel(true, 0))
	require.Equal(t, LabelRequesting, ButtonLabel(true, 10*time.Second))
	require.Equal(t, "Wait 7s", ButtonLabel(false, 7*time.Second))
	require.Equal(t, LabelRequestTokens, ButtonLabel(false, 0))
}
