package faucet

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"onecoupon/observability"
)

// DefaultCooldown separates two successful faucet requests.
const DefaultCooldown = 60 * time.Second

var (
	// ErrCoolingDown is returned without any network call while the
	// cooldown is running.
	ErrCoolingDown = errors.New("faucet: cooling down")
	// ErrInFlight is returned while another request is outstanding.
	ErrInFlight = errors.New("faucet: request in flight")
)

// Cooldown is a one-token bucket refilled once per period. A success spends
// the token; the next request is allowed once it has refilled.
type Cooldown struct {
	period  time.Duration
	limiter *rate.Limiter
}

// NewCooldown returns a ready cooldown of period.
func NewCooldown(period time.Duration) *Cooldown {
	if period <= 0 {
		period = DefaultCooldown
	}
	return &Cooldown{period: period, limiter: rate.NewLimiter(rate.Every(period), 1)}
}

// Ready reports whether a request may be issued at now.
func (c *Cooldown) Ready(now time.Time) bool {
	return c.limiter.TokensAt(now) >= 1
}

// Remaining returns the wait before the next request, rounded up to whole
// seconds.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	tokens := c.limiter.TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	secs := math.Ceil((1-tokens)*c.period.Seconds() - 1e-6)
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Start spends the token at now.
func (c *Cooldown) Start(now time.Time) {
	c.limiter.AllowN(now, 1)
}

// Requester is satisfied by *Client.
type Requester interface {
	Request(ctx context.Context, recipient string) (Result, error)
}

// Gate serialises faucet requests and applies the cooldown.
type Gate struct {
	requester Requester
	cooldown  *Cooldown
	now       func() time.Time
	metrics   *observability.ClientMetrics

	mu       sync.Mutex
	inFlight bool
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithGateMetrics records refused requests on m.
func WithGateMetrics(m *observability.ClientMetrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// NewGate wraps requester with cooldown.
func NewGate(requester Requester, cooldown *Cooldown, opts ...GateOption) *Gate {
	if cooldown == nil {
		cooldown = NewCooldown(DefaultCooldown)
	}
	g := &Gate{requester: requester, cooldown: cooldown, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Request issues a faucet request unless the cooldown is running or another
// request is outstanding. The cooldown starts only after a success.
func (g *Gate) Request(ctx context.Context, recipient string) (Result, error) {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return Result{}, ErrInFlight
	}
	if !g.cooldown.Ready(g.now()) {
		g.mu.Unlock()
		g.metrics.RecordFaucet("cooldown")
		return Result{}, ErrCoolingDown
	}
	g.inFlight = true
	g.mu.Unlock()

	res, err := g.requester.Request(ctx, recipient)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	if err != nil {
		return Result{}, err
	}
	g.cooldown.Start(g.now())
	return res, nil
}

// InFlight reports whether a request is outstanding.
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Remaining returns the cooldown left at the gate's current time.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldown.Remaining(g.now())
}
