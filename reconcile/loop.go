// Package reconcile bridges the window between a mutation being accepted by
// the ledger and the mutated state becoming visible to reads. A Loop re-runs
// one read lookup on a fixed interval until it matches or a deadline passes.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"onecoupon/observability"
	"onecoupon/observability/logging"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 30 * time.Second
)

var (
	// ErrAlreadyAwaiting is returned by Start while a confirmation is pending.
	ErrAlreadyAwaiting = errors.New("reconcile: confirmation already pending")
	// ErrSettled is returned by Start once the loop has confirmed.
	ErrSettled = errors.New("reconcile: already confirmed")
)

// State is the position of the loop in Idle -> AwaitingConfirmation ->
// {Confirmed, TimedOut}.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
	Confirmed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case Confirmed:
		return "confirmed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a confirmation attempt.
func (s State) Terminal() bool {
	return s == Confirmed || s == TimedOut
}

// Lookup re-issues the read query. It reports whether the expected record is
// visible. Errors are treated as transient.
type Lookup func(ctx context.Context) (bool, error)

// Loop is a single-confirmation polling state machine. It owns at most one
// goroutine, one ticker and one deadline at a time.
type Loop struct {
	lookup    Lookup
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.ClientMetrics
	observer func(State)

	mu     sync.Mutex
	state  State
	polls  int
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithTimeout sets the total wait budget.
func WithTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger used for lookup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithMetrics records terminal outcomes on m.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// WithObserver registers fn to be called after every state transition. fn
// runs on the loop goroutine and must not call back into the Loop's Stop.
func WithObserver(fn func(State)) Option {
	return func(l *Loop) {
		l.observer = fn
	}
}

// New returns an idle loop around lookup.
func New(lookup Lookup, opts ...Option) *Loop {
	l := &Loop{
		lookup:    lookup,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.logger == nil {
		l.logger = logging.Discard()
	}
	return l
}

// Start begins polling. It is accepted from Idle and from TimedOut, the
// latter being the user's "check again".
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case AwaitingConfirmation:
		l.mu.Unlock()
		return ErrAlreadyAwaiting
	case Confirmed:
		l.mu.Unlock()
		return ErrSettled
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.state = AwaitingConfirmation
	l.polls = 0
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	l.notify(AwaitingConfirmation)
	go l.run(runCtx, cancel, done)
	return nil
}

func (l *Loop) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	deadline, cancelDeadline := context.WithTimeout(ctx, l.timeout)
	defer cancelDeadline()

	for {
		select {
		case <-deadline.Done():
			if ctx.Err() != nil {
				l.finish(Idle)
			} else {
				l.finish(TimedOut)
			}
			return
		case <-ticker.C:
			l.mu.Lock()
			l.polls++
			poll := l.polls
			l.mu.Unlock()

			matched, err := l.lookup(deadline)
			if err != nil {
				if deadline.Err() == nil {
					l.logger.Warn("reconcile lookup failed", "poll", poll, "error", err)
				}
				continue
			}
			if matched {
				l.finish(Confirmed)
				return
			}
		}
	}
}

func (l *Loop) finish(next State) {
	l.mu.Lock()
	if l.state != AwaitingConfirmation {
		l.mu.Unlock()
		return
	}
	l.state = next
	l.cancel = nil
	polls := l.polls
	l.mu.Unlock()

	if next.Terminal() {
		l.metrics.RecordReconcile(next.String(), polls)
		l.logger.Info("reconcile settled", "state", next.String(), "polls", polls)
	}
	l.notify(next)
}

func (l *Loop) notify(s State) {
	if l.observer != nil {
		l.observer(s)
	}
}

// Stop cancels a pending confirmation and waits for the goroutine to exit.
// A pending loop returns to Idle; settled loops are unaffected.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the current attempt leaves AwaitingConfirmation or ctx
// ends, and returns the state at that point.
func (l *Loop) Wait(ctx context.Context) (State, error) {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return l.State(), nil
	}
	select {
	case <-done:
		return l.State(), nil
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Polls returns how many lookups the current attempt has issued.
func (l *Loop) Polls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.polls
}
