package screens

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"onecoupon/coupon"
	"onecoupon/ledger"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/wallet"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// Registration messages.
const (
	MsgRegistrationPending  = "Waiting for the merchant object to appear on the ledger..."
	MsgRegistrationDone     = "Merchant registered successfully!"
	MsgRegistrationTimedOut = "Merchant registration is taking longer than expected. Check again or continue anyway."
	MsgRegistrationAssumed  = "Continuing without confirmation. The merchant will appear once the ledger catches up."
)

// IssueForm is the coupon issuance form.
type IssueForm struct {
	Recipient string    `json:"recipient"`
	Code      string    `json:"code"`
	ValueBps  int       `json:"value_bps"`
	MaxUses   int       `json:"max_uses"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegistrationView reports merchant registration progress.
type RegistrationView struct {
	State         string `json:"state"`
	Digest        string `json:"digest,omitempty"`
	Message       string `json:"message,omitempty"`
	CanCheckAgain bool   `json:"can_check_again"`
	CanContinue   bool   `json:"can_continue"`
}

// IssueView is the rendered issuance screen.
type IssueView struct {
	Network       string            `json:"network"`
	Blocked       string            `json:"blocked,omitempty"`
	Loading       bool              `json:"loading"`
	CanRegister   bool              `json:"can_register"`
	MerchantID    string            `json:"merchant_id,omitempty"`
	Optimistic    bool              `json:"optimistic"`
	Registration  *RegistrationView `json:"registration,omitempty"`
	Form          IssueForm         `json:"form"`
	DiscountLabel string            `json:"discount_label,omitempty"`
	Submitting    bool              `json:"submitting"`
	ButtonLabel   string            `json:"button_label"`
	Outcome       *Outcome          `json:"outcome,omitempty"`
}

// IssueScreen lets a merchant register and issue coupons.
type IssueScreen struct {
	deps Deps
	gen  generation

	mu          sync.Mutex
	owner       string
	network     string
	loaded      bool
	merchant    *coupon.Merchant
	form        IssueForm
	submitting  bool
	registering bool
	outcome     *Outcome

	loop       *reconcile.Loop
	regState   reconcile.State
	regDigest  string
	regMessage string
	optimistic bool
}

// NewIssueScreen builds the issuance screen.
func NewIssueScreen(deps Deps) *IssueScreen {
	return &IssueScreen{deps: deps.withDefaults()}
}

func (s *IssueScreen) merchantType() string {
	return ledger.StructType(s.deps.Contract.PackageID, s.deps.Contract.Module, "Merchant")
}

func (s *IssueScreen) lookupMerchant(ctx context.Context, owner string, net Network) (*coupon.Merchant, error) {
	res, err := net.Ledger.OwnedObjects(ctx, owner, s.merchantType(), "", 1)
	if err != nil {
		return nil, err
	}
	merchants := res.Merchants()
	if len(merchants) == 0 {
		return nil, nil
	}
	m := merchants[0]
	return &m, nil
}

// Refresh discovers whether the connected account owns a Merchant object.
func (s *IssueScreen) Refresh(ctx context.Context) error {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		return ErrNotConnected
	}
	if s.deps.Contract.PackageID == "" {
		return ErrNoPackage
	}
	name, net, err := s.deps.network()
	if err != nil {
		return err
	}
	token := s.gen.next()
	m, err := s.lookupMerchant(ctx, acct.Address, net)
	if err != nil {
		s.deps.Logger.Warn("merchant lookup failed", "address", acct.Address, "network", name, "error", err)
		return err
	}
	if !s.gen.latest(token) {
		s.deps.Logger.Debug("dropping stale merchant lookup", "address", acct.Address)
		return nil
	}
	s.mu.Lock()
	s.setMerchantLocked(acct.Address, name, m)
	s.mu.Unlock()
	return nil
}

func (s *IssueScreen) setMerchantLocked(owner, network string, m *coupon.Merchant) {
	s.owner = owner
	s.network = network
	s.loaded = true
	s.merchant = m
}

// currentLocked reports the cached merchant when it belongs to the current
// account and network.
func (s *IssueScreen) currentLocked(owner, network string) (*coupon.Merchant, bool) {
	if !s.loaded || s.owner != owner || s.network != network {
		return nil, false
	}
	return s.merchant, true
}

// SetForm replaces the form contents.
func (s *IssueScreen) SetForm(form IssueForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form
}

// Form returns the current form contents.
func (s *IssueScreen) Form() IssueForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// NewCouponCode returns eight random characters from A-Z and 0-9.
func NewCouponCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}

// GenerateCode fills the code field with a fresh code and returns it.
func (s *IssueScreen) GenerateCode() string {
	code := NewCouponCode()
	s.mu.Lock()
	s.form.Code = code
	s.mu.Unlock()
	return code
}

// Submit issues a coupon from the screen's form. On success the form is
// cleared.
func (s *IssueScreen) Submit(ctx context.Context) (wallet.Receipt, error) {
	return s.issue(ctx, nil)
}

// SubmitForm issues a coupon from form without touching the screen's own
// form. Callers serving several clients use it so one request cannot submit
// another's input.
func (s *IssueScreen) SubmitForm(ctx context.Context, form IssueForm) (wallet.Receipt, error) {
	return s.issue(ctx, &form)
}

// issue checks prerequisites, then local validation, then builds the call
// and hands it to the wallet. Only one issuance runs at a time: the busy
// flag is claimed before the merchant lookup and released on every return.
func (s *IssueScreen) issue(ctx context.Context, input *IssueForm) (wallet.Receipt, error) {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		return wallet.Receipt{}, ErrNotConnected
	}
	if s.deps.Contract.PackageID == "" {
		return wallet.Receipt{}, ErrNoPackage
	}
	w, err := s.deps.Session.Wallet()
	if err != nil {
		return wallet.Receipt{}, ErrNotConnected
	}
	name, net, err := s.deps.network()
	if err != nil {
		return wallet.Receipt{}, err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrBusy
	}
	s.submitting = true
	s.outcome = nil
	merchant, _ := s.currentLocked(acct.Address, name)
	form := s.form
	if input != nil {
		form = *input
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	if merchant == nil {
		m, err := s.lookupMerchant(ctx, acct.Address, net)
		if err != nil {
			s.deps.Logger.Warn("merchant lookup failed", "address", acct.Address, "error", err)
		}
		if m == nil {
			return wallet.Receipt{}, ErrNoMerchant
		}
		s.gen.next()
		s.mu.Lock()
		s.setMerchantLocked(acct.Address, name, m)
		s.mu.Unlock()
		merchant = m
	}

	desc, err := ptb.Build(s.deps.Contract, ptb.IssueFields{
		MerchantID: merchant.ID,
		Recipient:  form.Recipient,
		Code:       form.Code,
		ValueBps:   form.ValueBps,
		MaxUses:    form.MaxUses,
		ExpiresAt:  form.ExpiresAt,
	})
	if err != nil {
		s.mu.Lock()
		s.outcome = &Outcome{Message: validationMessage(err)}
		s.mu.Unlock()
		return wallet.Receipt{}, err
	}

	receipt, err := wallet.NewPendingCall(desc).Submit(ctx, w)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.deps.Logger.Warn("coupon issuance failed", "address", acct.Address, "error", err)
		s.outcome = &Outcome{Message: "Transaction failed: " + wallet.FailureMessage(err)}
		return wallet.Receipt{}, err
	}
	s.outcome = &Outcome{Success: true, Message: "Coupon issued successfully! Transaction: " + receipt.Digest}
	if input == nil {
		s.form = IssueForm{}
	}
	return receipt, nil
}

// RegisterMerchant submits the one-time merchant registration and starts
// polling for the Merchant object.
func (s *IssueScreen) RegisterMerchant(ctx context.Context) (wallet.Receipt, error) {
	acct := s.deps.Session.Account()
	if !acct.Connected() {
		return wallet.Receipt{}, ErrNotConnected
	}
	if s.deps.Contract.PackageID == "" {
		return wallet.Receipt{}, ErrNoPackage
	}
	w, err := s.deps.Session.Wallet()
	if err != nil {
		return wallet.Receipt{}, ErrNotConnected
	}
	name, net, err := s.deps.network()
	if err != nil {
		return wallet.Receipt{}, err
	}
	desc, err := ptb.Build(s.deps.Contract, ptb.MerchantFields{Owner: acct.Address})
	if err != nil {
		return wallet.Receipt{}, err
	}

	s.mu.Lock()
	if s.registering || (s.loop != nil && s.loop.State() == reconcile.AwaitingConfirmation) {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrBusy
	}
	// A timed-out registration may still land; only CheckAgain or
	// ContinueAnyway move it forward.
	if s.loop != nil && s.loop.State() == reconcile.TimedOut {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrRegistrationUnsettled
	}
	if m, _ := s.currentLocked(acct.Address, name); m != nil {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrMerchantExists
	}
	s.registering = true
	s.outcome = nil
	previous := s.loop
	s.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}

	receipt, err := wallet.NewPendingCall(desc).Submit(ctx, w)
	if err != nil {
		s.mu.Lock()
		s.registering = false
		s.outcome = &Outcome{Message: "Transaction failed: " + wallet.FailureMessage(err)}
		s.mu.Unlock()
		return wallet.Receipt{}, err
	}

	owner := acct.Address
	lookup := func(ctx context.Context) (bool, error) {
		m, err := s.lookupMerchant(ctx, owner, net)
		if err != nil || m == nil {
			return false, err
		}
		s.gen.next()
		s.mu.Lock()
		s.setMerchantLocked(owner, name, m)
		s.mu.Unlock()
		return true, nil
	}
	opts := append([]reconcile.Option{
		reconcile.WithLogger(s.deps.Logger),
	}, s.deps.Reconcile...)
	opts = append(opts, reconcile.WithObserver(s.onRegistration))
	loop := reconcile.New(lookup, opts...)

	s.mu.Lock()
	s.registering = false
	s.loop = loop
	s.regDigest = receipt.Digest
	s.optimistic = false
	s.outcome = &Outcome{Success: true, Message: "Merchant registration submitted! Transaction: " + receipt.Digest}
	s.mu.Unlock()

	if err := loop.Start(context.WithoutCancel(ctx)); err != nil {
		return receipt, err
	}
	return receipt, nil
}

func (s *IssueScreen) onRegistration(state reconcile.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regState = state
	switch state {
	case reconcile.AwaitingConfirmation:
		s.regMessage = MsgRegistrationPending
	case reconcile.Confirmed:
		s.regMessage = MsgRegistrationDone
	case reconcile.TimedOut:
		s.regMessage = MsgRegistrationTimedOut
	default:
		s.regMessage = ""
	}
}

// WaitRegistration blocks until the registration loop settles or ctx ends.
func (s *IssueScreen) WaitRegistration(ctx context.Context) (reconcile.State, error) {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop == nil {
		return reconcile.Idle, nil
	}
	return loop.Wait(ctx)
}

func (s *IssueScreen) timedOutLoop() (*reconcile.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop == nil || s.loop.State() != reconcile.TimedOut {
		return nil, ErrNotTimedOut
	}
	return s.loop, nil
}

// CheckAgain restarts polling after a timeout.
func (s *IssueScreen) CheckAgain(ctx context.Context) error {
	loop, err := s.timedOutLoop()
	if err != nil {
		return err
	}
	return loop.Start(context.WithoutCancel(ctx))
}

// ContinueAnyway stops waiting after a timeout and unblocks the form. The
// merchant object is looked up again on submit.
func (s *IssueScreen) ContinueAnyway() error {
	if _, err := s.timedOutLoop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optimistic = true
	s.regMessage = MsgRegistrationAssumed
	return nil
}

// Close stops any registration polling. The screen must not be used after.
func (s *IssueScreen) Close() {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

// Render projects the screen state.
func (s *IssueScreen) Render() IssueView {
	acct := s.deps.Session.Account()
	network := s.deps.Session.Network()
	view := IssueView{Network: network, ButtonLabel: "Issue Coupon"}
	if !acct.Connected() {
		view.Blocked = MsgConnectIssue
		return view
	}
	if s.deps.Contract.PackageID == "" {
		view.Blocked = MsgNoPackage
		return view
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view.Outcome = s.outcome
	if s.loop != nil && s.regState != reconcile.Idle {
		view.Registration = &RegistrationView{
			State:         s.regState.String(),
			Digest:        s.regDigest,
			Message:       s.regMessage,
			CanCheckAgain: s.regState == reconcile.TimedOut,
			CanContinue:   s.regState == reconcile.TimedOut && !s.optimistic,
		}
	}
	merchant, loaded := s.currentLocked(acct.Address, network)
	awaiting := s.regState == reconcile.AwaitingConfirmation
	switch {
	case merchant != nil:
		view.MerchantID = merchant.ID
	case s.optimistic:
		view.Optimistic = true
	case !loaded && !awaiting:
		view.Loading = true
		return view
	default:
		view.Blocked = MsgNoMerchant
		view.CanRegister = !awaiting && !s.registering && s.regState != reconcile.TimedOut
		return view
	}

	view.Form = s.form
	if s.form.ValueBps > 0 && s.form.ValueBps <= coupon.BasisPointsScale {
		view.DiscountLabel = "= " + coupon.PercentLabel(uint16(s.form.ValueBps)) + " discount"
	}
	view.Submitting = s.submitting
	if s.submitting {
		view.ButtonLabel = "Issuing..."
	}
	return view
}
