package screens

import (
	"context"
	"strings"
	"sync"

	"onecoupon/coupon"
	"onecoupon/explorer"
	"onecoupon/ledger"
	"onecoupon/ptb"
	"onecoupon/wallet"
)

const (
	// MsgNoCoupons is shown when the account owns no coupons.
	MsgNoCoupons = "No coupons found. Get some coupons from merchants!"

	couponPageSize = 50
	maxCouponPages = 10
)

// CouponView is one row of the holdings list.
type CouponView struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Discount    string `json:"discount"`
	Uses        string `json:"uses"`
	Expires     string `json:"expires"`
	Merchant    string `json:"merchant"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Redeemable  bool   `json:"redeemable"`
	ExplorerURL string `json:"explorer_url"`
}

// Preview is the discount applied to an order total.
type Preview struct {
	OrderTotal string `json:"order_total"`
	Discount   string `json:"discount"`
	FinalTotal string `json:"final_total"`
}

// PreviewRedeem computes the discount of c on orderTotal OCT, rendered with
// three decimals.
func PreviewRedeem(c coupon.Coupon, orderTotal float64) Preview {
	return Preview{
		OrderTotal: coupon.FormatOCT3(orderTotal),
		Discount:   coupon.FormatOCT3(coupon.Discount(orderTotal, c.ValueBps)),
		FinalTotal: coupon.FormatOCT3(coupon.FinalTotal(orderTotal, c.ValueBps)),
	}
}

// RedeemView is the open redeem dialog.
type RedeemView struct {
	CouponID   string   `json:"coupon_id"`
	Code       string   `json:"code"`
	Discount   string   `json:"discount"`
	OrderTotal string   `json:"order_total"`
	Preview    *Preview `json:"preview,omitempty"`
	CanConfirm bool     `json:"can_confirm"`
	Submitting bool     `json:"submitting"`
}

// CouponsView is the rendered holdings screen.
type CouponsView struct {
	Network string       `json:"network"`
	Blocked string       `json:"blocked,omitempty"`
	Loading bool         `json:"loading"`
	Empty   string       `json:"empty,omitempty"`
	Coupons []CouponView `json:"coupons"`
	Dialog  *RedeemView  `json:"dialog,omitempty"`
	Outcome *Outcome     `json:"outcome,omitempty"`
}

type redeemDialog struct {
	coupon     coupon.Coupon
	orderTotal string
}

// CouponsScreen lists owned coupons and drives redemption.
type CouponsScreen struct {
	deps Deps
	gen  generation

	mu         sync.Mutex
	owner      string
	network    string
	loaded     bool
	coupons    []coupon.Coupon
	explorer   string
	dialog     *redeemDialog
	submitting bool
	outcome    *Outcome
}

// NewCouponsScreen builds the holdings screen.
func NewCouponsScreen(deps Deps) *CouponsScreen {
	return &CouponsScreen{deps: deps.withDefaults()}
}

// Refresh reloads every coupon owned by the connected account.
func (s *CouponsScreen) Refresh(ctx context.Context) error {
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
	structType := ledger.StructType(s.deps.Contract.PackageID, s.deps.Contract.Module, "Coupon")

	token := s.gen.next()
	var (
		all    []coupon.Coupon
		cursor string
	)
	for page := 0; page < maxCouponPages; page++ {
		res, err := net.Ledger.OwnedObjects(ctx, acct.Address, structType, cursor, couponPageSize)
		if err != nil {
			s.deps.Logger.Warn("coupon listing failed", "address", acct.Address, "network", name, "error", err)
			return err
		}
		all = append(all, res.Coupons()...)
		if !res.HasNextPage || res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	if !s.gen.latest(token) {
		s.deps.Logger.Debug("dropping stale coupon listing", "address", acct.Address)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = acct.Address
	s.network = name
	s.loaded = true
	s.coupons = all
	s.explorer = net.ExplorerURL
	return nil
}

// Coupons returns the last loaded coupons.
func (s *CouponsScreen) Coupons() []coupon.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coupon.Coupon(nil), s.coupons...)
}

// Find returns the loaded coupon with id.
func (s *CouponsScreen) Find(id string) (coupon.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *CouponsScreen) findLocked(id string) (coupon.Coupon, bool) {
	for _, c := range s.coupons {
		if c.ID == id {
			return c, true
		}
	}
	return coupon.Coupon{}, false
}

// OpenRedeem opens the redeem dialog for an active coupon.
func (s *CouponsScreen) OpenRedeem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findLocked(id)
	if !ok {
		return ErrUnknownCoupon
	}
	if !c.Redeemable(s.deps.Now()) {
		return ErrNotRedeemable
	}
	s.dialog = &redeemDialog{coupon: c}
	s.outcome = nil
	return nil
}

// SetOrderTotal stores the order total typed into the dialog, in OCT.
func (s *CouponsScreen) SetOrderTotal(total string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == nil {
		return ErrNoDialog
	}
	s.dialog.orderTotal = strings.TrimSpace(total)
	return nil
}

// Cancel closes the dialog without submitting.
func (s *CouponsScreen) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = nil
}

// ParseOrderTotal parses an order total typed in OCT. The preview and the
// submitted call both go through it, so anything previewed can be confirmed.
func ParseOrderTotal(raw string) (uint64, error) {
	mist, err := coupon.ParseOCT(raw)
	if err != nil || mist == 0 {
		return 0, ErrInvalidTotal
	}
	return mist, nil
}

// ConfirmRedeem submits the redemption for the open dialog. On success the
// dialog is closed and the list reloaded.
func (s *CouponsScreen) ConfirmRedeem(ctx context.Context) (wallet.Receipt, error) {
	s.mu.Lock()
	if s.dialog == nil {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrNoDialog
	}
	dialog := *s.dialog
	s.mu.Unlock()
	return s.redeem(ctx, dialog.coupon, dialog.orderTotal, true)
}

// Redeem submits a redemption of the loaded coupon id for total OCT without
// using the dialog. Callers serving several clients use it so requests never
// share dialog state.
func (s *CouponsScreen) Redeem(ctx context.Context, id, total string) (wallet.Receipt, error) {
	s.mu.Lock()
	c, ok := s.findLocked(id)
	s.mu.Unlock()
	if !ok {
		return wallet.Receipt{}, ErrUnknownCoupon
	}
	if !c.Redeemable(s.deps.Now()) {
		return wallet.Receipt{}, ErrNotRedeemable
	}
	return s.redeem(ctx, c, total, false)
}

func (s *CouponsScreen) redeem(ctx context.Context, c coupon.Coupon, total string, fromDialog bool) (wallet.Receipt, error) {
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

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return wallet.Receipt{}, ErrBusy
	}
	s.submitting = true
	s.outcome = nil
	s.mu.Unlock()

	mist, err := ParseOrderTotal(total)
	if err != nil {
		s.mu.Lock()
		s.submitting = false
		s.outcome = &Outcome{Message: "Invalid order total"}
		s.mu.Unlock()
		return wallet.Receipt{}, err
	}
	desc, err := ptb.Build(s.deps.Contract, ptb.RedeemFields{CouponID: c.ID, OrderTotal: mist})
	if err != nil {
		s.mu.Lock()
		s.submitting = false
		s.outcome = &Outcome{Message: validationMessage(err)}
		s.mu.Unlock()
		return wallet.Receipt{}, err
	}

	receipt, err := wallet.NewPendingCall(desc).Submit(ctx, w)
	if err != nil {
		s.mu.Lock()
		s.submitting = false
		s.outcome = &Outcome{Message: "Transaction failed: " + wallet.FailureMessage(err)}
		s.mu.Unlock()
		s.deps.Logger.Warn("coupon redemption failed", "object_id", c.ID, "error", err)
		return wallet.Receipt{}, err
	}
	s.mu.Lock()
	s.submitting = false
	s.outcome = &Outcome{Success: true, Message: "Coupon redeemed successfully! Transaction: " + receipt.Digest}
	if fromDialog {
		s.dialog = nil
	}
	s.mu.Unlock()

	_ = s.Refresh(ctx)
	return receipt, nil
}

// Render projects the screen state.
func (s *CouponsScreen) Render() CouponsView {
	acct := s.deps.Session.Account()
	network := s.deps.Session.Network()
	view := CouponsView{Network: network, Coupons: []CouponView{}}
	if !acct.Connected() {
		view.Blocked = MsgConnectCoupons
		return view
	}
	if s.deps.Contract.PackageID == "" {
		view.Blocked = MsgNoPackage
		return view
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	view.Outcome = s.outcome
	if !s.loaded || s.owner != acct.Address || s.network != network {
		view.Loading = true
		return view
	}
	now := s.deps.Now()
	for _, c := range s.coupons {
		status := c.Status(now)
		view.Coupons = append(view.Coupons, CouponView{
			ID:          c.ID,
			Code:        c.CodeText(),
			Discount:    coupon.PercentLabel(c.ValueBps) + " discount",
			Uses:        c.UsesLabel(),
			Expires:     explorer.DateLabel(c.ExpiresAt),
			Merchant:    explorer.ShortAddress(c.Merchant),
			Status:      string(status),
			StatusLabel: status.Label(),
			Redeemable:  c.Redeemable(now),
			ExplorerURL: explorer.ObjectURL(s.explorer, c.ID),
		})
	}
	if len(view.Coupons) == 0 {
		view.Empty = MsgNoCoupons
	}
	if s.dialog != nil {
		d := &RedeemView{
			CouponID:   s.dialog.coupon.ID,
			Code:       s.dialog.coupon.CodeText(),
			Discount:   coupon.PercentLabel(s.dialog.coupon.ValueBps),
			OrderTotal: s.dialog.orderTotal,
			Submitting: s.submitting,
		}
		if mist, err := ParseOrderTotal(s.dialog.orderTotal); err == nil {
			total := coupon.OCTFloat(mist)
			p := PreviewRedeem(s.dialog.coupon, total)
			d.Preview = &p
			d.CanConfirm = !s.submitting
		}
		view.Dialog = d
	}
	return view
}
