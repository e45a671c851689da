package screens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"onecoupon/coupon"
)

func sampleCoupons() []coupon.Coupon {
	return []coupon.Coupon{
		{ID: "0xc1", Code: []byte("SAVE20"), ValueBps: 2000, MaxUses: 1, ExpiresAt: testNow.Add(7 * 24 * time.Hour), Merchant: "0x00000000000000000000000000000000000000000000000000000000000000m1"},
		{ID: "0xc2", Code: []byte("WELCOME10"), ValueBps: 1000, MaxUses: 3, Used: 1, ExpiresAt: testNow.Add(-24 * time.Hour), Merchant: "0xm2"},
		{ID: "0xc3", Code: []byte("ONCE"), ValueBps: 500, MaxUses: 1, Used: 1, ExpiresAt: testNow.Add(time.Hour), Merchant: "0xm3"},
	}
}

func TestCouponsListing(t *testing.T) {
	node := &fakeLedger{coupons: sampleCoupons()}
	screen := NewCouponsScreen(newDeps(t, node, &recordingWallet{}))
	require.True(t, screen.Render().Loading)
	require.NoError(t, screen.Refresh(context.Background()))

	view := screen.Render()
	require.Len(t, view.Coupons, 3)
	require.Equal(t, "SAVE20", view.Coupons[0].Code)
	require.Equal(t, "20.00% discount", view.Coupons[0].Discount)
	require.Equal(t, "Active", view.Coupons[0].StatusLabel)
	require.True(t, view.Coupons[0].Redeemable)
	require.Equal(t, "Expired", view.Coupons[1].StatusLabel)
	require.Equal(t, "1/3", view.Coupons[1].Uses)
	require.Equal(t, "Used Up", view.Coupons[2].StatusLabel)
	require.False(t, view.Coupons[2].Redeemable)
	require.Empty(t, view.Empty)
}

func TestCouponsEmptyAndBlocked(t *testing.T) {
	screen := NewCouponsScreen(newDeps(t, &fakeLedger{}, nil))
	require.Equal(t, MsgConnectCoupons, screen.Render().Blocked)
	require.ErrorIs(t, screen.Refresh(context.Background()), ErrNotConnected)

	screen = NewCouponsScreen(newDeps(t, &fakeLedger{}, &recordingWallet{}))
	require.NoError(t, screen.Refresh(context.Background()))
	require.Equal(t, MsgNoCoupons, screen.Render().Empty)
}

func TestRedeemDiscountPreview(t *testing.T) {
	node := &fakeLedger{coupons: sampleCoupons()}
	w := &recordingWallet{digest: "RedeemDigest"}
	screen := NewCouponsScreen(newDeps(t, node, w))
	ctx := context.Background()
	require.NoError(t, screen.Refresh(ctx))

	require.ErrorIs(t, screen.OpenRedeem("0xc2"), ErrNotRedeemable)
	require.ErrorIs(t, screen.OpenRedeem("0xc3"), ErrNotRedeemable)
	require.ErrorIs(t, screen.OpenRedeem("0xnope"), ErrUnknownCoupon)
	require.NoError(t, screen.OpenRedeem("0xc1"))

	dialog := screen.Render().Dialog
	require.NotNil(t, dialog)
	require.Nil(t, dialog.Preview)
	require.False(t, dialog.CanConfirm)

	require.NoError(t, screen.SetOrderTotal("10.0"))
	dialog = screen.Render().Dialog
	require.NotNil(t, dialog.Preview)
	require.Equal(t, "2.000", dialog.Preview.Discount)
	require.Equal(t, "8.000", dialog.Preview.FinalTotal)
	require.True(t, dialog.CanConfirm)

	receipt, err := screen.ConfirmRedeem(ctx)
	require.NoError(t, err)
	require.Equal(t, "RedeemDigest", receipt.Digest)

	calls := w.submitted()
	require.Len(t, calls, 1)
	require.Equal(t, "redeem", calls[0].Function)
	require.Equal(t, "0xc1", calls[0].Arguments[0].Text)
	require.Equal(t, uint64(10_000_000_000), calls[0].Arguments[1].Uint)

	view := screen.Render()
	require.Nil(t, view.Dialog)
	require.True(t, view.Outcome.Success)
	require.Contains(t, view.Outcome.Message, "RedeemDigest")
}

func TestRedeemCancelAndInvalidTotal(t *testing.T) {
	node := &fakeLedger{coupons: sampleCoupons()}
	w := &recordingWallet{digest: "D"}
	screen := NewCouponsScreen(newDeps(t, node, w))
	ctx := context.Background()
	require.NoError(t, screen.Refresh(ctx))

	_, err := screen.ConfirmRedeem(ctx)
	require.ErrorIs(t, err, ErrNoDialog)

	require.NoError(t, screen.OpenRedeem("0xc1"))
	require.NoError(t, screen.SetOrderTotal("-3"))
	_, err = screen.ConfirmRedeem(ctx)
	require.ErrorIs(t, err, ErrInvalidTotal)
	require.NotNil(t, screen.Render().Dialog)

	screen.Cancel()
	require.Nil(t, screen.Render().Dialog)
	require.Empty(t, w.submitted())
}

func TestConcurrentRedeemSubmitsOnce(t *testing.T) {
	node := &fakeLedger{coupons: sampleCoupons()}
	w := &recordingWallet{digest: "D", hold: make(chan struct{})}
	screen := NewCouponsScreen(newDeps(t, node, w))
	ctx := context.Background()
	require.NoError(t, screen.Refresh(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := screen.Redeem(ctx, "0xc1", "10")
		done <- err
	}()
	require.Eventually(t, func() bool { return len(w.submitted()) == 1 }, time.Second, time.Millisecond)

	_, err := screen.Redeem(ctx, "0xc1", "99")
	require.ErrorIs(t, err, ErrBusy)
	require.NoError(t, screen.OpenRedeem("0xc1"))
	require.NoError(t, screen.SetOrderTotal("5"))
	_, err = screen.ConfirmRedeem(ctx)
	require.ErrorIs(t, err, ErrBusy)

	close(w.hold)
	require.NoError(t, <-done)
	calls := w.submitted()
	require.Len(t, calls, 1)
	require.Equal(t, uint64(10_000_000_000), calls[0].Arguments[1].Uint)
	require.NotNil(t, screen.Render().Dialog, "Redeem leaves the dialog untouched")
}

func TestRedeemValidatesLikePreview(t *testing.T) {
	node := &fakeLedger{coupons: sampleCoupons()}
	w := &recordingWallet{digest: "D"}
	screen := NewCouponsScreen(newDeps(t, node, w))
	ctx := context.Background()
	require.NoError(t, screen.Refresh(ctx))
	require.NoError(t, screen.OpenRedeem("0xc1"))

	for _, total := range []string{"NaN", "Inf", "1e3", "0", "-1", "1.0000000001"} {
		require.NoError(t, screen.SetOrderTotal(total))
		dialog := screen.Render().Dialog
		require.Nil(t, dialog.Preview, total)
		require.False(t, dialog.CanConfirm, total)
		_, err := screen.ConfirmRedeem(ctx)
		require.ErrorIs(t, err, ErrInvalidTotal, total)
	}
	_, err := screen.Redeem(ctx, "0xc1", "NaN")
	require.ErrorIs(t, err, ErrInvalidTotal)
	_, err = screen.Redeem(ctx, "0xc3", "10")
	require.ErrorIs(t, err, ErrNotRedeemable)
	_, err = screen.Redeem(ctx, "0xff", "10")
	require.ErrorIs(t, err, ErrUnknownCoupon)
	require.Empty(t, w.submitted())

	require.NoError(t, screen.SetOrderTotal("12.5"))
	require.Equal(t, "2.500", screen.Render().Dialog.Preview.Discount)
}

func TestPreviewRedeem(t *testing.T) {
	p := PreviewRedeem(coupon.Coupon{ValueBps: 2000}, 10.0)
	require.Equal(t, Preview{OrderTotal: "10.000", Discount: "2.000", FinalTotal: "8.000"}, p)
}

func TestStaleListingIsDropped(t *testing.T) {
	first := make(chan struct{})
	node := &fakeLedger{
		coupons: sampleCoupons()[:1],
		block:   map[int]chan struct{}{1: first},
	}
	screen := NewCouponsScreen(newDeps(t, node, &recordingWallet{}))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- screen.Refresh(ctx) }()
	require.Eventually(t, func() bool {
		node.mu.Lock()
		defer node.mu.Unlock()
		return node.ownedCalls == 1
	}, time.Second, time.Millisecond)

	node.mu.Lock()
	node.coupons = sampleCoupons()
	node.mu.Unlock()
	require.NoError(t, screen.Refresh(ctx))
	require.Len(t, screen.Render().Coupons, 3)

	close(first)
	require.NoError(t, <-done)
	require.Len(t, screen.Render().Coupons, 3, "older in-flight result must not overwrite a newer one")
}
