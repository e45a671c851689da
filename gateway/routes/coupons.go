package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"onecoupon/coupon"
	"onecoupon/gateway/middleware"
	"onecoupon/screens"
)

func (a *api) coupons(w http.ResponseWriter, r *http.Request) {
	if err := a.screens.Coupons.Refresh(r.Context()); err != nil {
		a.logger.Debug("coupon refresh failed", "error", err)
	}
	a.respond(w, r, http.StatusOK, "", nil, a.screens.Coupons.Render())
}

// find returns the coupon with id, reloading the listing once on a miss.
func (a *api) find(r *http.Request, id string) (coupon.Coupon, error) {
	if c, ok := a.screens.Coupons.Find(id); ok {
		return c, nil
	}
	if err := a.screens.Coupons.Refresh(r.Context()); err != nil {
		return coupon.Coupon{}, err
	}
	if c, ok := a.screens.Coupons.Find(id); ok {
		return c, nil
	}
	return coupon.Coupon{}, screens.ErrUnknownCoupon
}

type previewResponse struct {
	CouponID string `json:"coupon_id"`
	screens.Preview
}

func (a *api) preview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mist, err := screens.ParseOrderTotal(r.URL.Query().Get("total"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.find(r, id)
	if err != nil {
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, previewResponse{CouponID: c.ID, Preview: screens.PreviewRedeem(c, coupon.OCTFloat(mist))})
}

func (a *api) issue(w http.ResponseWriter, r *http.Request) {
	var form screens.IssueForm
	if err := decodeBody(r, &form); err != nil {
		a.respond(w, r, http.StatusBadRequest, "", err, a.screens.Issue.Render())
		return
	}
	if strings.TrimSpace(form.Code) == "" {
		form.Code = screens.NewCouponCode()
	}
	receipt, err := a.screens.Issue.SubmitForm(r.Context(), form)
	a.respond(w, r, http.StatusOK, receipt.Digest, err, a.screens.Issue.Render())
}

type redeemRequest struct {
	OrderTotal string `json:"order_total"`
}

func (a *api) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeBody(r, &req); err != nil {
		a.respond(w, r, http.StatusBadRequest, "", err, a.screens.Coupons.Render())
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.find(r, id); err != nil {
		a.respond(w, r, http.StatusOK, "", err, a.screens.Coupons.Render())
		return
	}
	receipt, err := a.screens.Coupons.Redeem(r.Context(), id, req.OrderTotal)
	a.respond(w, r, http.StatusOK, receipt.Digest, err, a.screens.Coupons.Render())
}
