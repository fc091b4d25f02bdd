package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// ApplicableCoupons handles POST /coupons/applicable-coupons: evaluates every
// active coupon against the submitted cart and reports those that yield a
// positive discount.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	var req CartJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "Error in forming Request Body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart items required", "Constraints Not Fulfilled")
		return
	}

	applicable, err := h.svc.ListApplicable(r.Context(), req.toDomainCart())
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}

	out := make([]ApplicableCouponJSON, len(applicable))
	for i, a := range applicable {
		out[i] = ApplicableCouponJSON{
			Coupon:   domainToCouponJSON(&a.Coupon),
			Discount: a.Discount.InexactFloat64(),
			Message:  a.Message,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ApplyCoupon handles POST /coupons/apply-coupon/{id}: applies one coupon to
// the submitted cart and returns the discounted cart. The cart total is
// derived from the line items.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "Error in forming Request Body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart items required", "Constraints Not Fulfilled")
		return
	}

	items := toDomainItems(req.Items)
	crt := cart.Cart{
		ID:          req.CartID,
		Items:       items,
		TotalAmount: cart.TotalOf(items),
	}

	updated, err := h.svc.ApplyByID(r.Context(), chi.URLParam(r, "id"), crt)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domainToCartJSON(updated))
}
