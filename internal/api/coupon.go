package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "Error in forming Request Body")
		return
	}

	created, err := h.svc.Create(r.Context(), req.toDomainCoupon())
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domainToCouponJSON(created))
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.List(r.Context())
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, couponsToJSON(coupons))
}

// ListActiveCoupons handles GET /coupons/active-coupons.
func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, couponsToJSON(coupons))
}

// GetCoupon handles GET /coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domainToCouponJSON(c))
}

// UpdateCoupon handles PUT /coupons/{id}. Only metadata fields are mutable.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req UpdateCouponJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "Error in forming Request Body")
		return
	}

	params := coupon.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		ValidFrom:   req.ValidFrom,
		ValidTo:     req.ValidTo,
		Active:      true,
	}
	if req.Active != nil {
		params.Active = *req.Active
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domainToCouponJSON(updated))
}

// DeleteCoupon handles DELETE /coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeCouponError maps domain errors to HTTP failure responses.
func (h *Handler) writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	var notApplicable *coupon.NotApplicableError

	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "Coupon Not Available")
	case errors.As(err, &notApplicable):
		writeError(w, http.StatusNotFound, err.Error(), "Coupon Not Applicable")
	case errors.Is(err, coupon.ErrCodeExists):
		writeError(w, http.StatusConflict, err.Error(), "Duplicate Coupon Code")
	case errors.Is(err, coupon.ErrInvalidDefinition):
		writeError(w, http.StatusBadRequest, err.Error(), "Constraints Not Fulfilled")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "Something went wrong...")
	}
}

func couponsToJSON(coupons []coupon.Coupon) []CouponJSON {
	out := make([]CouponJSON, len(coupons))
	for i := range coupons {
		out[i] = domainToCouponJSON(&coupons[i])
	}
	return out
}
