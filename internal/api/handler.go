// Package api exposes the coupon service over HTTP using chi routing.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Handler serves the coupon management and discount evaluation endpoints.
type Handler struct {
	svc      *coupon.Service
	security *SecurityHandler
}

// NewHandler constructs a Handler. security may be nil, in which case
// mutating endpoints are left unguarded (local development).
func NewHandler(svc *coupon.Service, security *SecurityHandler) *Handler {
	return &Handler{svc: svc, security: security}
}

// Routes registers all endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", h.ListCoupons)
		r.Get("/active-coupons", h.ListActiveCoupons)
		r.Get("/{id}", h.GetCoupon)

		r.Post("/applicable-coupons", h.ApplicableCoupons)
		r.Post("/apply-coupon/{id}", h.ApplyCoupon)

		r.Group(func(r chi.Router) {
			if h.security != nil {
				r.Use(h.security.RequireAPIKey)
			}
			r.Post("/", h.CreateCoupon)
			r.Put("/{id}", h.UpdateCoupon)
			r.Delete("/{id}", h.DeleteCoupon)
		})
	})
}

// errorInfo is the JSON error envelope for all failure responses.
type errorInfo struct {
	Status  int    `json:"status"`
	Date    string `json:"date"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorInfo{
		Status:  status,
		Date:    time.Now().Format(time.DateOnly),
		Message: message,
		Details: details,
	})
}
