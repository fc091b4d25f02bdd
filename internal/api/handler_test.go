package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-engine/internal/domain/auth"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

type memRepo struct {
	coupons []coupon.Coupon
}

func (m *memRepo) Create(_ context.Context, c *coupon.Coupon) error {
	m.coupons = append(m.coupons, *c)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	for i := range m.coupons {
		if m.coupons[i].ID == id {
			c := m.coupons[i]
			return &c, nil
		}
	}
	return nil, coupon.ErrNotFound
}

func (m *memRepo) List(_ context.Context) ([]coupon.Coupon, error) {
	return append([]coupon.Coupon(nil), m.coupons...), nil
}

func (m *memRepo) Update(_ context.Context, c *coupon.Coupon) error {
	for i := range m.coupons {
		if m.coupons[i].ID == c.ID {
			m.coupons[i] = *c
			return nil
		}
	}
	return coupon.ErrNotFound
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	for i := range m.coupons {
		if m.coupons[i].ID == id {
			m.coupons = append(m.coupons[:i], m.coupons[i+1:]...)
			return nil
		}
	}
	return coupon.ErrNotFound
}

func (m *memRepo) FindActive(_ context.Context, _ time.Time) ([]coupon.Coupon, error) {
	var active []coupon.Coupon
	for _, c := range m.coupons {
		if c.Active {
			active = append(active, c)
		}
	}
	return active, nil
}

func (m *memRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for i := range m.coupons {
		if m.coupons[i].Code == code {
			return true, nil
		}
	}
	return false, nil
}

func newTestRouter(security *SecurityHandler, seeded ...coupon.Coupon) (*chi.Mux, *memRepo) {
	repo := &memRepo{coupons: seeded}
	h := NewHandler(coupon.NewService(repo), security)

	router := chi.NewRouter()
	router.Route("/api", h.Routes)
	return router, repo
}

func tenPercentCoupon(id, code string) coupon.Coupon {
	pct := decimal.NewFromInt(10)
	return coupon.Coupon{
		ID:     id,
		Name:   "Ten percent off",
		Code:   code,
		Type:   coupon.TypeCartWise,
		Active: true,
		CartWise: &coupon.CartWiseRule{
			MinCartAmount:      decimal.NewFromInt(100),
			DiscountPercentage: &pct,
		},
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateCoupon(t *testing.T) {
	t.Run("creates cart-wise coupon", func(t *testing.T) {
		router, repo := newTestRouter(nil)

		min, pct := 100.0, 10.0
		rec := doJSON(t, router, http.MethodPost, "/api/coupons", CouponJSON{
			Name:               "Ten percent off",
			Code:               "SAVE10",
			Type:               "CART_WISE",
			MinCartAmount:      &min,
			DiscountPercentage: &pct,
		})

		require.Equal(t, http.StatusCreated, rec.Code)

		var got CouponJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "SAVE10", got.Code)
		require.NotNil(t, got.Active)
		assert.True(t, *got.Active, "active must default to true")

		require.Len(t, repo.coupons, 1)
		require.NotNil(t, repo.coupons[0].CartWise)
	})

	t.Run("duplicate code returns 409", func(t *testing.T) {
		router, _ := newTestRouter(nil, tenPercentCoupon("c1", "SAVE10"))

		pct := 10.0
		rec := doJSON(t, router, http.MethodPost, "/api/coupons", CouponJSON{
			Name:               "Again",
			Code:               "SAVE10",
			Type:               "CART_WISE",
			DiscountPercentage: &pct,
		})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "Duplicate Coupon Code")
	})

	t.Run("invalid definition returns 400", func(t *testing.T) {
		router, _ := newTestRouter(nil)

		rec := doJSON(t, router, http.MethodPost, "/api/coupons", CouponJSON{
			Name: "Broken",
			Code: "BROKEN",
			Type: "CART_WISE",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Constraints Not Fulfilled")
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		router, _ := newTestRouter(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/coupons", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetCoupon(t *testing.T) {
	router, _ := newTestRouter(nil, tenPercentCoupon("c1", "SAVE10"))

	t.Run("found", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/coupons/c1", nil)

		require.Equal(t, http.StatusOK, rec.Code)

		var got CouponJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "SAVE10", got.Code)
		require.NotNil(t, got.MinCartAmount)
		assert.InDelta(t, 100, *got.MinCartAmount, 1e-9)
	})

	t.Run("missing id returns 404 envelope", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/coupons/nope", nil)

		require.Equal(t, http.StatusNotFound, rec.Code)

		var envelope errorInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, http.StatusNotFound, envelope.Status)
		assert.Equal(t, "Coupon Not Available", envelope.Details)
		assert.NotEmpty(t, envelope.Date)
	})
}

func TestUpdateAndDeleteCoupon(t *testing.T) {
	router, repo := newTestRouter(nil, tenPercentCoupon("c1", "SAVE10"))

	inactive := false
	rec := doJSON(t, router, http.MethodPut, "/api/coupons/c1", UpdateCouponJSON{
		Name:        "Renamed",
		Description: "now disabled",
		Active:      &inactive,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", repo.coupons[0].Name)
	assert.False(t, repo.coupons[0].Active)

	rec = doJSON(t, router, http.MethodDelete, "/api/coupons/c1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.coupons)

	rec = doJSON(t, router, http.MethodDelete, "/api/coupons/c1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplicableCoupons(t *testing.T) {
	router, _ := newTestRouter(nil, tenPercentCoupon("c1", "SAVE10"))

	t.Run("reports positive discounts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/applicable-coupons", CartJSON{
			Items: []CartItemJSON{
				{ProductID: "P001", Price: 100, Quantity: 2},
			},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var got []ApplicableCouponJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "c1", got[0].Coupon.ID)
		assert.InDelta(t, 20, got[0].Discount, 1e-9)
		assert.Equal(t, "applicable", got[0].Message)
	})

	t.Run("coupon below minimum is excluded", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/applicable-coupons", CartJSON{
			Items: []CartItemJSON{
				{ProductID: "P001", Price: 10, Quantity: 1},
			},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var got []ApplicableCouponJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Empty(t, got)
	})

	t.Run("empty cart returns 400", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/applicable-coupons", CartJSON{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestApplyCoupon(t *testing.T) {
	router, _ := newTestRouter(nil, tenPercentCoupon("c1", "SAVE10"))

	t.Run("returns discounted cart", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/apply-coupon/c1", ApplyCouponJSON{
			Items: []CartItemJSON{
				{ProductID: "P001", Price: 100, Quantity: 2},
			},
		})

		require.Equal(t, http.StatusOK, rec.Code)

		var got CartJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.InDelta(t, 180, got.TotalAmount, 1e-9)
		require.Len(t, got.Items, 1)
		assert.InDelta(t, 90, got.Items[0].DiscountedPrice, 1e-9)
	})

	t.Run("not applicable returns 404 with reason", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/apply-coupon/c1", ApplyCouponJSON{
			Items: []CartItemJSON{
				{ProductID: "P001", Price: 10, Quantity: 1},
			},
		})

		require.Equal(t, http.StatusNotFound, rec.Code)

		var envelope errorInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "Coupon Not Applicable", envelope.Details)
		assert.Contains(t, envelope.Message, "cart total below minimum")
	})

	t.Run("unknown coupon returns 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/coupons/apply-coupon/nope", ApplyCouponJSON{
			Items: []CartItemJSON{
				{ProductID: "P001", Price: 100, Quantity: 2},
			},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type memKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
}

func (m *memKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := m.keys[hash]; ok {
		return info, nil
	}
	return nil, coupon.ErrNotFound
}

func hashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRequireAPIKey(t *testing.T) {
	pepper := []byte("test-pepper")
	writeHash := hashKey("write-key", pepper)
	readHash := hashKey("read-key", pepper)

	security := NewSecurityHandler(&memKeyRepo{keys: map[string]*auth.APIKeyInfo{
		writeHash: {ID: "k1", KeyHash: writeHash, Name: "writer", Scopes: []string{auth.ScopeCouponsWrite}},
		readHash:  {ID: "k2", KeyHash: readHash, Name: "reader", Scopes: []string{"coupons:read"}},
	}}, pepper)

	router, _ := newTestRouter(security)

	pct := 10.0
	body := CouponJSON{
		Name:               "Guarded",
		Code:               "GUARDED",
		Type:               "CART_WISE",
		DiscountPercentage: &pct,
	}

	tests := []struct {
		name       string
		headers    []string
		wantStatus int
	}{
		{
			name:       "missing key",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown key",
			headers:    []string{"api_key", "bogus"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "key without write scope",
			headers:    []string{"api_key", "read-key"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "key with write scope",
			headers:    []string{"api_key", "write-key"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/coupons", body, tt.headers...)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("read endpoints stay open", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/coupons", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
