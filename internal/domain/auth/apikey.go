// Package auth holds the API key identity model used to guard mutating
// coupon-management endpoints.
package auth

import "context"

// ScopeCouponsWrite authorizes coupon create/update/delete operations.
const ScopeCouponsWrite = "coupons:write"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants the given scope. A key with no
// scopes grants everything, matching keys seeded before scopes existed.
func (k *APIKeyInfo) HasScope(scope string) bool {
	if len(k.Scopes) == 0 {
		return true
	}
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
