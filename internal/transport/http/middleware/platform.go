package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

// Storefront clients identify themselves with the platform header. Requests
// from anything outside the whitelist are rejected.
var whitelistedPlatforms = map[string]struct{}{
	"app.saleor.openweb3": {},
}

type platformKey struct{}

// Platform enforces the platform-header whitelist and stores the accepted
// value in the request context.
func Platform(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		platform := r.Header.Get("platform")
		if _, ok := whitelistedPlatforms[platform]; !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": -1, "message": "Invalid platform"})
			return
		}
		ctx := context.WithValue(r.Context(), platformKey{}, platform)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PlatformFromContext returns the platform header accepted by Platform.
func PlatformFromContext(ctx context.Context) string {
	v, _ := ctx.Value(platformKey{}).(string)
	return v
}
