package auth

import "context"

type contextKey string

const claimsKey contextKey = "liveclass-auth-claims"

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// UserID returns the authenticated user's id, or 0 for anonymous and
// service callers.
func UserID(ctx context.Context) int64 {
	if c, ok := FromContext(ctx); ok && c != nil {
		return c.UserID
	}
	return 0
}
