// Package principal carries the authenticated caller through a request context.
package principal

import "context"

type Principal struct {
	CustomerID int64
	Role       string
	SessionID  string
}

type ctxKey struct{}

func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
