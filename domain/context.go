package domain

import "context"

type ctxKey struct{}

// WithDomain returns a copy of ctx recording d as the current domain.
func WithDomain(ctx context.Context, d *Domain) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the domain the caller is running on, or nil when the
// caller is not running inside a domain.
func FromContext(ctx context.Context) *Domain {
	d, _ := ctx.Value(ctxKey{}).(*Domain)
	return d
}

// Detach returns a copy of ctx that no longer records a domain. Use it before
// handing a context obtained inside a domain task to another goroutine.
func Detach(ctx context.Context) context.Context {
	if FromContext(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, (*Domain)(nil))
}
