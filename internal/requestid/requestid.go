// Package requestid carries the correlation id of an inbound request through
// to outbound CMS calls.
package requestid

import "context"

// Header is the HTTP header holding the correlation id.
const Header = "X-Request-Id"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
