package stats

import "context"

type ctxKey struct{}

// NewContext attaches s to ctx so layers below the operator runtime (the
// Connector's read-through cache in particular) can count against the
// owning query without widening their interfaces.
func NewContext(ctx context.Context, s *QueryStatistics) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the QueryStatistics attached to ctx, or nil.
func FromContext(ctx context.Context) *QueryStatistics {
	s, _ := ctx.Value(ctxKey{}).(*QueryStatistics)
	return s
}
