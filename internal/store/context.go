package store

import "context"

type unitKey struct{ owner any }

// WithUnit returns a context carrying r as the open unit of owner. Atomic
// implementations use it so nested calls join the enclosing unit.
func WithUnit(ctx context.Context, owner any, r Repository) context.Context {
	return context.WithValue(ctx, unitKey{owner}, r)
}

// UnitFrom returns the unit of owner open in ctx, if any.
func UnitFrom(ctx context.Context, owner any) (Repository, bool) {
	r, ok := ctx.Value(unitKey{owner}).(Repository)
	return r, ok
}
