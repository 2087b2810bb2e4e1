// Package tenant carries the current tenant (client data partition) across
// the asynchronous dispatch boundary. Tenancy is always threaded explicitly
// through task payloads and restored here; there is no ambient global state.
package tenant

import "context"

type contextKey string

const tenantKey contextKey = "tenant"

// Provider resolves and switches the active tenant around task execution.
type Provider interface {
	// Current returns the active tenant id, or "" when none is active
	// (a system-wide, cross-tenant task).
	Current(ctx context.Context) string

	// Activate returns a context with the given tenant active.
	Activate(ctx context.Context, tenantID string) context.Context

	// Deactivate returns a context with no tenant active.
	Deactivate(ctx context.Context) context.Context
}

// ContextProvider is the default Provider, backed by context values.
type ContextProvider struct{}

// NewContextProvider creates the default context-backed tenant provider.
func NewContextProvider() *ContextProvider {
	return &ContextProvider{}
}

func (p *ContextProvider) Current(ctx context.Context) string {
	return FromContext(ctx)
}

func (p *ContextProvider) Activate(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return p.Deactivate(ctx)
	}

	return context.WithValue(ctx, tenantKey, tenantID)
}

func (p *ContextProvider) Deactivate(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey, "")
}

// FromContext returns the tenant id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(tenantKey).(string); ok {
		return id
	}

	return ""
}
