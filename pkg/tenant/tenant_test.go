package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextProvider_ActivateAndCurrent(t *testing.T) {
	provider := NewContextProvider()
	ctx := context.Background()

	assert.Empty(t, provider.Current(ctx))

	active := provider.Activate(ctx, "tenant-1")
	assert.Equal(t, "tenant-1", provider.Current(active))

	// Activation never leaks into the parent context.
	assert.Empty(t, provider.Current(ctx))

	switched := provider.Activate(active, "tenant-2")
	assert.Equal(t, "tenant-2", provider.Current(switched))
	assert.Equal(t, "tenant-1", provider.Current(active))
}

func TestContextProvider_Deactivate(t *testing.T) {
	provider := NewContextProvider()

	active := provider.Activate(context.Background(), "tenant-1")
	cleared := provider.Deactivate(active)

	assert.Empty(t, provider.Current(cleared))
	assert.Equal(t, "tenant-1", provider.Current(active))
}

func TestContextProvider_ActivateEmptyDeactivates(t *testing.T) {
	provider := NewContextProvider()

	active := provider.Activate(context.Background(), "tenant-1")
	cleared := provider.Activate(active, "")

	assert.Empty(t, provider.Current(cleared))
}

func TestFromContext_NoValue(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
}
