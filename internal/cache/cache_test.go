package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryClient_Miss(t *testing.T) {
	c := NewMemoryClient(10)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Delete(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_EvictsAtCapacity(t *testing.T) {
	c := NewMemoryClient(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 2*time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 3*time.Minute))

	// "a" expires earliest, so it was the eviction victim.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestAnswerCache_RoundTrip(t *testing.T) {
	ac := NewAnswerCache(NewMemoryClient(10), observability.Nop(), time.Minute)
	ctx := context.Background()

	ac.Set(ctx, "Which dog food?", "Premium kibble.", "Collection: products")

	cached, ok := ac.Get(ctx, "Which dog food?")
	require.True(t, ok)
	assert.Equal(t, "Premium kibble.", cached.Answer)
	assert.Equal(t, "Collection: products", cached.Context)
}

func TestAnswerCache_KeyNormalizesQuestion(t *testing.T) {
	ac := NewAnswerCache(NewMemoryClient(10), observability.Nop(), time.Minute)
	ctx := context.Background()

	ac.Set(ctx, "Which dog food?", "Premium kibble.", "")

	// Case and surrounding whitespace do not split cache entries.
	_, ok := ac.Get(ctx, "  which DOG food?  ")
	assert.True(t, ok)
}

func TestAnswerCache_NilClientDisables(t *testing.T) {
	ac := NewAnswerCache(nil, observability.Nop(), time.Minute)
	ctx := context.Background()

	ac.Set(ctx, "q", "a", "")
	_, ok := ac.Get(ctx, "q")
	assert.False(t, ok)
}
