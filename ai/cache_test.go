package ai

import (
	"testing"

	"github.com/poiesic/documind/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	cache := NewCache()
	key := CacheKey("hello", core.ProviderLocal, "hash-feature-v1")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	res := Result{Vector: []float32{1, 2, 3}, Provider: core.ProviderLocal, Model: "hash-feature-v1"}
	cache.Put(key, res)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, res, got)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheKeyDistinguishesProviderAndModel(t *testing.T) {
	text := "same text"

	remote := CacheKey(text, core.ProviderRemote, "text-embedding-3-small")
	local := CacheKey(text, core.ProviderLocal, "text-embedding-3-small")
	otherModel := CacheKey(text, core.ProviderRemote, "text-embedding-3-large")

	assert.NotEqual(t, remote, local)
	assert.NotEqual(t, remote, otherModel)
	assert.Equal(t, remote, CacheKey(text, core.ProviderRemote, "text-embedding-3-small"))
}

func TestCacheRemoveAndClear(t *testing.T) {
	cache := NewCache()
	k1 := CacheKey("a", core.ProviderLocal, "m")
	k2 := CacheKey("b", core.ProviderLocal, "m")
	cache.Put(k1, Result{})
	cache.Put(k2, Result{})

	cache.Remove(k1)
	_, ok := cache.Get(k1)
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
