/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/stretchr/testify/require"
)

func TestAddGetDelete(t *testing.T) {
	t.Parallel()
	c, err := New[string, string]("txs", 0, nil)
	require.NoError(t, err)

	_, found := c.Get("tx1")
	require.False(t, found)

	c.Add("tx1", "payload")
	v, found := c.Get("tx1")
	require.True(t, found)
	require.Equal(t, "payload", v)

	c.Delete("tx1")
	_, found = c.Get("tx1")
	require.False(t, found)

	c.Add("tx2", "payload")
	c.Clear()
	_, found = c.Get("tx2")
	require.False(t, found)
}

func TestLookupsAreCounted(t *testing.T) {
	t.Parallel()
	provider := metrics.NewInMemoryProvider()
	c, err := New[string, int]("states", 16, NewLookupsCounter(provider))
	require.NoError(t, err)

	c.Get("a")
	c.Add("a", 1)
	c.Get("a")
	c.Get("a")

	require.Equal(t, float64(1), provider.Value("cache_lookups", "cache", "states", "outcome", "miss"))
	require.Equal(t, float64(2), provider.Value("cache_lookups", "cache", "states", "outcome", "hit"))
}

func TestGetOrLoad(t *testing.T) {
	t.Parallel()
	c, err := New[string, string]("txs", 0, nil)
	require.NoError(t, err)

	calls := 0
	loader := func() (string, error) {
		calls++
		return "loaded", nil
	}

	v, cached, err := c.GetOrLoad("tx1", loader)
	require.NoError(t, err)
	require.False(t, cached)
	require.Equal(t, "loaded", v)

	v, cached, err = c.GetOrLoad("tx1", loader)
	require.NoError(t, err)
	require.True(t, cached)
	require.Equal(t, "loaded", v)
	require.Equal(t, 1, calls)
}

func TestGetOrLoadError(t *testing.T) {
	t.Parallel()
	c, err := New[string, string]("txs", 0, nil)
	require.NoError(t, err)

	loaderErr := errors.New("database is down")
	_, _, err = c.GetOrLoad("tx1", func() (string, error) { return "", loaderErr })
	require.Equal(t, loaderErr, err)

	_, found := c.Get("tx1")
	require.False(t, found)
}

func TestGetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	t.Parallel()
	c, err := New[string, int]("txs", 0, nil)
	require.NoError(t, err)

	var calls int32
	loader := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrLoad("tx1", loader)
			require.NoError(t, err)
			require.Equal(t, 42, v)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNoCache(t *testing.T) {
	c := NewNoCache[string, int]()
	c.Add("a", 1)
	_, found := c.Get("a")
	require.False(t, found)

	calls := 0
	for i := 0; i < 2; i++ {
		v, cached, err := c.GetOrLoad("a", func() (int, error) { calls++; return 7, nil })
		require.NoError(t, err)
		require.False(t, cached)
		require.Equal(t, 7, v)
	}
	require.Equal(t, 2, calls)
}
