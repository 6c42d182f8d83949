/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSize is the number of entries kept when no size is configured
	DefaultSize = 10000

	counterFactor     = 10
	defaultBufferSize = 64
)

var (
	lookupsOpts = metrics.CounterOpts{
		Namespace:    "cache",
		Name:         "lookups",
		Help:         "The number of cache lookups, by cache name and outcome.",
		LabelNames:   []string{"cache", "outcome"},
		StatsdFormat: "%{#fqname}.%{cache}.%{outcome}",
	}
)

// Cache stores values by key, entries may be evicted at any time
type Cache[K ristretto.Key, V any] interface {
	Get(key K) (V, bool)
	// GetOrLoad returns the cached value or loads it, concurrent loads of the same key are collapsed.
	// The boolean reports whether the value came from the cache.
	GetOrLoad(key K, loader func() (V, error)) (V, bool, error)
	Add(key K, value V)
	Delete(key K)
	Clear()
}

type ristrettoCache[K ristretto.Key, V any] struct {
	name    string
	cache   *ristretto.Cache[K, V]
	sfg     singleflight.Group
	lookups metrics.Counter
}

// NewLookupsCounter returns the counter shared by all the caches of a node
func NewLookupsCounter(provider metrics.Provider) metrics.Counter {
	return provider.NewCounter(lookupsOpts)
}

// New returns a ristretto-backed cache holding up to size entries.
// Lookups are counted on the passed counter, nil disables them.
func New[K ristretto.Key, V any](name string, size int64, lookups metrics.Counter) (*ristrettoCache[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	if lookups == nil {
		lookups = NewLookupsCounter(&disabled.Provider{})
	}
	rCache, err := ristretto.NewCache[K, V](&ristretto.Config[K, V]{
		NumCounters: size * counterFactor,
		MaxCost:     size,
		BufferItems: defaultBufferSize,
		Cost: func(value V) int64 {
			return 1
		},
	})
	if err != nil {
		return nil, err
	}
	return &ristrettoCache[K, V]{
		name:    name,
		cache:   rCache,
		lookups: lookups,
	}, nil
}

func (c *ristrettoCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.cache.Get(key)
	if ok {
		c.lookups.With("cache", c.name, "outcome", "hit").Add(1)
	} else {
		c.lookups.With("cache", c.name, "outcome", "miss").Add(1)
	}
	return v, ok
}

func (c *ristrettoCache[K, V]) Add(key K, value V) {
	c.cache.Set(key, value, 0)
	c.cache.Wait()
}

func (c *ristrettoCache[K, V]) Delete(key K) {
	c.cache.Del(key)
	c.cache.Wait()
}

func (c *ristrettoCache[K, V]) Clear() {
	c.cache.Clear()
	c.cache.Wait()
}

func (c *ristrettoCache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, bool, error) {
	var zero V
	if value, found := c.Get(key); found {
		return value, true, nil
	}
	res, err, _ := c.sfg.Do(flightKey(key), func() (interface{}, error) {
		v, err := loader()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		return zero, false, err
	}
	return res.(V), false, nil
}

func flightKey[K ristretto.Key](key K) string {
	switch k := any(key).(type) {
	case string:
		return k
	case []byte:
		return string(k)
	}
	return fmt.Sprint(key)
}

// NoCache never stores anything, every GetOrLoad calls the loader
type NoCache[K ristretto.Key, V any] struct{}

func NewNoCache[K ristretto.Key, V any]() *NoCache[K, V] {
	return &NoCache[K, V]{}
}

func (n *NoCache[K, V]) Get(key K) (V, bool) {
	var zero V
	return zero, false
}

func (n *NoCache[K, V]) GetOrLoad(key K, loader func() (V, error)) (V, bool, error) {
	v, err := loader()
	return v, false, err
}

func (n *NoCache[K, V]) Add(key K, value V) {}

func (n *NoCache[K, V]) Delete(key K) {}

func (n *NoCache[K, V]) Clear() {}
